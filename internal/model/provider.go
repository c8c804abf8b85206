package model

import "time"

// MailProvider is a user's delegated-send credential obtained through the
// OAuth flow. At most one provider is active per (user, kind) pair; the
// store enforces this on upsert. Token fields are mutated only by the
// delivery path's refresh step, under a per-provider lock.
type MailProvider struct {
	ProviderID     string       `json:"provider_id"`
	UserID         string       `json:"user_id"`
	TenantID       string       `json:"tenant_id"`
	Kind           ProviderKind `json:"provider"`
	Email          string       `json:"email"`
	AccessToken    string       `json:"access_token"`
	RefreshToken   string       `json:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time   `json:"token_expires_at,omitempty"`
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TokenExpired reports whether the access token needs a refresh before
// use. A missing expiry is treated as expired so a stale credential is
// never trusted.
func (p *MailProvider) TokenExpired(now time.Time) bool {
	if p.TokenExpiresAt == nil {
		return true
	}
	// Refresh slightly early so a send never races the expiry.
	return now.After(p.TokenExpiresAt.Add(-2 * time.Minute))
}

// MailProviderInfo is the API representation; tokens never leave the
// backend.
type MailProviderInfo struct {
	ProviderID     string       `json:"provider_id"`
	Kind           ProviderKind `json:"provider"`
	Email          string       `json:"email"`
	IsActive       bool         `json:"is_active"`
	TokenExpiresAt *time.Time   `json:"token_expires_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Info strips credential material for API responses.
func (p *MailProvider) Info() *MailProviderInfo {
	return &MailProviderInfo{
		ProviderID:     p.ProviderID,
		Kind:           p.Kind,
		Email:          p.Email,
		IsActive:       p.IsActive,
		TokenExpiresAt: p.TokenExpiresAt,
		CreatedAt:      p.CreatedAt,
	}
}
