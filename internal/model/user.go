package model

import "time"

// Tenant is the isolation boundary: every entity store key is scoped by
// tenant id, and deleting a tenant cascades through the per-tenant
// indexes.
type Tenant struct {
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account inside a tenant.
type User struct {
	UserID       string    `json:"user_id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// SenderName returns the name used in outreach signatures.
func (u *User) SenderName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Team"
}
