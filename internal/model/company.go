package model

import "time"

// Company is a watched company whose posts are scraped for launch signals.
type Company struct {
	CompanyID     string     `json:"company_id"`
	TenantID      string     `json:"tenant_id"`
	Name          string     `json:"name"`
	LinkedInURL   string     `json:"linkedin_url"`
	IsActive      bool       `json:"is_active"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
