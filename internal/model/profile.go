package model

import (
	"encoding/json"
	"time"
)

// Profile is a LinkedIn person profile owned by one tenant. It is created
// with just a URL (status url_only) and filled in by the profile-scrape
// task through the field resolver. The normalized LinkedIn URL is the
// upsert key: re-scraping overwrites, never duplicates.
type Profile struct {
	ProfileID string       `json:"profile_id"`
	TenantID  string       `json:"tenant_id"`
	Status    ScrapeStatus `json:"status"`

	LinkedInURL string `json:"linkedin_url"`
	PublicID    string `json:"public_id,omitempty"`
	URN         string `json:"urn,omitempty"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Headline  string `json:"headline,omitempty"`
	About     string `json:"about,omitempty"`
	Email     string `json:"email,omitempty"`

	Country      string `json:"country,omitempty"`
	Address      string `json:"address,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
	ProfilePic   string `json:"profile_pic,omitempty"`

	CompanyName    string `json:"company_name,omitempty"`
	CompanyWebsite string `json:"company_website,omitempty"`
	JobTitle       string `json:"job_title,omitempty"`
	JobLocation    string `json:"job_location,omitempty"`

	Connections *int  `json:"connections,omitempty"`
	Followers   *int  `json:"followers,omitempty"`
	IsPremium   *bool `json:"is_premium,omitempty"`
	IsVerified  *bool `json:"is_verified,omitempty"`

	// Complex actor sub-records stored verbatim, not flattened.
	Experiences json.RawMessage `json:"experiences,omitempty"`
	Skills      json.RawMessage `json:"skills,omitempty"`
	Educations  json.RawMessage `json:"educations,omitempty"`

	ScrapeError string     `json:"scrape_error,omitempty"`
	ScrapedAt   *time.Time `json:"scraped_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DisplayName returns the best available name for outreach rendering.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	if p.FirstName != "" {
		if p.LastName != "" {
			return p.FirstName + " " + p.LastName
		}
		return p.FirstName
	}
	return p.LinkedInURL
}
