package model

import "time"

// Auth

type RegisterRequest struct {
	TenantName string `json:"tenantName" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	FirstName  string `json:"firstName" validate:"omitempty,max=100"`
	LastName   string `json:"lastName" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
}

// Profiles

type AddProfileRequest struct {
	LinkedInURL string `json:"linkedinUrl" validate:"required,max=500"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type ScrapeProfilesRequest struct {
	// Empty means every profile still in url_only status.
	ProfileIDs []string `json:"profileIds" validate:"omitempty,dive,uuid4"`
}

// Companies

type AddCompanyRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	LinkedInURL string `json:"linkedinUrl" validate:"required,max=500"`
}

type ScrapeCompanyPostsRequest struct {
	MaxPosts int `json:"maxPosts" validate:"omitempty,min=1,max=500"`
}

// Posts

type AnalyzePostsRequest struct {
	// Empty means every scraped, not-yet-analyzed post.
	PostIDs []string `json:"postIds" validate:"omitempty,dive,uuid4"`
}

// Emails

type GenerateEmailsRequest struct {
	PostID     string   `json:"postId" validate:"required,uuid4"`
	TemplateID string   `json:"templateId" validate:"required,uuid4"`
	ProfileIDs []string `json:"profileIds" validate:"required,min=1,dive,uuid4"`
}

type SendEmailsRequest struct {
	EmailIDs []string `json:"emailIds" validate:"required,min=1,dive,uuid4"`
}

// Campaigns

type CreateCampaignRequest struct {
	Name       string   `json:"name" validate:"required,max=255"`
	PostID     string   `json:"postId" validate:"required,uuid4"`
	ProfileIDs []string `json:"profileIds" validate:"required,min=1,max=1000,dive,uuid4"`
	Status     string   `json:"status" validate:"omitempty,oneof=draft active completed"`
}

type AddCampaignProfilesRequest struct {
	ProfileIDs []string `json:"profileIds" validate:"required,min=1,max=1000,dive,uuid4"`
}

type CampaignEmailsRequest struct {
	TemplateID string `json:"templateId" validate:"required,uuid4"`
}

// Templates

type TemplateRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Subject string `json:"subject" validate:"required,max=500"`
	Body    string `json:"body" validate:"required"`
}

// Jobs

type JobStartResponse struct {
	JobID       string    `json:"jobId"`
	Type        JobType   `json:"jobType"`
	Status      JobStatus `json:"status"`
	TargetCount int       `json:"targetCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OAuth

type AuthorizeURLResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	State            string `json:"state"`
}
