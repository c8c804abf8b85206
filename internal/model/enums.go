package model

// Job types
type JobType string

const (
	JobTypeProfileScrape     JobType = "profile_scrape"
	JobTypeCompanyPostScrape JobType = "company_post_scrape"
	JobTypePostAnalysis      JobType = "post_analysis"
	JobTypeEmailGeneration   JobType = "email_generation"
	JobTypeEmailSend         JobType = "email_send"
)

// Job status. Transitions are forward-only: pending → running →
// {completed | partial | failed}. Terminal records are immutable.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusPartial   JobStatus = "partial"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether a job in this status may never change again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusPartial || s == JobStatusFailed
}

// Scrape-target status for profiles and posts.
type ScrapeStatus string

const (
	ScrapeStatusURLOnly ScrapeStatus = "url_only"
	ScrapeStatusScraped ScrapeStatus = "scraped"
	ScrapeStatusFailed  ScrapeStatus = "scraping_failed"
)

// Email status
type EmailStatus string

const (
	EmailStatusDraft  EmailStatus = "draft"
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// Classification judgement returned by the language model.
type Judgement string

const (
	JudgementProductLaunch Judgement = "product_launch"
	JudgementOther         Judgement = "other"
)

// Valid reports whether the judgement is one of the fixed enum values.
// Anything else from the model is a permanent parse error.
func (j Judgement) Valid() bool {
	return j == JudgementProductLaunch || j == JudgementOther
}

// Mail provider kinds for OAuth-delegated sending.
type ProviderKind string

const (
	ProviderGoogle    ProviderKind = "google"
	ProviderMicrosoft ProviderKind = "microsoft"
)

// ValidProviderKinds lists the supported delegated-send providers.
var ValidProviderKinds = []ProviderKind{ProviderGoogle, ProviderMicrosoft}
