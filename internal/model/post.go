package model

import "time"

// Post is one company post pulled by the company-post-scrape task. The
// source URL is the per-tenant upsert key. Score and judgement are written
// only by the analysis task.
type Post struct {
	PostID    string       `json:"post_id"`
	TenantID  string       `json:"tenant_id"`
	CompanyID string       `json:"company_id"`
	Status    ScrapeStatus `json:"status"`

	SourceURL string     `json:"source_url"`
	Text      string     `json:"text,omitempty"`
	Author    string     `json:"author,omitempty"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`
	Likes     *int       `json:"likes,omitempty"`
	Comments  *int       `json:"comments,omitempty"`

	Score       int        `json:"score"`
	AIJudgement Judgement  `json:"ai_judgement,omitempty"`
	AnalysisErr string     `json:"analysis_error,omitempty"`
	AnalyzedAt  *time.Time `json:"analyzed_at,omitempty"`

	ScrapedAt *time.Time `json:"scraped_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Analyzed reports whether the post already carries a classification.
func (p *Post) Analyzed() bool {
	return p.AnalyzedAt != nil
}
