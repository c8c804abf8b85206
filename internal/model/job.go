package model

import "time"

// ItemResult is the per-target outcome recorded in a job's result data.
// Entries are append-only and unique per target within one job.
type ItemResult struct {
	TargetID string `json:"target_id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// Job represents one asynchronous unit of orchestration. It is the single
// source of truth for progress and terminal outcome, owned by the worker
// executing the task (single writer) and polled by clients.
type Job struct {
	JobID        string       `json:"job_id"`
	TenantID     string       `json:"tenant_id"`
	Type         JobType      `json:"job_type"`
	Status       JobStatus    `json:"status"`
	TargetCount  int          `json:"target_count"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
	Results      []ItemResult `json:"result_data"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// HasResult reports whether an outcome for targetID is already recorded.
func (j *Job) HasResult(targetID string) bool {
	for _, r := range j.Results {
		if r.TargetID == targetID {
			return true
		}
	}
	return false
}

// JobStatusResponse is the polling read returned by GET /api/jobs/:id.
type JobStatusResponse struct {
	JobID        string       `json:"job_id"`
	Type         JobType      `json:"job_type"`
	Status       JobStatus    `json:"status"`
	TargetCount  int          `json:"target_count"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
	Progress     float64      `json:"progress"`
	Results      []ItemResult `json:"result_data"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// StatusResponse converts the job into its polling representation.
func (j *Job) StatusResponse() *JobStatusResponse {
	progress := 0.0
	if j.TargetCount > 0 {
		progress = float64(j.SuccessCount+j.FailureCount) / float64(j.TargetCount) * 100
	}
	return &JobStatusResponse{
		JobID:        j.JobID,
		Type:         j.Type,
		Status:       j.Status,
		TargetCount:  j.TargetCount,
		SuccessCount: j.SuccessCount,
		FailureCount: j.FailureCount,
		Progress:     progress,
		Results:      j.Results,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		CompletedAt:  j.CompletedAt,
	}
}

// Task payloads carried through the work queue.

// ScrapeTaskPayload drives profile_scrape and company_post_scrape tasks.
type ScrapeTaskPayload struct {
	JobID      string   `json:"job_id"`
	TenantID   string   `json:"tenant_id"`
	TargetIDs  []string `json:"target_ids"`
	CompanyID  string   `json:"company_id,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
}

// AnalyzeTaskPayload drives post_analysis tasks.
type AnalyzeTaskPayload struct {
	JobID    string   `json:"job_id"`
	TenantID string   `json:"tenant_id"`
	PostIDs  []string `json:"post_ids"`
}

// EmailGenTaskPayload drives email_generation tasks. CampaignID is set
// when the job was started from a campaign, so the worker can move the
// campaign's per-profile links along.
type EmailGenTaskPayload struct {
	JobID      string   `json:"job_id"`
	TenantID   string   `json:"tenant_id"`
	UserID     string   `json:"user_id"`
	PostID     string   `json:"post_id"`
	TemplateID string   `json:"template_id"`
	ProfileIDs []string `json:"profile_ids"`
	CampaignID string   `json:"campaign_id,omitempty"`
}

// EmailSendTaskPayload drives email_send tasks.
type EmailSendTaskPayload struct {
	JobID      string   `json:"job_id"`
	TenantID   string   `json:"tenant_id"`
	UserID     string   `json:"user_id"`
	EmailIDs   []string `json:"email_ids"`
	CampaignID string   `json:"campaign_id,omitempty"`
}
