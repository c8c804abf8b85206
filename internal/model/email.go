package model

import "time"

// Email is one outreach message. The delivery worker is the only writer
// of MessageID, SentAt, ErrorMessage and the transition away from draft.
// Once status is sent the record is immutable: the store rejects any
// further mutation or delete.
type Email struct {
	EmailID   string      `json:"email_id"`
	TenantID  string      `json:"tenant_id"`
	PostID    string      `json:"post_id,omitempty"`
	ProfileID string      `json:"profile_id,omitempty"`
	Status    EmailStatus `json:"status"`

	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`

	// Transport used for the successful send: "google", "microsoft" or
	// "ses".
	SentVia      string     `json:"sent_via,omitempty"`
	MessageID    string     `json:"message_id,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
