package model

import (
	"strings"
	"time"
)

// EmailTemplate holds an outreach template with {{variable}} placeholders.
// Default templates (empty tenant id) are visible to every tenant.
type EmailTemplate struct {
	TemplateID string    `json:"template_id"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Name       string    `json:"name"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TemplateVars are the variables available to templates.
type TemplateVars struct {
	ProfileName string
	CompanyName string
	PostExcerpt string
	SenderName  string
}

// Render substitutes {{placeholders}} in subject and body. Unknown
// placeholders are left in place so a typo is visible in the draft rather
// than silently dropped.
func (t *EmailTemplate) Render(vars TemplateVars) (subject, body string) {
	r := strings.NewReplacer(
		"{{profile_name}}", vars.ProfileName,
		"{{company_name}}", vars.CompanyName,
		"{{post_excerpt}}", vars.PostExcerpt,
		"{{sender_name}}", vars.SenderName,
	)
	return r.Replace(t.Subject), r.Replace(t.Body)
}

// Excerpt shortens post text for template substitution.
func Excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
