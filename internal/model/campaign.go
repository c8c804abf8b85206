package model

import "time"

// CampaignStatus tracks the rollout of one outreach campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusCompleted:
		return true
	}
	return false
}

// CampaignProfileStatus is the per-profile outreach state within a
// campaign.
type CampaignProfileStatus string

const (
	CampaignProfilePending        CampaignProfileStatus = "pending"
	CampaignProfileEmailGenerated CampaignProfileStatus = "email_generated"
	CampaignProfileEmailSent      CampaignProfileStatus = "email_sent"
	CampaignProfileEmailFailed    CampaignProfileStatus = "email_failed"
)

// CampaignProfile links one profile into a campaign and tracks its
// outreach state plus the generated draft, once there is one.
type CampaignProfile struct {
	ProfileID string                `json:"profile_id"`
	Status    CampaignProfileStatus `json:"status"`
	EmailID   string                `json:"email_id,omitempty"`
	AddedAt   time.Time             `json:"added_at"`
}

// Campaign groups a launch post with the profiles to reach about it, so
// users can drive and track the whole outreach as one unit.
type Campaign struct {
	CampaignID string            `json:"campaign_id"`
	TenantID   string            `json:"tenant_id"`
	PostID     string            `json:"post_id"`
	Name       string            `json:"name"`
	Status     CampaignStatus    `json:"status"`
	Profiles   []CampaignProfile `json:"profiles"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Link returns the campaign's entry for profileID, or nil.
func (c *Campaign) Link(profileID string) *CampaignProfile {
	for i := range c.Profiles {
		if c.Profiles[i].ProfileID == profileID {
			return &c.Profiles[i]
		}
	}
	return nil
}

// ProfileIDsIn returns the profile ids currently in the given state.
func (c *Campaign) ProfileIDsIn(status CampaignProfileStatus) []string {
	var out []string
	for _, link := range c.Profiles {
		if link.Status == status {
			out = append(out, link.ProfileID)
		}
	}
	return out
}

// Settled reports whether every linked profile reached a terminal
// outreach state.
func (c *Campaign) Settled() bool {
	for _, link := range c.Profiles {
		if link.Status != CampaignProfileEmailSent && link.Status != CampaignProfileEmailFailed {
			return false
		}
	}
	return len(c.Profiles) > 0
}
