package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// ErrProfilesAlreadyLinked is returned when an add-profiles request
// carries only profiles the campaign already has.
var ErrProfilesAlreadyLinked = errors.New("all profiles already linked to this campaign")

// CampaignService groups a launch post with outreach profiles and drives
// generation and delivery for the whole group through the email jobs.
type CampaignService struct {
	campaigns   *store.CampaignStore
	posts       *store.PostStore
	profiles    *store.ProfileStore
	templates   *store.TemplateStore
	jobs        *JobService
	asynqClient *asynq.Client
}

func NewCampaignService(
	campaigns *store.CampaignStore,
	posts *store.PostStore,
	profiles *store.ProfileStore,
	templates *store.TemplateStore,
	jobs *JobService,
	asynqClient *asynq.Client,
) *CampaignService {
	return &CampaignService{
		campaigns:   campaigns,
		posts:       posts,
		profiles:    profiles,
		templates:   templates,
		jobs:        jobs,
		asynqClient: asynqClient,
	}
}

// Create builds a campaign around a post with every requested profile
// linked in pending state.
func (s *CampaignService) Create(ctx context.Context, tenantID string, req *model.CreateCampaignRequest) (*model.Campaign, error) {
	if _, err := s.posts.GetOwned(ctx, tenantID, req.PostID); err != nil {
		return nil, fmt.Errorf("post %s: %w", req.PostID, err)
	}
	profileIDs, err := s.ownedProfileIDs(ctx, tenantID, req.ProfileIDs)
	if err != nil {
		return nil, err
	}

	status := model.CampaignStatus(req.Status)
	if status == "" {
		status = model.CampaignStatusDraft
	}

	now := time.Now().UTC()
	c := &model.Campaign{
		CampaignID: uuid.New().String(),
		TenantID:   tenantID,
		PostID:     req.PostID,
		Name:       strings.TrimSpace(req.Name),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, id := range profileIDs {
		c.Profiles = append(c.Profiles, model.CampaignProfile{
			ProfileID: id,
			Status:    model.CampaignProfilePending,
			AddedAt:   now,
		})
	}
	if err := s.campaigns.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the tenant's campaigns, newest first, optionally filtered
// by status.
func (s *CampaignService) List(ctx context.Context, tenantID string, status model.CampaignStatus) ([]*model.Campaign, error) {
	all, err := s.campaigns.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var out []*model.Campaign
	for _, c := range all {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *CampaignService) Get(ctx context.Context, tenantID, campaignID string) (*model.Campaign, error) {
	return s.campaigns.GetOwned(ctx, tenantID, campaignID)
}

func (s *CampaignService) Delete(ctx context.Context, tenantID, campaignID string) error {
	return s.campaigns.Delete(ctx, tenantID, campaignID)
}

// AddProfiles links more profiles into the campaign. Profiles already
// linked are skipped; a request consisting only of those is an error.
func (s *CampaignService) AddProfiles(ctx context.Context, tenantID, campaignID string, req *model.AddCampaignProfilesRequest) (*model.Campaign, error) {
	c, err := s.campaigns.GetOwned(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	profileIDs, err := s.ownedProfileIDs(ctx, tenantID, req.ProfileIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	added := 0
	for _, id := range profileIDs {
		if c.Link(id) != nil {
			continue
		}
		c.Profiles = append(c.Profiles, model.CampaignProfile{
			ProfileID: id,
			Status:    model.CampaignProfilePending,
			AddedAt:   now,
		})
		added++
	}
	if added == 0 {
		return nil, ErrProfilesAlreadyLinked
	}

	c.UpdatedAt = now
	if err := s.campaigns.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveProfile unlinks one profile from the campaign.
func (s *CampaignService) RemoveProfile(ctx context.Context, tenantID, campaignID, profileID string) (*model.Campaign, error) {
	c, err := s.campaigns.GetOwned(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	kept := c.Profiles[:0]
	removed := false
	for _, link := range c.Profiles {
		if link.ProfileID == profileID {
			removed = true
			continue
		}
		kept = append(kept, link)
	}
	if !removed {
		return nil, store.ErrNotFound
	}
	c.Profiles = kept
	c.UpdatedAt = time.Now().UTC()
	if err := s.campaigns.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// StartGeneration drafts an email for every pending profile in the
// campaign and marks the campaign active.
func (s *CampaignService) StartGeneration(ctx context.Context, tenantID, userID, campaignID string, req *model.CampaignEmailsRequest) (*model.JobStartResponse, error) {
	c, err := s.campaigns.GetOwned(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if _, err := s.templates.GetVisible(ctx, tenantID, req.TemplateID); err != nil {
		return nil, fmt.Errorf("template %s: %w", req.TemplateID, err)
	}
	pending := c.ProfileIDsIn(model.CampaignProfilePending)
	if len(pending) == 0 {
		return nil, ErrNoTargets
	}

	job, err := s.jobs.Create(ctx, tenantID, model.JobTypeEmailGeneration, len(pending))
	if err != nil {
		return nil, err
	}

	payload := &model.EmailGenTaskPayload{
		JobID:      job.JobID,
		TenantID:   tenantID,
		UserID:     userID,
		PostID:     c.PostID,
		TemplateID: req.TemplateID,
		ProfileIDs: pending,
		CampaignID: c.CampaignID,
	}
	task, err := newTask(TaskTypeEmailGeneration, payload)
	if err != nil {
		return nil, err
	}
	if err := enqueue(s.asynqClient, task, QueueEmail); err != nil {
		return nil, err
	}

	c.Status = model.CampaignStatusActive
	c.UpdatedAt = time.Now().UTC()
	if err := s.campaigns.Put(ctx, c); err != nil {
		return nil, err
	}

	return &model.JobStartResponse{
		JobID:       job.JobID,
		Type:        job.Type,
		Status:      job.Status,
		TargetCount: job.TargetCount,
		CreatedAt:   job.CreatedAt,
	}, nil
}

// StartSend delivers every generated draft in the campaign.
func (s *CampaignService) StartSend(ctx context.Context, tenantID, userID, campaignID string) (*model.JobStartResponse, error) {
	c, err := s.campaigns.GetOwned(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	var emailIDs []string
	for _, link := range c.Profiles {
		if link.Status == model.CampaignProfileEmailGenerated && link.EmailID != "" {
			emailIDs = append(emailIDs, link.EmailID)
		}
	}
	if len(emailIDs) == 0 {
		return nil, ErrNoTargets
	}

	job, err := s.jobs.Create(ctx, tenantID, model.JobTypeEmailSend, len(emailIDs))
	if err != nil {
		return nil, err
	}

	payload := &model.EmailSendTaskPayload{
		JobID:      job.JobID,
		TenantID:   tenantID,
		UserID:     userID,
		EmailIDs:   emailIDs,
		CampaignID: c.CampaignID,
	}
	task, err := newTask(TaskTypeEmailSend, payload)
	if err != nil {
		return nil, err
	}
	if err := enqueue(s.asynqClient, task, QueueEmail); err != nil {
		return nil, err
	}

	return &model.JobStartResponse{
		JobID:       job.JobID,
		Type:        job.Type,
		Status:      job.Status,
		TargetCount: job.TargetCount,
		CreatedAt:   job.CreatedAt,
	}, nil
}

// ownedProfileIDs dedupes the request and verifies tenant ownership of
// every profile.
func (s *CampaignService) ownedProfileIDs(ctx context.Context, tenantID string, requested []string) ([]string, error) {
	seen := make(map[string]bool, len(requested))
	var out []string
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.profiles.GetOwned(ctx, tenantID, id); err != nil {
			return nil, fmt.Errorf("profile %s: %w", id, err)
		}
		out = append(out, id)
	}
	return out, nil
}
