package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// ErrNoTargets is returned when a batch operation resolves to an empty
// target set.
var ErrNoTargets = errors.New("no matching targets")

// ProfileService manages outreach target profiles and starts profile
// scrape jobs.
type ProfileService struct {
	profiles    *store.ProfileStore
	jobs        *JobService
	asynqClient *asynq.Client
}

func NewProfileService(profiles *store.ProfileStore, jobs *JobService, asynqClient *asynq.Client) *ProfileService {
	return &ProfileService{
		profiles:    profiles,
		jobs:        jobs,
		asynqClient: asynqClient,
	}
}

// Add registers a profile by URL only; scraping fills it in later.
// Re-adding an existing URL returns the existing record.
func (s *ProfileService) Add(ctx context.Context, tenantID string, req *model.AddProfileRequest) (*model.Profile, error) {
	normalized := model.NormalizeLinkedInURL(req.LinkedInURL)

	existing, err := s.profiles.FindByURL(ctx, tenantID, normalized)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	p := &model.Profile{
		ProfileID:   uuid.New().String(),
		TenantID:    tenantID,
		Status:      model.ScrapeStatusURLOnly,
		LinkedInURL: normalized,
		Email:       req.Email,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.profiles.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) List(ctx context.Context, tenantID string) ([]*model.Profile, error) {
	return s.profiles.ListByTenant(ctx, tenantID)
}

func (s *ProfileService) Get(ctx context.Context, tenantID, profileID string) (*model.Profile, error) {
	return s.profiles.GetOwned(ctx, tenantID, profileID)
}

func (s *ProfileService) Delete(ctx context.Context, tenantID, profileID string) error {
	return s.profiles.Delete(ctx, tenantID, profileID)
}

// StartScrape creates a profile-scrape job and enqueues its task. An
// empty id list targets every profile still waiting for its first scrape.
func (s *ProfileService) StartScrape(ctx context.Context, tenantID string, req *model.ScrapeProfilesRequest) (*model.JobStartResponse, error) {
	targetIDs, err := s.resolveTargets(ctx, tenantID, req.ProfileIDs)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, tenantID, model.JobTypeProfileScrape, len(targetIDs))
	if err != nil {
		return nil, err
	}

	payload := &model.ScrapeTaskPayload{
		JobID:     job.JobID,
		TenantID:  tenantID,
		TargetIDs: targetIDs,
	}
	task, err := newTask(TaskTypeProfileScrape, payload)
	if err != nil {
		return nil, err
	}
	if err := enqueue(s.asynqClient, task, QueueScrape); err != nil {
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

func (s *ProfileService) resolveTargets(ctx context.Context, tenantID string, requested []string) ([]string, error) {
	if len(requested) > 0 {
		// Every requested profile must exist and belong to the tenant.
		for _, id := range requested {
			if _, err := s.profiles.GetOwned(ctx, tenantID, id); err != nil {
				return nil, fmt.Errorf("profile %s: %w", id, err)
			}
		}
		return requested, nil
	}

	all, err := s.profiles.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range all {
		if p.Status == model.ScrapeStatusURLOnly {
			ids = append(ids, p.ProfileID)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoTargets
	}
	return ids, nil
}
