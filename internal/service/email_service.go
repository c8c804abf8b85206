package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// ErrEmailNotDraft is returned when a send targets an email that is not
// in draft status.
var ErrEmailNotDraft = errors.New("email is not a draft")

// EmailService manages outreach emails and starts generation and send
// jobs.
type EmailService struct {
	emails      *store.EmailStore
	posts       *store.PostStore
	profiles    *store.ProfileStore
	templates   *store.TemplateStore
	jobs        *JobService
	asynqClient *asynq.Client
}

func NewEmailService(
	emails *store.EmailStore,
	posts *store.PostStore,
	profiles *store.ProfileStore,
	templates *store.TemplateStore,
	jobs *JobService,
	asynqClient *asynq.Client,
) *EmailService {
	return &EmailService{
		emails:      emails,
		posts:       posts,
		profiles:    profiles,
		templates:   templates,
		jobs:        jobs,
		asynqClient: asynqClient,
	}
}

func (s *EmailService) List(ctx context.Context, tenantID string) ([]*model.Email, error) {
	return s.emails.ListByTenant(ctx, tenantID)
}

func (s *EmailService) Get(ctx context.Context, tenantID, emailID string) (*model.Email, error) {
	return s.emails.GetOwned(ctx, tenantID, emailID)
}

// Delete removes a draft. Sent emails are immutable and cannot be
// deleted.
func (s *EmailService) Delete(ctx context.Context, tenantID, emailID string) error {
	return s.emails.Delete(ctx, tenantID, emailID)
}

// StartGeneration validates the inputs and enqueues an email-generation
// job: one draft per profile, rendered from the template against the
// launch post.
func (s *EmailService) StartGeneration(ctx context.Context, tenantID, userID string, req *model.GenerateEmailsRequest) (*model.JobStartResponse, error) {
	if _, err := s.posts.GetOwned(ctx, tenantID, req.PostID); err != nil {
		return nil, fmt.Errorf("post %s: %w", req.PostID, err)
	}
	if _, err := s.templates.GetVisible(ctx, tenantID, req.TemplateID); err != nil {
		return nil, fmt.Errorf("template %s: %w", req.TemplateID, err)
	}
	for _, id := range req.ProfileIDs {
		if _, err := s.profiles.GetOwned(ctx, tenantID, id); err != nil {
			return nil, fmt.Errorf("profile %s: %w", id, err)
		}
	}

	job, err := s.jobs.Create(ctx, tenantID, model.JobTypeEmailGeneration, len(req.ProfileIDs))
	if err != nil {
		return nil, err
	}

	payload := &model.EmailGenTaskPayload{
		JobID:      job.JobID,
		TenantID:   tenantID,
		UserID:     userID,
		PostID:     req.PostID,
		TemplateID: req.TemplateID,
		ProfileIDs: req.ProfileIDs,
	}
	task, err := newTask(TaskTypeEmailGeneration, payload)
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

// StartSend validates that every target is an owned draft with a
// recipient, then enqueues an email-send job.
func (s *EmailService) StartSend(ctx context.Context, tenantID, userID string, req *model.SendEmailsRequest) (*model.JobStartResponse, error) {
	for _, id := range req.EmailIDs {
		e, err := s.emails.GetOwned(ctx, tenantID, id)
		if err != nil {
			return nil, fmt.Errorf("email %s: %w", id, err)
		}
		if e.Status != model.EmailStatusDraft {
			return nil, fmt.Errorf("email %s: %w", id, ErrEmailNotDraft)
		}
		if e.Recipient == "" {
			return nil, fmt.Errorf("email %s has no recipient address", id)
		}
	}

	job, err := s.jobs.Create(ctx, tenantID, model.JobTypeEmailSend, len(req.EmailIDs))
	if err != nil {
		return nil, err
	}

	payload := &model.EmailSendTaskPayload{
		JobID:    job.JobID,
		TenantID: tenantID,
		UserID:   userID,
		EmailIDs: req.EmailIDs,
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
