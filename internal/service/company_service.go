package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// ErrCompanyExists is returned when the tenant already watches the URL.
var ErrCompanyExists = errors.New("company already exists")

// CompanyService manages watched companies and starts post-scrape jobs.
type CompanyService struct {
	companies *store.CompanyStore
	jobs      *JobService

	asynqClient *asynq.Client
}

func NewCompanyService(companies *store.CompanyStore, jobs *JobService, asynqClient *asynq.Client) *CompanyService {
	return &CompanyService{
		companies:   companies,
		jobs:        jobs,
		asynqClient: asynqClient,
	}
}

func (s *CompanyService) Add(ctx context.Context, tenantID string, req *model.AddCompanyRequest) (*model.Company, error) {
	normalized := model.NormalizeLinkedInURL(req.LinkedInURL)

	existing, err := s.companies.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if c.LinkedInURL == normalized {
			return nil, ErrCompanyExists
		}
	}

	c := &model.Company{
		CompanyID:   uuid.New().String(),
		TenantID:    tenantID,
		Name:        req.Name,
		LinkedInURL: normalized,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.companies.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompanyService) List(ctx context.Context, tenantID string) ([]*model.Company, error) {
	return s.companies.ListByTenant(ctx, tenantID)
}

func (s *CompanyService) Get(ctx context.Context, tenantID, companyID string) (*model.Company, error) {
	return s.companies.GetOwned(ctx, tenantID, companyID)
}

// StartPostScrape creates a company-post-scrape job for one company. The
// company itself is the single job target; the posts it yields are
// upserted as they arrive.
func (s *CompanyService) StartPostScrape(ctx context.Context, tenantID, companyID string, req *model.ScrapeCompanyPostsRequest) (*model.JobStartResponse, error) {
	company, err := s.companies.GetOwned(ctx, tenantID, companyID)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, tenantID, model.JobTypeCompanyPostScrape, 1)
	if err != nil {
		return nil, err
	}

	payload := &model.ScrapeTaskPayload{
		JobID:      job.JobID,
		TenantID:   tenantID,
		TargetIDs:  []string{company.CompanyID},
		CompanyID:  company.CompanyID,
		MaxResults: req.MaxPosts,
	}
	task, err := newTask(TaskTypeCompanyPostScrape, payload)
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
