package service

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// PostService exposes scraped posts and starts analysis jobs.
type PostService struct {
	posts       *store.PostStore
	jobs        *JobService
	asynqClient *asynq.Client
}

func NewPostService(posts *store.PostStore, jobs *JobService, asynqClient *asynq.Client) *PostService {
	return &PostService{
		posts:       posts,
		jobs:        jobs,
		asynqClient: asynqClient,
	}
}

func (s *PostService) List(ctx context.Context, tenantID string) ([]*model.Post, error) {
	return s.posts.ListByTenant(ctx, tenantID)
}

func (s *PostService) Delete(ctx context.Context, tenantID, postID string) error {
	return s.posts.Delete(ctx, tenantID, postID)
}

func (s *PostService) Get(ctx context.Context, tenantID, postID string) (*model.Post, error) {
	return s.posts.GetOwned(ctx, tenantID, postID)
}

// ListLaunches returns analyzed posts judged as product launches, the
// signal the whole pipeline exists to surface.
func (s *PostService) ListLaunches(ctx context.Context, tenantID string, minScore int) ([]*model.Post, error) {
	all, err := s.posts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var out []*model.Post
	for _, p := range all {
		if p.AIJudgement == model.JudgementProductLaunch && p.Score >= minScore {
			out = append(out, p)
		}
	}
	return out, nil
}

// StartAnalysis creates a post-analysis job. An empty id list targets
// every scraped post that has not been analyzed yet.
func (s *PostService) StartAnalysis(ctx context.Context, tenantID string, req *model.AnalyzePostsRequest) (*model.JobStartResponse, error) {
	targetIDs, err := s.resolveTargets(ctx, tenantID, req.PostIDs)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, tenantID, model.JobTypePostAnalysis, len(targetIDs))
	if err != nil {
		return nil, err
	}

	payload := &model.AnalyzeTaskPayload{
		JobID:    job.JobID,
		TenantID: tenantID,
		PostIDs:  targetIDs,
	}
	task, err := newTask(TaskTypePostAnalysis, payload)
	if err != nil {
		return nil, err
	}
	if err := enqueue(s.asynqClient, task, QueueAnalyze); err != nil {
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

func (s *PostService) resolveTargets(ctx context.Context, tenantID string, requested []string) ([]string, error) {
	if len(requested) > 0 {
		for _, id := range requested {
			if _, err := s.posts.GetOwned(ctx, tenantID, id); err != nil {
				return nil, fmt.Errorf("post %s: %w", id, err)
			}
		}
		return requested, nil
	}

	all, err := s.posts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range all {
		if p.Status == model.ScrapeStatusScraped && !p.Analyzed() {
			ids = append(ids, p.PostID)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoTargets
	}
	return ids, nil
}
