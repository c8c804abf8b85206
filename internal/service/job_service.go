package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/launchsignal/api/internal/batch"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// JobRecords is the persistence surface the job service needs. It is
// satisfied by store.JobStore and by in-memory fakes in tests.
type JobRecords interface {
	Put(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*model.Job, error)
	ActiveJobIDs(ctx context.Context) ([]string, error)
}

// JobService owns the job record lifecycle. Status moves forward only:
// pending → running → {completed | partial | failed}, counters never
// decrease, and terminal records are never rewritten.
type JobService struct {
	jobs JobRecords
}

func NewJobService(jobs JobRecords) *JobService {
	return &JobService{jobs: jobs}
}

// Create persists a new pending job.
func (s *JobService) Create(ctx context.Context, tenantID string, jobType model.JobType, targetCount int) (*model.Job, error) {
	now := time.Now().UTC()
	job := &model.Job{
		JobID:       uuid.New().String(),
		TenantID:    tenantID,
		Type:        jobType,
		Status:      model.JobStatusPending,
		TargetCount: targetCount,
		Results:     []model.ItemResult{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.jobs.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	return job, nil
}

// MarkRunning transitions a pending job to running. Already-running jobs
// pass through unchanged; terminal jobs are left alone.
func (s *JobService) MarkRunning(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	if job.Status == model.JobStatusPending {
		job.Status = model.JobStatusRunning
		job.UpdatedAt = time.Now().UTC()
		if err := s.jobs.Put(ctx, job); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// ApplyChunk folds a processed chunk into the job record: counters grow
// monotonically and a target that already has a recorded outcome is
// never recorded twice.
func (s *JobService) ApplyChunk(ctx context.Context, jobID string, results []model.ItemResult) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	for _, r := range results {
		if job.HasResult(r.TargetID) {
			continue
		}
		job.Results = append(job.Results, r)
		if r.OK {
			job.SuccessCount++
		} else {
			job.FailureCount++
		}
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.jobs.Put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ApplySummary folds a batch chunk summary into the job record.
func (s *JobService) ApplySummary(ctx context.Context, jobID string, sum batch.Summary) (*model.Job, error) {
	results := make([]model.ItemResult, 0, len(sum.Outcomes))
	for _, o := range sum.Outcomes {
		results = append(results, model.ItemResult{TargetID: o.TargetID, OK: o.OK, Error: o.Message})
	}
	return s.ApplyChunk(ctx, jobID, results)
}

// Finish settles the terminal status from the counters: all targets
// succeeded → completed, some → partial, none → failed. A job with no
// targets had nothing to fail at and finishes completed.
func (s *JobService) Finish(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	switch {
	case job.TargetCount == 0 || job.FailureCount == 0:
		job.Status = model.JobStatusCompleted
	case job.SuccessCount > 0:
		job.Status = model.JobStatusPartial
	default:
		job.Status = model.JobStatusFailed
	}

	now := time.Now().UTC()
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := s.jobs.Put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Fail marks the whole job failed with a job-level error message, for
// failures that precede any per-item work (bad payload, missing tenant
// data).
func (s *JobService) Fail(ctx context.Context, jobID, errMsg string) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	job.Status = model.JobStatusFailed
	job.ErrorMessage = &errMsg
	now := time.Now().UTC()
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := s.jobs.Put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns the job if the tenant owns it.
func (s *JobService) Get(ctx context.Context, tenantID, jobID string) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return job, nil
}

// List returns the tenant's jobs.
func (s *JobService) List(ctx context.Context, tenantID string) ([]*model.Job, error) {
	return s.jobs.ListByTenant(ctx, tenantID)
}

// ReapStale fails every non-terminal job that has not been touched for
// staleAfter. Workers heartbeat through ApplyChunk's UpdatedAt bump, so
// a stale job means its worker died mid-flight.
func (s *JobService) ReapStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	ids, err := s.jobs.ActiveJobIDs(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-staleAfter)
	reaped := 0
	for _, id := range ids {
		job, err := s.jobs.Get(ctx, id)
		if err != nil {
			continue
		}
		if job.Status.IsTerminal() || job.UpdatedAt.After(cutoff) {
			continue
		}
		if _, err := s.Fail(ctx, id, "job stalled: no progress within the staleness window"); err != nil {
			log.Printf("Failed to reap stale job %s: %v", id, err)
			continue
		}
		reaped++
	}
	return reaped, nil
}
