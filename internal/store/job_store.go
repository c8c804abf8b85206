package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// jobRetention keeps finished jobs pollable for a week before Redis
// expires them.
const jobRetention = 7 * 24 * time.Hour

// JobStore persists job records. The active-jobs set backs the stuck-job
// reaper: ids are added at creation and removed on terminal transition.
type JobStore struct {
	rdb *redis.Client
}

func NewJobStore(rdb *redis.Client) *JobStore {
	return &JobStore{rdb: rdb}
}

func jobKey(jobID string) string           { return "job:" + jobID }
func tenantJobsKey(tenantID string) string { return "tenant:" + tenantID + ":jobs" }

const activeJobsKey = "jobs:active"

// Put writes the job and maintains the tenant and active indexes.
func (s *JobStore) Put(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, jobKey(job.JobID), data, jobRetention).Err(); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, tenantJobsKey(job.TenantID), job.JobID).Err(); err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return s.rdb.SRem(ctx, activeJobsKey, job.JobID).Err()
	}
	return s.rdb.SAdd(ctx, activeJobsKey, job.JobID).Err()
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	if err := getJSON(ctx, s.rdb, jobKey(jobID), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByTenant returns every job the tenant owns that is still within the
// retention window (expired jobs fall out lazily).
func (s *JobStore) ListByTenant(ctx context.Context, tenantID string) ([]*model.Job, error) {
	ids, err := s.rdb.SMembers(ctx, tenantJobsKey(tenantID)).Result()
	if err != nil {
		return nil, err
	}
	return getMany(ctx, ids, s.Get)
}

// ActiveJobIDs returns the ids of all non-terminal jobs across tenants,
// for staleness reaping.
func (s *JobStore) ActiveJobIDs(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, activeJobsKey).Result()
}
