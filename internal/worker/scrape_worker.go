package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/batch"
	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/config"
	"github.com/launchsignal/api/internal/fieldmap"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/retry"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/websocket"
)

// ProfileRepo is the profile persistence surface the scrape worker needs.
type ProfileRepo interface {
	GetOwned(ctx context.Context, tenantID, profileID string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
	Put(ctx context.Context, p *model.Profile) error
}

// PostRepo is the post persistence surface the scrape worker needs.
type PostRepo interface {
	Upsert(ctx context.Context, p *model.Post) error
}

// CompanyRepo is the company persistence surface the scrape worker needs.
type CompanyRepo interface {
	GetOwned(ctx context.Context, tenantID, companyID string) (*model.Company, error)
	Put(ctx context.Context, c *model.Company) error
}

// ScrapeWorker processes profile-scrape and company-post-scrape tasks.
type ScrapeWorker struct {
	jobs      *service.JobService
	profiles  ProfileRepo
	posts     PostRepo
	companies CompanyRepo
	runner    client.ActorRunner
	hub       *websocket.Hub
	cfg       config.WorkerConfig
	policy    retry.Policy
}

// NewScrapeWorker creates a new scrape worker
func NewScrapeWorker(jobs *service.JobService, profiles ProfileRepo, posts PostRepo, companies CompanyRepo, runner client.ActorRunner, hub *websocket.Hub, cfg config.WorkerConfig) *ScrapeWorker {
	return &ScrapeWorker{
		jobs:      jobs,
		profiles:  profiles,
		posts:     posts,
		companies: companies,
		runner:    runner,
		hub:       hub,
		cfg:       cfg,
		policy:    retry.DefaultPolicy(client.ClassifyError),
	}
}

// ProcessProfileTask handles a profile-scrape task: one actor run per
// profile, each isolated from its siblings.
func (w *ScrapeWorker) ProcessProfileTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ScrapeTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting profile scrape job %s (%d targets)", payload.JobID, len(payload.TargetIDs))
	if _, err := w.jobs.MarkRunning(ctx, payload.JobID); err != nil {
		return err
	}

	batch.Run(ctx, payload.TargetIDs, w.cfg.ChunkSize,
		func(ctx context.Context, profileID string) error {
			return w.scrapeProfile(ctx, payload.TenantID, profileID)
		},
		func(ctx context.Context, chunk batch.Summary) error {
			job, err := w.jobs.ApplySummary(ctx, payload.JobID, chunk)
			if err != nil {
				log.Printf("Failed to flush chunk for job %s: %v", payload.JobID, err)
				return err
			}
			w.hub.BroadcastProgress(job)
			return nil
		},
	)

	job, err := w.jobs.Finish(ctx, payload.JobID)
	if err != nil {
		return err
	}
	w.hub.BroadcastComplete(job)
	log.Printf("Profile scrape job %s finished: %s (%d/%d)", job.JobID, job.Status, job.SuccessCount, job.TargetCount)
	return nil
}

// scrapeProfile runs the person actor for one profile and folds the
// normalized record back into the store.
func (w *ScrapeWorker) scrapeProfile(ctx context.Context, tenantID, profileID string) error {
	profile, err := w.profiles.GetOwned(ctx, tenantID, profileID)
	if err != nil {
		return fmt.Errorf("profile lookup failed: %w", err)
	}

	records, err := retry.Do(ctx, w.policy, func(ctx context.Context) ([]map[string]interface{}, error) {
		return w.runActorOnce(ctx, func(ctx context.Context) (*client.ActorRun, error) {
			return w.runner.RunProfileActor(ctx, &client.ProfileActorInput{
				ProfileURLs: []string{profile.LinkedInURL},
			})
		})
	})
	if err != nil {
		w.markProfileFailed(ctx, profile, err)
		return err
	}
	if len(records) == 0 {
		err := fmt.Errorf("actor returned no record for %s", profile.LinkedInURL)
		w.markProfileFailed(ctx, profile, err)
		return err
	}

	if !applyProfileRecord(profile, records[0]) {
		err := fmt.Errorf("record for %s is missing identity fields", profile.LinkedInURL)
		w.markProfileFailed(ctx, profile, err)
		return err
	}

	now := time.Now().UTC()
	profile.Status = model.ScrapeStatusScraped
	profile.ScrapeError = ""
	profile.ScrapedAt = &now
	if err := w.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// ProcessCompanyPostTask handles a company-post-scrape task. The company
// is the single job target; every post the actor yields is upserted by
// source URL.
func (w *ScrapeWorker) ProcessCompanyPostTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ScrapeTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting company post scrape job %s (company %s)", payload.JobID, payload.CompanyID)
	if _, err := w.jobs.MarkRunning(ctx, payload.JobID); err != nil {
		return err
	}

	stored, err := w.scrapeCompanyPosts(ctx, &payload)
	result := model.ItemResult{TargetID: payload.CompanyID, OK: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	if _, err := w.jobs.ApplyChunk(ctx, payload.JobID, []model.ItemResult{result}); err != nil {
		return err
	}

	job, err := w.jobs.Finish(ctx, payload.JobID)
	if err != nil {
		return err
	}
	w.hub.BroadcastComplete(job)
	log.Printf("Company post scrape job %s finished: %s (%d posts)", job.JobID, job.Status, stored)
	return nil
}

func (w *ScrapeWorker) scrapeCompanyPosts(ctx context.Context, payload *model.ScrapeTaskPayload) (int, error) {
	company, err := w.companies.GetOwned(ctx, payload.TenantID, payload.CompanyID)
	if err != nil {
		return 0, fmt.Errorf("company lookup failed: %w", err)
	}

	records, err := retry.Do(ctx, w.policy, func(ctx context.Context) ([]map[string]interface{}, error) {
		return w.runActorOnce(ctx, func(ctx context.Context) (*client.ActorRun, error) {
			return w.runner.RunPostActor(ctx, &client.PostActorInput{
				CompanyURL: company.LinkedInURL,
				MaxPosts:   payload.MaxResults,
			})
		})
	})
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	stored := 0
	for _, record := range records {
		post, ok := buildPostFromRecord(payload.TenantID, company.CompanyID, record, now)
		if !ok {
			// A post without a source URL has no upsert identity.
			continue
		}
		if err := w.posts.Upsert(ctx, post); err != nil {
			log.Printf("Failed to upsert post %s: %v", post.SourceURL, err)
			continue
		}
		stored++
	}

	company.LastScrapedAt = &now
	if err := w.companies.Put(ctx, company); err != nil {
		log.Printf("Failed to update company %s: %v", company.CompanyID, err)
	}
	return stored, nil
}

// runActorOnce submits one actor run, waits for it to finish and
// downloads its dataset. The poll deadline bounds the run as a whole.
func (w *ScrapeWorker) runActorOnce(ctx context.Context, submit func(ctx context.Context) (*client.ActorRun, error)) ([]map[string]interface{}, error) {
	run, err := submit(ctx)
	if err != nil {
		return nil, err
	}

	finished, err := w.runner.PollRun(ctx, run.ID, w.cfg.PollInterval, w.cfg.PollTimeout)
	if err != nil {
		return nil, err
	}

	return w.runner.DatasetItems(ctx, finished.DefaultDatasetID)
}

func (w *ScrapeWorker) markProfileFailed(ctx context.Context, profile *model.Profile, cause error) {
	profile.Status = model.ScrapeStatusFailed
	profile.ScrapeError = cause.Error()
	if err := w.profiles.Put(ctx, profile); err != nil {
		log.Printf("Failed to mark profile %s as failed: %v", profile.ProfileID, err)
	}
}

// applyProfileRecord folds an actor record into the profile through the
// candidate-path tables. It reports false when the record lacks the
// identity fields (URL and a name), in which case the profile is left
// unmodified enough to be retried later.
func applyProfileRecord(p *model.Profile, raw map[string]interface{}) bool {
	_, urlOK := fieldmap.ResolveString(raw, fieldmap.ProfileFields["linkedin_url"])
	fullName, fullOK := fieldmap.ResolveString(raw, fieldmap.ProfileFields["full_name"])
	firstName, firstOK := fieldmap.ResolveString(raw, fieldmap.ProfileFields["first_name"])
	if !urlOK || (!fullOK && !firstOK) {
		return false
	}

	p.FullName = fullName
	p.FirstName = firstName
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["last_name"]); ok {
		p.LastName = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["public_id"]); ok {
		p.PublicID = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["urn"]); ok {
		p.URN = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["headline"]); ok {
		p.Headline = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["about"]); ok {
		p.About = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["country"]); ok {
		p.Country = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["address"]); ok {
		p.Address = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["mobile_number"]); ok {
		p.MobileNumber = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["profile_pic"]); ok {
		p.ProfilePic = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["company_name"]); ok {
		p.CompanyName = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["company_website"]); ok {
		p.CompanyWebsite = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["job_title"]); ok {
		p.JobTitle = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.ProfileFields["job_location"]); ok {
		p.JobLocation = v
	}
	if v, ok := fieldmap.ResolveInt(raw, fieldmap.ProfileFields["connections"]); ok {
		p.Connections = &v
	}
	if v, ok := fieldmap.ResolveInt(raw, fieldmap.ProfileFields["followers"]); ok {
		p.Followers = &v
	}
	if v, ok := fieldmap.ResolveBool(raw, fieldmap.ProfileFields["is_premium"]); ok {
		p.IsPremium = &v
	}
	if v, ok := fieldmap.ResolveBool(raw, fieldmap.ProfileFields["is_verified"]); ok {
		p.IsVerified = &v
	}

	// Complex sub-records are stored verbatim.
	if v, ok := fieldmap.Resolve(raw, fieldmap.ProfileFields["experiences"]); ok {
		if data, err := json.Marshal(v); err == nil {
			p.Experiences = data
		}
	}
	if v, ok := fieldmap.Resolve(raw, fieldmap.ProfileFields["skills"]); ok {
		if data, err := json.Marshal(v); err == nil {
			p.Skills = data
		}
	}
	if v, ok := fieldmap.Resolve(raw, fieldmap.ProfileFields["educations"]); ok {
		if data, err := json.Marshal(v); err == nil {
			p.Educations = data
		}
	}
	return true
}

// buildPostFromRecord normalizes one post record. The source URL is the
// upsert identity; a record without one is dropped.
func buildPostFromRecord(tenantID, companyID string, raw map[string]interface{}, now time.Time) (*model.Post, bool) {
	sourceURL, ok := fieldmap.ResolveString(raw, fieldmap.PostFields["source_url"])
	if !ok {
		return nil, false
	}

	post := &model.Post{
		TenantID:  tenantID,
		CompanyID: companyID,
		Status:    model.ScrapeStatusScraped,
		SourceURL: sourceURL,
		ScrapedAt: &now,
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.PostFields["text"]); ok {
		post.Text = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.PostFields["author"]); ok {
		post.Author = v
	}
	if v, ok := fieldmap.ResolveString(raw, fieldmap.PostFields["posted_at"]); ok {
		if ts, err := parsePostTime(v); err == nil {
			post.PostedAt = &ts
		}
	}
	if v, ok := fieldmap.ResolveInt(raw, fieldmap.PostFields["likes"]); ok {
		post.Likes = &v
	}
	if v, ok := fieldmap.ResolveInt(raw, fieldmap.PostFields["comments"]); ok {
		post.Comments = &v
	}
	return post, true
}

// parsePostTime accepts the timestamp layouts seen in actor output.
func parsePostTime(v string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		ts, err := time.Parse(layout, v)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
