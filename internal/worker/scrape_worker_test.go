package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/model"
)

func newScrapeFixture() (*ScrapeWorker, *memJobs, *memProfiles, *memPosts, *memCompanies, *fakeRunner) {
	jobs, memJ := newTestJobs()
	profiles := newMemProfiles()
	posts := newMemPosts()
	companies := newMemCompanies()
	runner := newFakeRunner()

	w := NewScrapeWorker(jobs, profiles, posts, companies, runner, testHub(), testWorkerCfg)
	w.policy = fastPolicy
	return w, memJ, profiles, posts, companies, runner
}

func profileTask(t *testing.T, payload *model.ScrapeTaskPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask("scrape:profiles", data)
}

func TestProcessProfileTask_MixedOutcomes(t *testing.T) {
	ctx := context.Background()
	w, _, profiles, _, _, runner := newScrapeFixture()

	seed := func(id, url string) {
		profiles.seed(&model.Profile{
			ProfileID:   id,
			TenantID:    "tenant-1",
			Status:      model.ScrapeStatusURLOnly,
			LinkedInURL: url,
		})
	}
	seed("prof-a", "https://www.linkedin.com/in/a")
	seed("prof-b", "https://www.linkedin.com/in/b")
	seed("prof-c", "https://www.linkedin.com/in/c")

	runner.script("https://www.linkedin.com/in/a", fakeRun{records: []map[string]interface{}{{
		"linkedin_url": "https://www.linkedin.com/in/a",
		"full_name":    "Ada Example",
		"headline":     "CTO",
		"connections":  float64(500),
	}}})
	// Every attempt for b dies at the poll stage.
	runner.script("https://www.linkedin.com/in/b", fakeRun{pollErr: errors.New("actor run timed out after 50ms")})
	// The record for c has no identity fields.
	runner.script("https://www.linkedin.com/in/c", fakeRun{records: []map[string]interface{}{{
		"something": "else",
	}}})

	job, err := w.jobs.Create(ctx, "tenant-1", model.JobTypeProfileScrape, 3)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	task := profileTask(t, &model.ScrapeTaskPayload{
		JobID:     job.JobID,
		TenantID:  "tenant-1",
		TargetIDs: []string{"prof-a", "prof-b", "prof-c"},
	})

	if err := w.ProcessProfileTask(ctx, task); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := w.jobs.Get(ctx, "tenant-1", job.JobID)
	if got.Status != model.JobStatusPartial {
		t.Errorf("expected partial, got %s", got.Status)
	}
	if got.SuccessCount != 1 || got.FailureCount != 2 {
		t.Errorf("expected counters 1/2, got %d/%d", got.SuccessCount, got.FailureCount)
	}

	// Each failed target carries its own distinct reason.
	reasons := map[string]string{}
	for _, r := range got.Results {
		if !r.OK {
			reasons[r.TargetID] = r.Error
		}
	}
	if len(reasons) != 2 || reasons["prof-b"] == "" || reasons["prof-c"] == "" {
		t.Fatalf("expected per-target errors for b and c, got %+v", reasons)
	}
	if reasons["prof-b"] == reasons["prof-c"] {
		t.Errorf("failure reasons must be distinct: %q", reasons["prof-b"])
	}

	// Transient poll failures are retried; identity failures are not.
	if n := runner.submitCount("https://www.linkedin.com/in/b"); n != fastPolicy.MaxAttempts {
		t.Errorf("expected %d attempts for the timing-out target, got %d", fastPolicy.MaxAttempts, n)
	}
	if n := runner.submitCount("https://www.linkedin.com/in/c"); n != 1 {
		t.Errorf("identity failure must not be retried, got %d attempts", n)
	}

	a, _ := profiles.GetOwned(ctx, "tenant-1", "prof-a")
	if a.Status != model.ScrapeStatusScraped || a.FullName != "Ada Example" {
		t.Errorf("scraped profile not filled in: %+v", a)
	}
	if a.Connections == nil || *a.Connections != 500 {
		t.Errorf("numeric field not resolved: %+v", a.Connections)
	}
	b, _ := profiles.GetOwned(ctx, "tenant-1", "prof-b")
	if b.Status != model.ScrapeStatusFailed || b.ScrapeError == "" {
		t.Errorf("failed profile must record its error: %+v", b)
	}
}

func TestProcessProfileTask_CamelCaseActorOutput(t *testing.T) {
	ctx := context.Background()
	w, _, profiles, _, _, runner := newScrapeFixture()

	profiles.seed(&model.Profile{
		ProfileID:   "prof-a",
		TenantID:    "tenant-1",
		Status:      model.ScrapeStatusURLOnly,
		LinkedInURL: "https://www.linkedin.com/in/a",
	})
	runner.script("https://www.linkedin.com/in/a", fakeRun{records: []map[string]interface{}{{
		"profileUrl": "https://www.linkedin.com/in/a",
		"firstName":  "Ada",
		"lastName":   "Example",
		"positions": []interface{}{
			map[string]interface{}{"companyName": "Initech", "title": "CTO"},
		},
	}}})

	job, _ := w.jobs.Create(ctx, "tenant-1", model.JobTypeProfileScrape, 1)
	task := profileTask(t, &model.ScrapeTaskPayload{
		JobID: job.JobID, TenantID: "tenant-1", TargetIDs: []string{"prof-a"},
	})
	if err := w.ProcessProfileTask(ctx, task); err != nil {
		t.Fatalf("process: %v", err)
	}

	a, _ := profiles.GetOwned(ctx, "tenant-1", "prof-a")
	if a.FirstName != "Ada" || a.LastName != "Example" {
		t.Errorf("camelCase names not resolved: %+v", a)
	}
	if a.CompanyName != "Initech" || a.JobTitle != "CTO" {
		t.Errorf("nested position fields not resolved: company=%q title=%q", a.CompanyName, a.JobTitle)
	}
}

func TestProcessCompanyPostTask_UpsertsBySourceURL(t *testing.T) {
	ctx := context.Background()
	w, _, _, posts, companies, runner := newScrapeFixture()

	companies.seed(&model.Company{
		CompanyID:   "comp-1",
		TenantID:    "tenant-1",
		Name:        "Initech",
		LinkedInURL: "https://www.linkedin.com/company/initech",
		IsActive:    true,
	})
	runner.script("https://www.linkedin.com/company/initech", fakeRun{records: []map[string]interface{}{
		{"post_url": "https://www.linkedin.com/posts/1", "text": "We launched a thing"},
		{"postUrl": "https://www.linkedin.com/posts/2", "content": "Hiring!"},
		// Same URL again: must overwrite, not duplicate.
		{"url": "https://www.linkedin.com/posts/1", "text": "We launched a thing (edited)"},
		// No URL: dropped.
		{"text": "orphan record"},
	}})

	job, _ := w.jobs.Create(ctx, "tenant-1", model.JobTypeCompanyPostScrape, 1)
	payload := &model.ScrapeTaskPayload{
		JobID:     job.JobID,
		TenantID:  "tenant-1",
		TargetIDs: []string{"comp-1"},
		CompanyID: "comp-1",
	}
	data, _ := json.Marshal(payload)
	if err := w.ProcessCompanyPostTask(ctx, asynq.NewTask("scrape:company_posts", data)); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := w.jobs.Get(ctx, "tenant-1", job.JobID)
	if got.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s (%+v)", got.Status, got.Results)
	}
	if posts.count() != 2 {
		t.Errorf("expected 2 unique posts, got %d", posts.count())
	}

	c, _ := companies.GetOwned(ctx, "tenant-1", "comp-1")
	if c.LastScrapedAt == nil {
		t.Error("company scrape timestamp not recorded")
	}
}

func TestProcessCompanyPostTask_ActorFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	w, _, _, _, companies, runner := newScrapeFixture()

	companies.seed(&model.Company{
		CompanyID:   "comp-1",
		TenantID:    "tenant-1",
		LinkedInURL: "https://www.linkedin.com/company/initech",
	})
	runner.script("https://www.linkedin.com/company/initech", fakeRun{submitErr: errors.New("connection refused")})

	job, _ := w.jobs.Create(ctx, "tenant-1", model.JobTypeCompanyPostScrape, 1)
	payload := &model.ScrapeTaskPayload{
		JobID: job.JobID, TenantID: "tenant-1", TargetIDs: []string{"comp-1"}, CompanyID: "comp-1",
	}
	data, _ := json.Marshal(payload)
	if err := w.ProcessCompanyPostTask(ctx, asynq.NewTask("scrape:company_posts", data)); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := w.jobs.Get(ctx, "tenant-1", job.JobID)
	if got.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if runner.submitCount("https://www.linkedin.com/company/initech") != fastPolicy.MaxAttempts {
		t.Errorf("network failure must be retried")
	}
}
