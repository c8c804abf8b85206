package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/model"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantScore int
		wantJudge model.Judgement
		wantErr   bool
	}{
		{
			name:      "plain verdict",
			reply:     `{"score": 85, "judgement": "product_launch"}`,
			wantScore: 85,
			wantJudge: model.JudgementProductLaunch,
		},
		{
			name:      "verdict wrapped in prose",
			reply:     "Sure, here is the analysis:\n{\"score\": 12, \"judgement\": \"other\"}\nLet me know if you need more.",
			wantScore: 12,
			wantJudge: model.JudgementOther,
		},
		{
			name:      "score above range is clamped",
			reply:     `{"score": 150, "judgement": "product_launch"}`,
			wantScore: 100,
			wantJudge: model.JudgementProductLaunch,
		},
		{
			name:      "negative score is clamped",
			reply:     `{"score": -5, "judgement": "other"}`,
			wantScore: 0,
			wantJudge: model.JudgementOther,
		},
		{
			name:      "fractional score",
			reply:     `{"score": 73.4, "judgement": "product_launch"}`,
			wantScore: 73,
			wantJudge: model.JudgementProductLaunch,
		},
		{
			name:    "judgement outside vocabulary",
			reply:   `{"score": 40, "judgement": "maybe"}`,
			wantErr: true,
		},
		{
			name:    "missing score",
			reply:   `{"judgement": "other"}`,
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			reply:   "I cannot classify this post.",
			wantErr: true,
		},
		{
			name:    "truncated JSON",
			reply:   `{"score": 85, "judgement": "product`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Score != tt.wantScore || got.Judgement != tt.wantJudge {
				t.Errorf("got %d/%s, want %d/%s", got.Score, got.Judgement, tt.wantScore, tt.wantJudge)
			}
		})
	}
}

func newAnalyzeFixture(llm *fakeLLM) (*AnalyzeWorker, *memPosts) {
	jobs, _ := newTestJobs()
	posts := newMemPosts()
	w := NewAnalyzeWorker(jobs, posts, llm, testHub(), testWorkerCfg)
	w.policy = fastPolicy
	return w, posts
}

func TestProcessAnalyzeTask_WritesVerdict(t *testing.T) {
	ctx := context.Background()
	llm := &fakeLLM{replies: []func() (string, error){
		reply(`{"score": 91, "judgement": "product_launch"}`),
	}}
	w, posts := newAnalyzeFixture(llm)

	posts.seed(&model.Post{
		PostID:   "post-1",
		TenantID: "tenant-1",
		Status:   model.ScrapeStatusScraped,
		Text:     "Today we are thrilled to announce our new platform!",
	})

	job, _ := w.jobs.Create(ctx, "tenant-1", model.JobTypePostAnalysis, 1)
	data, _ := json.Marshal(&model.AnalyzeTaskPayload{
		JobID: job.JobID, TenantID: "tenant-1", PostIDs: []string{"post-1"},
	})
	if err := w.ProcessTask(ctx, asynq.NewTask("analyze:posts", data)); err != nil {
		t.Fatalf("process: %v", err)
	}

	p, _ := posts.GetOwned(ctx, "tenant-1", "post-1")
	if p.Score != 91 || p.AIJudgement != model.JudgementProductLaunch || p.AnalyzedAt == nil {
		t.Errorf("verdict not recorded: %+v", p)
	}

	got, _ := w.jobs.Get(ctx, "tenant-1", job.JobID)
	if got.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
}

func TestProcessAnalyzeTask_MalformedReplyIsNotRetried(t *testing.T) {
	ctx := context.Background()
	llm := &fakeLLM{replies: []func() (string, error){
		reply("no json here"),
	}}
	w, posts := newAnalyzeFixture(llm)

	posts.seed(&model.Post{
		PostID: "post-1", TenantID: "tenant-1",
		Status: model.ScrapeStatusScraped, Text: "some post",
	})

	job, _ := w.jobs.Create(ctx, "tenant-1", model.JobTypePostAnalysis, 1)
	data, _ := json.Marshal(&model.AnalyzeTaskPayload{
		JobID: job.JobID, TenantID: "tenant-1", PostIDs: []string{"post-1"},
	})
	if err := w.ProcessTask(ctx, asynq.NewTask("analyze:posts", data)); err != nil {
		t.Fatalf("process: %v", err)
	}

	if llm.calls != 1 {
		t.Errorf("a broken reply must not be retried, got %d calls", llm.calls)
	}

	p, _ := posts.GetOwned(ctx, "tenant-1", "post-1")
	if p.AnalysisErr == "" || p.AnalyzedAt != nil {
		t.Errorf("parse failure must be recorded without a verdict: %+v", p)
	}
	got, _ := w.jobs.Get(ctx, "tenant-1", job.JobID)
	if got.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
}

func TestProcessAnalyzeTask_RateLimitIsRetried(t *testing.T) {
	ctx := context.Background()
	rateLimited := func() (string, error) {
		return "", &client.APIError{Service: "anthropic", StatusCode: 429, Body: "rate limited"}
	}
	llm := &fakeLLM{replies: []func() (string, error){
		rateLimited,
		reply(`{"score": 10, "judgement": "other"}`),
	}}
	w, posts := newAnalyzeFixture(llm)

	posts.seed(&model.Post{
		PostID: "post-1", TenantID: "tenant-1",
		Status: model.ScrapeStatusScraped, Text: "quarterly update",
	})

	job, _ := w.jobs.Create(ctx, "tenant-1", model.JobTypePostAnalysis, 1)
	data, _ := json.Marshal(&model.AnalyzeTaskPayload{
		JobID: job.JobID, TenantID: "tenant-1", PostIDs: []string{"post-1"},
	})
	if err := w.ProcessTask(ctx, asynq.NewTask("analyze:posts", data)); err != nil {
		t.Fatalf("process: %v", err)
	}

	if llm.calls != 2 {
		t.Errorf("expected a retry after 429, got %d calls", llm.calls)
	}
	p, _ := posts.GetOwned(ctx, "tenant-1", "post-1")
	if p.AIJudgement != model.JudgementOther {
		t.Errorf("verdict not recorded after retry: %+v", p)
	}
}

func TestProcessAnalyzeTask_EmptyPostFailsWithoutCall(t *testing.T) {
	ctx := context.Background()
	llm := &fakeLLM{}
	w, posts := newAnalyzeFixture(llm)

	posts.seed(&model.Post{
		PostID: "post-1", TenantID: "tenant-1", Status: model.ScrapeStatusScraped,
	})

	job, _ := w.jobs.Create(ctx, "tenant-1", model.JobTypePostAnalysis, 1)
	data, _ := json.Marshal(&model.AnalyzeTaskPayload{
		JobID: job.JobID, TenantID: "tenant-1", PostIDs: []string{"post-1"},
	})
	if err := w.ProcessTask(ctx, asynq.NewTask("analyze:posts", data)); err != nil {
		t.Fatalf("process: %v", err)
	}

	if llm.calls != 0 {
		t.Errorf("empty post must not reach the model, got %d calls", llm.calls)
	}
	got, _ := w.jobs.Get(ctx, "tenant-1", job.JobID)
	if got.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
}
