package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/launchsignal/api/internal/batch"
	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/config"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/retry"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/websocket"
)

// classifyPrompt asks for a strict JSON verdict so the reply is machine
// checkable. The judgement vocabulary is closed; anything else is a
// permanent parse failure.
const classifyPrompt = `Is this LinkedIn post announcing a product launch? Score 0-100. Return only JSON: {"score": X, "judgement": "product_launch"|"other"}

Post:
%s`

// AnalyzedPostRepo is the post persistence surface the analysis worker
// needs.
type AnalyzedPostRepo interface {
	GetOwned(ctx context.Context, tenantID, postID string) (*model.Post, error)
	Put(ctx context.Context, p *model.Post) error
}

// AnalyzeWorker classifies scraped posts with the language model.
type AnalyzeWorker struct {
	jobs   *service.JobService
	posts  AnalyzedPostRepo
	llm    client.TextCompleter
	hub    *websocket.Hub
	cfg    config.WorkerConfig
	policy retry.Policy
}

// NewAnalyzeWorker creates a new analysis worker
func NewAnalyzeWorker(jobs *service.JobService, posts AnalyzedPostRepo, llm client.TextCompleter, hub *websocket.Hub, cfg config.WorkerConfig) *AnalyzeWorker {
	return &AnalyzeWorker{
		jobs:   jobs,
		posts:  posts,
		llm:    llm,
		hub:    hub,
		cfg:    cfg,
		policy: retry.DefaultPolicy(client.ClassifyError),
	}
}

// ProcessTask handles a post-analysis task.
func (w *AnalyzeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.AnalyzeTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting analysis job %s (%d posts)", payload.JobID, len(payload.PostIDs))
	if _, err := w.jobs.MarkRunning(ctx, payload.JobID); err != nil {
		return err
	}

	batch.Run(ctx, payload.PostIDs, w.cfg.ChunkSize,
		func(ctx context.Context, postID string) error {
			return w.analyzePost(ctx, payload.TenantID, postID)
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
	log.Printf("Analysis job %s finished: %s (%d/%d)", job.JobID, job.Status, job.SuccessCount, job.TargetCount)
	return nil
}

func (w *AnalyzeWorker) analyzePost(ctx context.Context, tenantID, postID string) error {
	post, err := w.posts.GetOwned(ctx, tenantID, postID)
	if err != nil {
		return fmt.Errorf("post lookup failed: %w", err)
	}
	if strings.TrimSpace(post.Text) == "" {
		err := fmt.Errorf("post has no text to classify")
		w.markAnalysisFailed(ctx, post, err)
		return err
	}

	verdict, err := retry.Do(ctx, w.policy, func(ctx context.Context) (classification, error) {
		reply, err := w.llm.Complete(ctx, fmt.Sprintf(classifyPrompt, post.Text))
		if err != nil {
			return classification{}, err
		}
		v, err := parseClassification(reply)
		if err != nil {
			// The call went through; the reply itself is broken.
			// Asking again with the same prompt will not fix it.
			return classification{}, retry.AsPermanent(err)
		}
		return v, nil
	})
	if err != nil {
		w.markAnalysisFailed(ctx, post, err)
		return err
	}

	now := time.Now().UTC()
	post.Score = verdict.Score
	post.AIJudgement = verdict.Judgement
	post.AnalysisErr = ""
	post.AnalyzedAt = &now
	if err := w.posts.Put(ctx, post); err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

func (w *AnalyzeWorker) markAnalysisFailed(ctx context.Context, post *model.Post, cause error) {
	post.AnalysisErr = cause.Error()
	if err := w.posts.Put(ctx, post); err != nil {
		log.Printf("Failed to record analysis error on post %s: %v", post.PostID, err)
	}
}

// classification is the parsed model verdict.
type classification struct {
	Score     int
	Judgement model.Judgement
}

// parseClassification extracts and validates the JSON verdict from the
// model reply. Models wrap JSON in prose now and then, so the first
// top-level object in the reply is taken.
func parseClassification(reply string) (classification, error) {
	blob, ok := extractJSONObject(reply)
	if !ok {
		return classification{}, fmt.Errorf("no JSON object in model reply")
	}

	var parsed struct {
		Score     *float64 `json:"score"`
		Judgement string   `json:"judgement"`
	}
	if err := json.Unmarshal([]byte(blob), &parsed); err != nil {
		return classification{}, fmt.Errorf("malformed JSON in model reply: %w", err)
	}
	if parsed.Score == nil {
		return classification{}, fmt.Errorf("model reply is missing the score")
	}

	judgement := model.Judgement(parsed.Judgement)
	if !judgement.Valid() {
		return classification{}, fmt.Errorf("unknown judgement %q", parsed.Judgement)
	}

	return classification{
		Score:     clampScore(int(*parsed.Score)),
		Judgement: judgement,
	}, nil
}

// clampScore forces the score into [0, 100].
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// extractJSONObject returns the first balanced top-level {...} in s.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = inString
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
