package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/launchsignal/api/internal/config"
)

// ActorRunner defines the interface for actor-based scraping operations
type ActorRunner interface {
	RunProfileActor(ctx context.Context, input *ProfileActorInput) (*ActorRun, error)
	RunPostActor(ctx context.Context, input *PostActorInput) (*ActorRun, error)
	GetRun(ctx context.Context, runID string) (*ActorRun, error)
	DatasetItems(ctx context.Context, datasetID string) ([]map[string]interface{}, error)
	PollRun(ctx context.Context, runID string, interval, maxWait time.Duration) (*ActorRun, error)
}

// ApifyClient implements ActorRunner against the Apify platform API
type ApifyClient struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	profileActorID string
	postActorID    string
}

// ProfileActorInput is the input for the profile scraping actor
type ProfileActorInput struct {
	ProfileURLs []string `json:"profileUrls"`
}

// PostActorInput is the input for the company post scraping actor
type PostActorInput struct {
	CompanyURL string `json:"companyUrl"`
	MaxPosts   int    `json:"maxPosts,omitempty"`
}

// ActorRun represents the state of a single actor run
type ActorRun struct {
	ID               string `json:"id"`
	ActorID          string `json:"actId"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
	StatusMessage    string `json:"statusMessage,omitempty"`
}

// Run statuses reported by the platform.
const (
	RunStatusReady     = "READY"
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusAborted   = "ABORTED"
	RunStatusTimedOut  = "TIMED-OUT"
)

// Finished reports whether the run reached a terminal status.
func (r *ActorRun) Finished() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusAborted, RunStatusTimedOut:
		return true
	}
	return false
}

// runEnvelope is the {"data": ...} wrapper the platform puts around run
// objects.
type runEnvelope struct {
	Data ActorRun `json:"data"`
}

// NewApifyClient creates a new Apify API client
func NewApifyClient(cfg *config.ApifyConfig) *ApifyClient {
	return &ApifyClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		profileActorID: cfg.ProfileActorID,
		postActorID:    cfg.PostActorID,
	}
}

// RunProfileActor starts a profile scraping run
func (c *ApifyClient) RunProfileActor(ctx context.Context, input *ProfileActorInput) (*ActorRun, error) {
	return c.runActor(ctx, c.profileActorID, input)
}

// RunPostActor starts a company post scraping run
func (c *ApifyClient) RunPostActor(ctx context.Context, input *PostActorInput) (*ActorRun, error) {
	return c.runActor(ctx, c.postActorID, input)
}

func (c *ApifyClient) runActor(ctx context.Context, actorID string, input interface{}) (*ActorRun, error) {
	endpoint := fmt.Sprintf("/v2/acts/%s/runs", actorID)
	var env runEnvelope
	if err := c.post(ctx, endpoint, input, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// GetRun retrieves the current state of an actor run
func (c *ApifyClient) GetRun(ctx context.Context, runID string) (*ActorRun, error) {
	endpoint := fmt.Sprintf("/v2/actor-runs/%s", runID)
	var env runEnvelope
	if err := c.get(ctx, endpoint, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// DatasetItems downloads the items an actor run wrote to its dataset
func (c *ApifyClient) DatasetItems(ctx context.Context, datasetID string) ([]map[string]interface{}, error) {
	endpoint := fmt.Sprintf("/v2/datasets/%s/items?format=json", datasetID)
	var items []map[string]interface{}
	if err := c.get(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// PollRun polls a run until it reaches a terminal status. The deadline is
// a hard bound on the whole run, not on individual status checks.
func (c *ApifyClient) PollRun(ctx context.Context, runID string, interval, maxWait time.Duration) (*ActorRun, error) {
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		run, err := c.GetRun(ctx, runID)
		if err != nil {
			log.Printf("[Apify] Poll run #%d (run=%s) — error: %v", attempt, runID, err)
			return nil, err
		}

		log.Printf("[Apify] Poll run #%d (run=%s) — status: %s", attempt, runID, run.Status)

		if run.Finished() {
			if run.Status != RunStatusSucceeded {
				return nil, fmt.Errorf("actor run %s ended with status %s: %s", runID, run.Status, run.StatusMessage)
			}
			return run, nil
		}

		select {
		case <-ctx.Done():
			log.Printf("[Apify] Poll run (run=%s) — context cancelled", runID)
			return nil, ctx.Err()
		case <-time.After(interval):
			continue
		}
	}

	return nil, fmt.Errorf("actor run %s timed out after %v", runID, maxWait)
}

// post sends a POST request with JSON body
func (c *ApifyClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *ApifyClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *ApifyClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	log.Printf("[Apify] → %s %s", req.Method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Apify] ✗ %s %s — request failed: %v", req.Method, req.URL.Path, err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Apify] ✗ %s %s — failed to read response: %v", req.Method, req.URL.Path, err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Apify] ← %d %s %s", resp.StatusCode, req.Method, req.URL.Path)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Service: "apify", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ApifyClient) IsConfigured() bool {
	return c.token != ""
}
