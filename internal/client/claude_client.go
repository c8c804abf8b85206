package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/launchsignal/api/internal/config"
)

const anthropicVersion = "2023-06-01"

// TextCompleter defines the interface for LLM completion operations
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClaudeClient handles communication with the Anthropic Messages API
type ClaudeClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
}

// MessagesRequest represents the request body for the messages endpoint
type MessagesRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []PromptMessage `json:"messages"`
}

// PromptMessage represents a single message in the conversation
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse represents the response from the messages endpoint
type MessagesResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClaudeClient creates a new Anthropic API client
func NewClaudeClient(cfg *config.ClaudeConfig) *ClaudeClient {
	return &ClaudeClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Complete sends a single-turn prompt and returns the model's text reply
func (c *ClaudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := MessagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []PromptMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Service: "anthropic", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var msgResp MessagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, block := range msgResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}

// IsConfigured returns true if the client has valid configuration
func (c *ClaudeClient) IsConfigured() bool {
	return c.apiKey != ""
}
