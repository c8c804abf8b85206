package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types routed through the work queue.
const (
	TaskTypeProfileScrape     = "scrape:profiles"
	TaskTypeCompanyPostScrape = "scrape:company_posts"
	TaskTypePostAnalysis      = "analyze:posts"
	TaskTypeEmailGeneration   = "email:generate"
	TaskTypeEmailSend         = "email:send"
)

// Queue names. Scraping is slow and externally bounded, analysis is
// LLM-bound, email is fast; separate queues keep one kind of work from
// starving another.
const (
	QueueScrape  = "scrape"
	QueueAnalyze = "analyze"
	QueueEmail   = "email"
)

// newTask builds an asynq task carrying a JSON payload.
func newTask(taskType string, payload interface{}) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(taskType, data), nil
}

// enqueue submits the task. Queue-level retry is disabled: per-item
// retry with backoff happens inside the worker, and re-running a whole
// task would double-process targets that already have recorded outcomes.
func enqueue(client *asynq.Client, task *asynq.Task, queue string) error {
	_, err := client.Enqueue(task,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}
