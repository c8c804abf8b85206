package service

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reaper periodically fails jobs whose workers died mid-flight, so
// clients polling them are not left waiting forever.
type Reaper struct {
	jobs       *JobService
	staleAfter time.Duration
	cron       *cron.Cron
}

func NewReaper(jobs *JobService, staleAfter time.Duration) *Reaper {
	return &Reaper{
		jobs:       jobs,
		staleAfter: staleAfter,
		cron:       cron.New(),
	}
}

// Start schedules the sweep every five minutes.
func (r *Reaper) Start() error {
	_, err := r.cron.AddFunc("*/5 * * * *", r.sweep)
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reaped, err := r.jobs.ReapStale(ctx, r.staleAfter)
	if err != nil {
		log.Printf("Stale-job sweep failed: %v", err)
		return
	}
	if reaped > 0 {
		log.Printf("Stale-job sweep marked %d stalled job(s) failed", reaped)
	}
}
