// Package scheduler triggers the check-and-notify cycle on a cron cadence.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
)

// Config holds scheduler configuration
type Config struct {
	Spec     string         // standard 5-field cron expression
	Location *time.Location // timezone the expression is evaluated in
}

// Scheduler runs a single recurring job. Overlapping runs are skipped, a
// cycle that outlives its slot delays the next one instead of stacking.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    func(ctx context.Context)
	jobCtx context.Context
}

// New creates a scheduler for the given job. The cron expression is
// validated here so a bad schedule fails at startup, not at first fire.
func New(cfg Config, job func(ctx context.Context)) (*Scheduler, error) {
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", cfg.Spec, err)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{cron: c, spec: cfg.Spec, job: job}, nil
}

// Start begins the schedule. A cycle in flight is never canceled on
// shutdown, Stop waits for it instead, so the job context is detached
// from the lifecycle context.
func (s *Scheduler) Start(ctx context.Context) error {
	s.jobCtx = context.WithoutCancel(ctx)
	_, err := s.cron.AddFunc(s.spec, s.runCycle)
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	s.cron.Start()
	lgr.Printf("[INFO] scheduler started, spec %q in %s", s.spec, s.cron.Location())
	return nil
}

// runCycle executes one scheduled run
func (s *Scheduler) runCycle() {
	lgr.Printf("[DEBUG] schedule fired")
	s.job(s.jobCtx)
}

// Stop halts the schedule and waits for a running job to finish
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	<-s.cron.Stop().Done()
	lgr.Printf("[INFO] scheduler stopped")
}
