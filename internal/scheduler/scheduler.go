// Package scheduler wires the cron jobs that keep the listings cache warm:
// the periodic refresh pass and the audit-trail maintenance sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shirinalapati/Internship-App/internal/model"
	"github.com/shirinalapati/Internship-App/internal/refresh"
)

// RunPruner deletes audit rows older than a cutoff.
type RunPruner interface {
	PruneRuns(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler wraps robfig/cron and manages the refresh loop.
type Scheduler struct {
	cron         *cron.Cron
	orch         *refresh.Orchestrator
	pruner       RunPruner
	refreshSpec  string // cron spec, e.g. "@every 24h"
	maintainSpec string
	runRetention time.Duration
}

// New creates a Scheduler that fires a refresh pass every refreshHours hours
// and prunes audit rows older than runRetentionDays every maintainHours.
func New(orch *refresh.Orchestrator, pruner RunPruner, refreshHours, maintainHours, runRetentionDays int) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLogger(cron.DefaultLogger)),
		orch:         orch,
		pruner:       pruner,
		refreshSpec:  fmt.Sprintf("@every %dh", refreshHours),
		maintainSpec: fmt.Sprintf("@every %dh", maintainHours),
		runRetention: time.Duration(runRetentionDays) * 24 * time.Hour,
	}
}

// Start registers the jobs and starts the scheduler. One startup pass runs
// immediately (non-blocking) so the cache is warm without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.refreshSpec, func() {
		s.runRefresh(ctx, model.RunKindScheduled)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc refresh: %w", err)
	}

	_, err = s.cron.AddFunc(s.maintainSpec, func() {
		s.runMaintenance(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc maintenance: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] cron started: refresh %s, maintenance %s", s.refreshSpec, s.maintainSpec)

	go s.runRefresh(ctx, model.RunKindStartup)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] cron stopped")
}

func (s *Scheduler) runRefresh(ctx context.Context, kind string) {
	_, err := s.orch.Run(ctx, kind, refresh.ModeAuto)
	switch {
	case errors.Is(err, refresh.ErrRefreshInProgress):
		log.Printf("[scheduler] %s refresh skipped: %v", kind, err)
	case err != nil:
		log.Printf("[scheduler] %s refresh failed: %v", kind, err)
	}
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.runRetention)
	n, err := s.pruner.PruneRuns(ctx, cutoff)
	if err != nil {
		log.Printf("[scheduler] audit prune failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[scheduler] pruned %d audit runs older than %s", n, cutoff.Format(time.RFC3339))
	}
}
