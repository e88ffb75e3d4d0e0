// Package sla runs the background jobs that keep ticket deadlines honest:
// a ticker-driven escalation sweep and a daily snapshot of that day's
// ticket stats into daily_stats.
package sla

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/5knew/deskcore/pkg/config"
	"github.com/5knew/deskcore/pkg/store"
)

// Service periodically promotes open tickets whose deadline is still
// ahead but within the escalation window one priority step and
// refreshes the daily_stats snapshot table. All operations are idempotent
// and safe to run from multiple instances: EscalateTicket re-verifies
// under a row lock before acting.
type Service struct {
	cfg   config.SLAConfig
	store *store.Store
	cron  *cron.Cron

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new SLA service.
func NewService(cfg config.SLAConfig, st *store.Store) *Service {
	return &Service{cfg: cfg, store: st}
}

// Start launches the escalation sweep loop and the daily snapshot cron.
func (s *Service) Start(ctx context.Context) error {
	if s.cancel != nil {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.SnapshotSchedule, func() { s.runSnapshot(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()

	slog.Info("SLA service started",
		"sweep_interval", s.cfg.SweepInterval,
		"escalation_window", s.cfg.EscalationWindow,
		"snapshot_schedule", s.cfg.SnapshotSchedule)
	return nil
}

// Stop signals the sweep loop to exit, waits for it, and stops the cron.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	if s.cron != nil {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}
	slog.Info("SLA service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runSweep(ctx)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

// runSweep escalates every ticket whose deadline falls inside the
// configured escalation window. Each candidate is escalated under its
// own short transaction so one slow or failing ticket cannot stall the
// rest of the sweep.
func (s *Service) runSweep(ctx context.Context) {
	asOf := time.Now().UTC()
	ids, err := s.store.EscalationCandidateIDs(ctx, asOf, s.cfg.EscalationWindow)
	if err != nil {
		slog.Error("SLA sweep: list candidates failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	escalated := 0
	for _, id := range ids {
		ok, ticket, _, _, err := s.store.EscalateTicket(ctx, id, asOf)
		if err != nil {
			slog.Error("SLA sweep: escalate failed", "ticket_id", id, "error", err)
			continue
		}
		if ok {
			escalated++
			slog.Info("SLA sweep: escalated ticket", "ticket_id", id, "priority", ticket.Priority)
		}
	}
	if escalated > 0 {
		slog.Info("SLA sweep complete", "candidates", len(ids), "escalated", escalated)
	}
}

func (s *Service) runSnapshot(ctx context.Context) {
	if err := s.store.RefreshDailyStats(ctx, time.Now().UTC()); err != nil {
		slog.Error("SLA snapshot: refresh daily_stats failed", "error", err)
		return
	}
	slog.Info("SLA snapshot: daily_stats refreshed")
}

// Status classifies a ticket's SLA state relative to now, per the
// met/overdue/warning/ok buckets used by metrics and the ticket views.
type Status string

const (
	StatusMet      Status = "met"
	StatusOverdue  Status = "overdue"
	StatusWarning  Status = "warning"
	StatusOK       Status = "ok"
	StatusUnknown  Status = "unknown"
)

// Evaluate buckets a ticket's SLA state as of now. closedAt is nil for
// open tickets; deadline is nil when the ticket carries no SLA (should
// not happen once priority is classified, but callers may pass raw rows).
func Evaluate(deadline, closedAt *time.Time, now time.Time, warningWindow time.Duration) Status {
	if deadline == nil {
		return StatusUnknown
	}
	if closedAt != nil {
		if closedAt.After(*deadline) {
			return StatusOverdue
		}
		return StatusMet
	}
	if now.After(*deadline) {
		return StatusOverdue
	}
	if deadline.Sub(now) <= warningWindow {
		return StatusWarning
	}
	return StatusOK
}
