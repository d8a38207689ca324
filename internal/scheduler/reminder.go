// Package scheduler owns the stale-report reminder loop: a supervised
// background task that periodically surfaces reports stuck in pending and
// nudges the admin group about them, at most once per report per episode.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/investinkids/feedback-service/internal/domain"
	"github.com/investinkids/feedback-service/internal/observability"
	"github.com/investinkids/feedback-service/internal/repository"
)

// StaleNotifier delivers a single reminder for an overdue pending report.
type StaleNotifier interface {
	NotifyStale(ctx context.Context, report domain.Report, elapsed time.Duration) error
}

// RemindedSet tracks which report ids already received a reminder in the
// current episode. It is owned by one scheduler goroutine and needs no
// locking; it exists as a type (rather than a package-level set) so tests
// and multiple scheduler instances don't share state.
type RemindedSet struct {
	ids map[int64]struct{}
}

// NewRemindedSet creates an empty set.
func NewRemindedSet() *RemindedSet {
	return &RemindedSet{ids: make(map[int64]struct{})}
}

// Contains reports whether the id was already reminded.
func (s *RemindedSet) Contains(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Add marks the id as reminded.
func (s *RemindedSet) Add(id int64) {
	s.ids[id] = struct{}{}
}

// Len returns the number of tracked ids.
func (s *RemindedSet) Len() int {
	return len(s.ids)
}

// Clear drops all tracked ids, starting a fresh episode.
func (s *RemindedSet) Clear() {
	s.ids = make(map[int64]struct{})
}

// Config tunes the reminder loop.
type Config struct {
	// Interval between sweeps.
	Interval time.Duration
	// Threshold is how long a report may sit pending before it counts
	// as stale.
	Threshold time.Duration
	// Pause between successive reminder sends within one sweep.
	Pause time.Duration
	// RemindedCap bounds the reminded set; exceeding it clears the set
	// entirely, trading occasional duplicate reminders for bounded memory.
	RemindedCap int
}

// ReminderScheduler polls the store for stale pending reports and reminds
// the admin group once per report per episode.
type ReminderScheduler struct {
	store    repository.ReportStore
	notifier StaleNotifier
	logger   *zap.Logger
	metrics  *observability.Metrics
	cfg      Config
	reminded *RemindedSet
}

// NewReminderScheduler constructs the scheduler with its own reminded set.
func NewReminderScheduler(store repository.ReportStore, notifier StaleNotifier, logger *zap.Logger, metrics *observability.Metrics, cfg Config) *ReminderScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = time.Hour
	}
	if cfg.RemindedCap <= 0 {
		cfg.RemindedCap = 100
	}
	return &ReminderScheduler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		reminded: NewRemindedSet(),
	}
}

// Run executes sweeps until the context is cancelled. A failing sweep is
// logged and the loop continues; nothing short of cancellation stops it.
func (s *ReminderScheduler) Run(ctx context.Context) {
	s.logger.Info("reminder scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("threshold", s.cfg.Threshold))

	for {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("reminder sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-time.After(s.cfg.Interval):
		}
	}
}

// Sweep performs one pass: query stale pending reports oldest-first, remind
// each one not yet in the reminded set, and clear the set once it outgrows
// the cap.
func (s *ReminderScheduler) Sweep(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.RecordSweep()
	}

	reports, err := s.store.ListStalePending(ctx, s.cfg.Threshold)
	if err != nil {
		return err
	}

	for _, report := range reports {
		if s.reminded.Contains(report.ID) {
			continue
		}

		elapsed := time.Since(report.CreatedAt)
		if err := s.notifier.NotifyStale(ctx, report, elapsed); err != nil {
			// Not marked reminded: the next sweep retries this report.
			s.logger.Warn("reminder delivery failed",
				zap.Int64("report_id", report.ID), zap.Error(err))
			continue
		}
		s.reminded.Add(report.ID)
		if s.metrics != nil {
			s.metrics.RecordReminder()
		}

		if s.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.Pause):
			}
		}
	}

	if s.reminded.Len() > s.cfg.RemindedCap {
		s.logger.Info("clearing reminded set", zap.Int("size", s.reminded.Len()))
		s.reminded.Clear()
	}
	return nil
}

// Reminded exposes the reminded set for inspection.
func (s *ReminderScheduler) Reminded() *RemindedSet {
	return s.reminded
}
