package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultHeartbeat is the scheduler polling period.
const DefaultHeartbeat = 30 * time.Second

// Refresher is the subset of Service the scheduler drives.
type Refresher interface {
	DueDataSources(now time.Time) []DataSource
	RefreshDataSource(ctx context.Context, id string) (DataSource, error)
}

// Scheduler polls for due AUTO data sources and refreshes them. Overlapping
// runs for the same source are suppressed by the syncing flag.
type Scheduler struct {
	refresher Refresher
	period    time.Duration
	clock     func() time.Time
	logger    *zap.Logger

	wg sync.WaitGroup
}

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithHeartbeat overrides the polling period.
func WithHeartbeat(period time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if period > 0 {
			s.period = period
		}
	}
}

// WithSchedulerClock overrides the time source.
func WithSchedulerClock(clock func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler builds a scheduler over refresher.
func NewScheduler(refresher Refresher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		refresher: refresher,
		period:    DefaultHeartbeat,
		clock:     time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	return s
}

// Run ticks until ctx is cancelled, then waits for in-flight refreshes.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Duration("period", s.period))
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			s.Wait()
			return
		case <-ticker.C:
			s.Tick(ctx, s.clock())
		}
	}
}

// Tick starts a refresh for every due source and returns their ids. The
// refreshes run in the background; use Wait to join them. A started refresh
// runs to completion even if ctx is cancelled.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	ctx = context.WithoutCancel(ctx)
	due := s.refresher.DueDataSources(now)
	ids := make([]string, 0, len(due))
	for _, ds := range due {
		ids = append(ids, ds.ID)
		s.logger.Info("auto-triggering refresh", zap.String("data_source_id", ds.ID), zap.String("name", ds.Name))
		s.wg.Add(1)
		go func(id string) {
			defer s.wg.Done()
			if _, err := s.refresher.RefreshDataSource(ctx, id); err != nil && !errors.Is(err, ErrRefreshInProgress) {
				s.logger.Warn("scheduled refresh failed", zap.String("data_source_id", id), zap.Error(err))
			}
		}(ds.ID)
	}
	return ids
}

// Wait blocks until every refresh started by Tick has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
