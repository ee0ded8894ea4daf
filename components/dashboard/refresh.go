package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultSyncDelay is how long DelaySyncer pretends a fetch takes.
const DefaultSyncDelay = 2 * time.Second

// DelaySyncer is a Syncer that waits for Delay and reports success.
type DelaySyncer struct {
	Delay time.Duration
}

// Sync implements Syncer.
func (s DelaySyncer) Sync(ctx context.Context, _ DataSource) error {
	if s.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RefreshDataSource runs one sync of a data source. The syncing flag is set
// and persisted first; a second call while it is set returns
// ErrRefreshInProgress. On completion the status, timestamps and error message
// are updated, the flag cleared and an audit entry appended.
//
// A failed sync is reported through the data source status, not the returned
// error. The returned error covers lookup, overlap and persistence failures.
func (s *Service) RefreshDataSource(ctx context.Context, id string) (DataSource, error) {
	store, err := s.store()
	if err != nil {
		return DataSource{}, err
	}

	s.writeMu.Lock()
	s.mu.Lock()
	idx := s.state.sourceIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return DataSource{}, fmt.Errorf("%w: data source %s", ErrNotFound, id)
	}
	if s.state.sources[idx].Schedule.IsSyncing {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return DataSource{}, fmt.Errorf("%w: %s", ErrRefreshInProgress, id)
	}
	s.state.sources[idx].Schedule.IsSyncing = true
	syncing := s.state.sources[idx]
	s.mu.Unlock()

	err = store.SaveDataSource(ctx, syncing)
	if err != nil {
		s.setSyncing(id, false)
	}
	s.writeMu.Unlock()
	if err != nil {
		s.logger.Warn("mark syncing failed", zap.String("data_source_id", id), zap.Error(err))
		return DataSource{}, fmt.Errorf("%w: dashboard.source.refresh: %w", ErrPersistFailed, err)
	}
	s.publish(ctx, DashboardEvent{Reason: "source.syncing", WorkspaceID: syncing.WorkspaceID, DataSourceID: id})

	started := s.now()
	syncErr := s.opts.Syncer.Sync(ctx, syncing)
	finished := s.now()

	s.writeMu.Lock()
	s.mu.Lock()
	idx = s.state.sourceIndex(id)
	if idx < 0 {
		// workspace deleted while the fetch was running
		s.mu.Unlock()
		s.writeMu.Unlock()
		return DataSource{}, fmt.Errorf("%w: data source %s", ErrNotFound, id)
	}
	done := s.state.sources[idx]
	done.Schedule.IsSyncing = false
	if syncErr == nil {
		done.Status = StatusConnected
		done.LastErrorMessage = ""
		done.Schedule.LastSyncedAt = &finished
		done.Schedule = done.Schedule.Rescheduled(finished)
	} else {
		done.Status = StatusError
		done.LastErrorMessage = syncErr.Error()
	}
	s.state.sources[idx] = done
	s.mu.Unlock()
	// the local outcome stands even if the write fails so the source never
	// stays stuck in syncing
	persistErr := store.SaveDataSource(ctx, done)
	s.writeMu.Unlock()

	action, details := ActionRefreshSuccess, fmt.Sprintf("Refreshed source %q", done.Name)
	reason := "source.refreshed"
	if syncErr != nil {
		action, details = ActionRefreshFailed, fmt.Sprintf("Failed to refresh source %q", done.Name)
		reason = "source.refresh_failed"
		s.logger.Warn("data source refresh failed", zap.String("data_source_id", id), zap.Error(syncErr))
	} else {
		s.logger.Info("data source refreshed",
			zap.String("data_source_id", id),
			zap.Duration("took", finished.Sub(started)))
	}

	s.AddLog(ctx, action, details)
	payload := map[string]any{"data_source_id": id, "status": string(done.Status)}
	s.recordTelemetry(ctx, "dashboard.source.refresh", payload)
	event := DashboardEvent{Reason: reason, WorkspaceID: done.WorkspaceID, DataSourceID: id}
	if syncErr != nil {
		event.Error = syncErr.Error()
	}
	s.publish(ctx, event)

	if persistErr != nil {
		s.logger.Warn("persist refresh outcome failed", zap.String("data_source_id", id), zap.Error(persistErr))
		return done, fmt.Errorf("%w: dashboard.source.refresh: %w", ErrPersistFailed, persistErr)
	}
	return done, nil
}

// DueDataSources lists AUTO sources that are idle and whose next sync time
// has passed.
func (s *Service) DueDataSources(now time.Time) []DataSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []DataSource
	for _, ds := range s.state.sources {
		if ds.Schedule.Due(now) {
			due = append(due, ds)
		}
	}
	return due
}

func (s *Service) setSyncing(id string, syncing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.state.sourceIndex(id); idx >= 0 {
		s.state.sources[idx].Schedule.IsSyncing = syncing
	}
}
