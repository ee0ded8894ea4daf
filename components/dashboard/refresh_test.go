package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateSyncer blocks every Sync until release is closed.
type gateSyncer struct {
	release chan struct{}
	err     error

	mu    sync.Mutex
	calls int
}

func newGateSyncer() *gateSyncer {
	return &gateSyncer{release: make(chan struct{})}
}

func (g *gateSyncer) Sync(ctx context.Context, _ DataSource) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	select {
	case <-g.release:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateSyncer) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type errSyncer struct{ err error }

func (s errSyncer) Sync(context.Context, DataSource) error { return s.err }

func autoSource(t *testing.T, f *fixture, interval SyncInterval) DataSource {
	t.Helper()
	ws := f.workspace(t)
	ds := addSampleSource(t, f, ws.ID)
	require.NoError(t, f.svc.UpdateDataSourceSchedule(context.Background(), UpdateScheduleRequest{
		DataSourceID: ds.ID, Mode: ScheduleAuto, Interval: interval,
	}))
	ds, err := f.svc.DataSource(ds.ID)
	require.NoError(t, err)
	return ds
}

func TestRefreshSuccessReschedules(t *testing.T) {
	f := newFixture(t, nil)
	ds := autoSource(t, f, Interval30m)

	got, err := f.svc.RefreshDataSource(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, got.Status)
	assert.False(t, got.Schedule.IsSyncing)
	require.NotNil(t, got.Schedule.LastSyncedAt)
	assert.Equal(t, fixedNow, *got.Schedule.LastSyncedAt)
	require.NotNil(t, got.Schedule.NextSyncAt)
	assert.Equal(t, fixedNow.Add(30*time.Minute), *got.Schedule.NextSyncAt)

	assert.Equal(t, ActionRefreshSuccess, f.svc.AuditLogs()[0].Action)
	assert.Equal(t, `Refreshed source "Demo"`, f.svc.AuditLogs()[0].Details)
	assert.Contains(t, f.hook.reasons(), "source.syncing")
	assert.Equal(t, "source.refreshed", f.hook.last().Reason)

	stored, _ := f.store.ListDataSources(context.Background())
	assert.False(t, stored[0].Schedule.IsSyncing)
	assert.Equal(t, StatusConnected, stored[0].Status)
}

func TestRefreshFailureRecordsErrorAndKeepsSchedule(t *testing.T) {
	f := newFixture(t, errSyncer{err: errors.New("connection refused")})
	ds := autoSource(t, f, Interval1h)
	before := *ds.Schedule.NextSyncAt

	got, err := f.svc.RefreshDataSource(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "connection refused", got.LastErrorMessage)
	assert.False(t, got.Schedule.IsSyncing)
	assert.Nil(t, got.Schedule.LastSyncedAt)
	assert.Equal(t, before, *got.Schedule.NextSyncAt)

	assert.Equal(t, ActionRefreshFailed, f.svc.AuditLogs()[0].Action)
	last := f.hook.last()
	assert.Equal(t, "source.refresh_failed", last.Reason)
	assert.Equal(t, "connection refused", last.Error)
}

func TestRefreshRejectsOverlap(t *testing.T) {
	gate := newGateSyncer()
	f := newFixture(t, gate)
	ds := autoSource(t, f, Interval15m)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.RefreshDataSource(context.Background(), ds.ID)
		done <- err
	}()

	require.Eventually(t, func() bool { return gate.count() == 1 }, time.Second, 5*time.Millisecond)
	current, _ := f.svc.DataSource(ds.ID)
	assert.True(t, current.Schedule.IsSyncing)
	assert.Empty(t, f.svc.DueDataSources(fixedNow.Add(time.Hour)))

	_, err := f.svc.RefreshDataSource(context.Background(), ds.ID)
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(gate.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gate.count())

	current, _ = f.svc.DataSource(ds.ID)
	assert.False(t, current.Schedule.IsSyncing)
}

func TestRefreshUnknownSource(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.RefreshDataSource(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshMarkSyncingPersistFailureClearsFlag(t *testing.T) {
	f := newFixture(t, nil)
	ds := autoSource(t, f, Interval15m)
	f.store.fail("SaveDataSource", errors.New("offline"))

	_, err := f.svc.RefreshDataSource(context.Background(), ds.ID)
	assert.ErrorIs(t, err, ErrPersistFailed)

	current, _ := f.svc.DataSource(ds.ID)
	assert.False(t, current.Schedule.IsSyncing)

	f.store.heal()
	_, err = f.svc.RefreshDataSource(context.Background(), ds.ID)
	assert.NoError(t, err)
}

func TestDueDataSources(t *testing.T) {
	f := newFixture(t, nil)
	ds := autoSource(t, f, Interval15m)
	addSampleSource(t, f, ds.WorkspaceID)

	assert.Empty(t, f.svc.DueDataSources(fixedNow.Add(10*time.Minute)))
	due := f.svc.DueDataSources(fixedNow.Add(15 * time.Minute))
	require.Len(t, due, 1)
	assert.Equal(t, ds.ID, due[0].ID)
}

func TestDelaySyncerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DelaySyncer{Delay: time.Minute}.Sync(ctx, DataSource{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, DelaySyncer{}.Sync(context.Background(), DataSource{}))
}

func TestSchedulerTickRefreshesDueSources(t *testing.T) {
	f := newFixture(t, nil)
	ds := autoSource(t, f, Interval15m)
	scheduler := NewScheduler(f.svc)

	assert.Empty(t, scheduler.Tick(context.Background(), fixedNow))

	ids := scheduler.Tick(context.Background(), fixedNow.Add(20*time.Minute))
	assert.Equal(t, []string{ds.ID}, ids)
	scheduler.Wait()

	got, _ := f.svc.DataSource(ds.ID)
	require.NotNil(t, got.Schedule.LastSyncedAt)
	assert.Equal(t, ActionRefreshSuccess, f.svc.AuditLogs()[0].Action)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	autoSource(t, f, Interval15m)
	scheduler := NewScheduler(f.svc,
		WithHeartbeat(5*time.Millisecond),
		WithSchedulerClock(func() time.Time { return fixedNow.Add(time.Hour) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		for _, log := range f.svc.AuditLogs() {
			if log.Action == ActionRefreshSuccess {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerStopLetsInFlightRefreshFinish(t *testing.T) {
	f := newFixture(t, DelaySyncer{Delay: 150 * time.Millisecond})
	ds := autoSource(t, f, Interval15m)
	scheduler := NewScheduler(f.svc,
		WithHeartbeat(5*time.Millisecond),
		WithSchedulerClock(func() time.Time { return fixedNow.Add(time.Hour) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		got, err := f.svc.DataSource(ds.ID)
		return err == nil && got.Schedule.IsSyncing
	}, time.Second, time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	got, err := f.svc.DataSource(ds.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, got.Status)
	assert.Empty(t, got.LastErrorMessage)
	assert.False(t, got.Schedule.IsSyncing)
	for _, log := range f.svc.AuditLogs() {
		assert.NotEqual(t, ActionRefreshFailed, log.Action)
	}
}
