package dashboard

import (
	"errors"
	"time"
)

var (
	ErrInvalidInterval = errors.New("dashboard: auto schedule requires a valid interval")
	ErrInvalidSchedule = errors.New("dashboard: schedule mode must be MANUAL or AUTO")
)

// Valid reports whether i is a supported refresh cadence.
func (i SyncInterval) Valid() bool {
	switch i {
	case Interval15m, Interval30m, Interval1h, IntervalMidnight:
		return true
	}
	return false
}

// NextSyncAt computes the next refresh instant for interval relative to now.
// midnight resolves to the start of the next calendar day in now's location.
func NextSyncAt(interval SyncInterval, now time.Time) (time.Time, bool) {
	switch interval {
	case Interval15m:
		return now.Add(15 * time.Minute), true
	case Interval30m:
		return now.Add(30 * time.Minute), true
	case Interval1h:
		return now.Add(time.Hour), true
	case IntervalMidnight:
		return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()), true
	}
	return time.Time{}, false
}

// Validate checks the mode/interval combination.
func (s Schedule) Validate() error {
	switch s.Mode {
	case ScheduleManual:
		return nil
	case ScheduleAuto:
		if !s.Interval.Valid() {
			return ErrInvalidInterval
		}
		return nil
	}
	return ErrInvalidSchedule
}

// Rescheduled returns a copy of s with NextSyncAt recomputed from now: set
// for AUTO schedules and cleared otherwise.
func (s Schedule) Rescheduled(now time.Time) Schedule {
	s.NextSyncAt = nil
	if s.Mode != ScheduleAuto {
		return s
	}
	if next, ok := NextSyncAt(s.Interval, now); ok {
		s.NextSyncAt = &next
	}
	return s
}

// Due reports whether the scheduler should refresh now.
func (s Schedule) Due(now time.Time) bool {
	if s.Mode != ScheduleAuto || s.IsSyncing || s.NextSyncAt == nil {
		return false
	}
	return !s.NextSyncAt.After(now)
}
