package retry

import (
	"log/slog"
	"time"
)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger for the Scheduler.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBackoffTable replaces the backoff table. The last entry is reused for
// retry counts beyond the table length.
func WithBackoffTable(table []time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if len(table) > 0 {
			s.backoff = table
		}
	}
}

// WithMaxRetries sets the retry budget per delivery.
func WithMaxRetries(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithMaxPerRun caps how many retries a single run dispatches.
func WithMaxPerRun(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxPerRun = n
		}
	}
}

// WithCourtesyDelay sets the pause between dispatched items within a run.
func WithCourtesyDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.courtesyDelay = d
		}
	}
}

// WithSendTimeout bounds each channel sender call. A timeout counts as a
// transient failure.
func WithSendTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithInterval sets the period between sweeps for Start.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStatusWriteBackoff sets the base delay for post-dispatch status
// write retries. Mainly for tests.
func WithStatusWriteBackoff(base time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if base > 0 {
			s.writeRetryBase = base
		}
	}
}

// WithSchedulerClock overrides the time source. Mainly for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}
