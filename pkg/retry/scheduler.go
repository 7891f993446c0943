package retry

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	backoff "github.com/sethvargo/go-retry"

	"github.com/dealerops/notifykit/pkg/delivery"
	"github.com/dealerops/notifykit/pkg/logger"
	"github.com/dealerops/notifykit/pkg/notify"
	"github.com/dealerops/notifykit/pkg/sender"
)

// Defaults for the retry sweep.
const (
	DefaultMaxRetries    = 3
	DefaultMaxPerRun     = 100
	DefaultCourtesyDelay = time.Second
	DefaultSendTimeout   = 5 * time.Second
	DefaultInterval      = time.Hour

	// DefaultWriteRetryBase seeds the backoff for status write-backs after a
	// dispatch. Writes retry at base, 2x, 4x before giving up.
	DefaultWriteRetryBase = 250 * time.Millisecond
)

// DefaultBackoff is the wait required before each retry attempt, indexed by
// the row's current retry count. The last entry is reused beyond the table
// length.
var DefaultBackoff = []time.Duration{time.Hour, 4 * time.Hour, 12 * time.Hour}

// ChannelStats counts retry outcomes for one channel within a run.
type ChannelStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Stats summarizes one retry run.
type Stats struct {
	StartedAt time.Time                        `json:"started_at"`
	Duration  time.Duration                    `json:"duration"`
	Scanned   int                              `json:"scanned"`
	Attempted int                              `json:"attempted"`
	Succeeded int                              `json:"succeeded"`
	Failed    int                              `json:"failed"`
	ByChannel map[notify.Channel]*ChannelStats `json:"by_channel"`
}

func (s *Stats) bump(ch notify.Channel, success bool) {
	cs, ok := s.ByChannel[ch]
	if !ok {
		cs = &ChannelStats{}
		s.ByChannel[ch] = cs
	}
	s.Attempted++
	cs.Attempted++
	if success {
		s.Succeeded++
		cs.Succeeded++
	} else {
		s.Failed++
		cs.Failed++
	}
}

// Scheduler sweeps failed deliveries and redispatches the eligible ones
// through the channel senders. A row must be claimed (moved to processing)
// before dispatch, so overlapping runs and overlapping instances cannot
// double-send; an in-process guard additionally rejects concurrent Run
// calls outright.
type Scheduler struct {
	store   delivery.Store
	senders *sender.Registry

	log            *slog.Logger
	backoff        []time.Duration
	maxRetries     int
	maxPerRun      int
	courtesyDelay  time.Duration
	sendTimeout    time.Duration
	interval       time.Duration
	writeRetryBase time.Duration
	now            func() time.Time

	running atomic.Bool
}

// NewScheduler creates a retry scheduler over the delivery store and
// sender registry.
func NewScheduler(store delivery.Store, senders *sender.Registry, opts ...SchedulerOption) (*Scheduler, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if senders == nil {
		return nil, ErrSendersNil
	}

	s := &Scheduler{
		store:          store,
		senders:        senders,
		log:            slog.Default(),
		backoff:        DefaultBackoff,
		maxRetries:     DefaultMaxRetries,
		maxPerRun:      DefaultMaxPerRun,
		courtesyDelay:  DefaultCourtesyDelay,
		sendTimeout:    DefaultSendTimeout,
		interval:       DefaultInterval,
		writeRetryBase: DefaultWriteRetryBase,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes one retry sweep and returns its statistics. It is the
// idempotent entrypoint a periodic job runner calls; a run that finds
// nothing eligible is a successful no-op. Returns ErrRunInProgress when a
// sweep is already running in this process.
func (s *Scheduler) Run(ctx context.Context) (Stats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Stats{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	now := s.now()
	stats := Stats{
		StartedAt: now,
		ByChannel: make(map[notify.Channel]*ChannelStats),
	}

	failed, err := s.store.ListFailed(ctx, delivery.FailedFilter{
		MaxRetryCount: s.maxRetries,
	})
	if err != nil {
		return stats, errors.Join(ErrFetchFailed, err)
	}
	stats.Scanned = len(failed)

	for i := range failed {
		if stats.Attempted >= s.maxPerRun {
			s.log.InfoContext(ctx, "retry run cap reached",
				slog.Int("max_per_run", s.maxPerRun))
			break
		}
		if ctx.Err() != nil {
			break
		}

		row := &failed[i]
		if !s.eligible(row, now) {
			continue
		}

		// Courtesy delay between items keeps the sweep from hammering
		// providers in a burst.
		if stats.Attempted > 0 {
			select {
			case <-ctx.Done():
				stats.Duration = s.now().Sub(now)
				return stats, ctx.Err()
			case <-time.After(s.courtesyDelay):
			}
		}

		claimed, err := s.store.ClaimForRetry(ctx, row.ID)
		if err != nil {
			s.log.LogAttrs(ctx, slog.LevelError, "failed to claim delivery for retry",
				logger.DeliveryID(row.ID),
				logger.Error(err),
			)
			continue
		}
		if !claimed {
			// Another run got there first.
			continue
		}

		stats.bump(row.Channel, s.retryOne(ctx, row))
	}

	stats.Duration = s.now().Sub(now)
	s.log.InfoContext(ctx, "retry run complete",
		slog.Int("scanned", stats.Scanned),
		slog.Int("attempted", stats.Attempted),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// eligible applies the backoff table: a row with retryCount n must have
// been failed for at least backoff[n] (last entry reused past the end).
func (s *Scheduler) eligible(row *delivery.Log, now time.Time) bool {
	if row.RetryCount >= s.maxRetries {
		return false
	}
	if row.FailedAt == nil {
		return false
	}
	idx := row.RetryCount
	if idx >= len(s.backoff) {
		idx = len(s.backoff) - 1
	}
	return now.Sub(*row.FailedAt) >= s.backoff[idx]
}

// retryOne dispatches a claimed row to its channel sender and records the
// outcome. Returns true on success.
func (s *Scheduler) retryOne(ctx context.Context, row *delivery.Log) bool {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	started := s.now()
	result, err := s.senders.Send(sendCtx, buildRequest(row))
	latency := s.now().Sub(started).Milliseconds()

	switch {
	case err == nil && result.Success:
		s.markSent(ctx, row, result, latency)
		return true
	case errors.Is(err, sender.ErrNoSender):
		// No transport means no retry will ever succeed.
		s.markTerminal(ctx, row, err.Error())
		return false
	case err == nil:
		// Provider rejected the message outright: permanent.
		s.markTerminal(ctx, row, result.Err)
		return false
	default:
		// Transient failure, including sender timeouts.
		s.markFailed(ctx, row, err.Error())
		return false
	}
}

// writeStatus writes a post-dispatch status with a bounded retry, so one
// transient store error does not strand a claimed row in processing.
func (s *Scheduler) writeStatus(ctx context.Context, row *delivery.Log, status delivery.Status, extra delivery.Extra) error {
	b := backoff.WithMaxRetries(2, backoff.NewExponential(s.writeRetryBase))
	return backoff.Do(ctx, b, func(ctx context.Context) error {
		if err := s.store.UpdateStatus(ctx, row.ID, status, extra); err != nil {
			if delivery.IsPermanent(err) {
				return err
			}
			return backoff.RetryableError(err)
		}
		return nil
	})
}

func (s *Scheduler) markSent(ctx context.Context, row *delivery.Log, result sender.Result, latencyMs int64) {
	err := s.writeStatus(ctx, row, delivery.StatusSent, delivery.Extra{
		ProviderMessageID: result.ProviderMessageID,
		LatencyMs:         &latencyMs,
	})
	if err != nil {
		// The provider accepted the message, so the claim is deliberately
		// not reverted to failed: a stranded row beats a double send.
		s.log.LogAttrs(ctx, slog.LevelError, "failed to mark retried delivery sent",
			logger.DeliveryID(row.ID),
			logger.Error(err),
		)
		return
	}
	s.log.LogAttrs(ctx, slog.LevelInfo, "delivery retried successfully",
		logger.DeliveryID(row.ID),
		logger.UserID(row.UserID),
		logger.Channel(string(row.Channel)),
		logger.RetryCount(row.RetryCount),
	)
}

func (s *Scheduler) markFailed(ctx context.Context, row *delivery.Log, errMsg string) {
	// Writing failed is also what releases the processing claim, so the
	// retried write doubles as the claim revert.
	err := s.writeStatus(ctx, row, delivery.StatusFailed, delivery.Extra{
		ErrorMessage:   errMsg,
		IncrementRetry: true,
	})
	if err != nil {
		s.log.LogAttrs(ctx, slog.LevelError, "failed to mark retried delivery failed",
			logger.DeliveryID(row.ID),
			logger.Error(err),
		)
		return
	}
	if row.RetryCount+1 >= s.maxRetries {
		s.log.LogAttrs(ctx, slog.LevelWarn, "delivery exhausted retry budget",
			logger.DeliveryID(row.ID),
			logger.UserID(row.UserID),
			logger.Channel(string(row.Channel)),
			logger.RetryCount(row.RetryCount+1),
		)
	}
}

// markTerminal marks a permanent failure: the row goes to failed with its
// retry count pinned at the budget so no future sweep picks it up.
func (s *Scheduler) markTerminal(ctx context.Context, row *delivery.Log, errMsg string) {
	terminal := s.maxRetries
	err := s.writeStatus(ctx, row, delivery.StatusFailed, delivery.Extra{
		ErrorMessage:  errMsg,
		SetRetryCount: &terminal,
	})
	if err != nil {
		s.log.LogAttrs(ctx, slog.LevelError, "failed to mark delivery terminally failed",
			logger.DeliveryID(row.ID),
			logger.Error(err),
		)
	}
}

// buildRequest reconstructs the send order from the row. The primary send
// path snapshots the rendered title and body into the log metadata exactly
// so retries can resend without re-rendering.
func buildRequest(row *delivery.Log) sender.Request {
	req := sender.Request{
		NotificationID: row.NotificationID,
		UserID:         row.UserID,
		DealerID:       row.DealerID,
		Channel:        row.Channel,
		Metadata:       row.Metadata,
	}
	if title, ok := row.Metadata["title"].(string); ok {
		req.Title = title
	}
	if body, ok := row.Metadata["body"].(string); ok {
		req.Body = body
	}
	return req
}

// Start runs periodic sweeps until the context is canceled. The first
// sweep runs after one full interval; deployments that want an immediate
// sweep call Run first.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.InfoContext(ctx, "retry scheduler started",
		slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "retry scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.log.LogAttrs(ctx, slog.LevelError, "retry run failed",
					logger.Error(err),
				)
			}
		}
	}
}
