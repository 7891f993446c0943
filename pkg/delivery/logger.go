package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"

	"github.com/dealerops/notifykit/pkg/logger"
)

// DefaultBatchSize is the chunk size for bulk writes.
const DefaultBatchSize = 50

// Logger records delivery attempts. Logging is best-effort by contract: a
// write that keeps failing is dropped with a nil result rather than
// blocking or failing the send that produced it.
type Logger struct {
	store Store
	log   *slog.Logger

	baseDelay  time.Duration
	maxRetries uint64
	batchSize  int
	now        func() time.Time
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithLoggerLogger sets the slog logger for the delivery Logger.
func WithLoggerLogger(log *slog.Logger) LoggerOption {
	return func(l *Logger) {
		l.log = log
	}
}

// WithWriteBackoff sets the base delay of the write-retry backoff.
// Retries wait base, 2x base, 4x base. Mainly for tests.
func WithWriteBackoff(base time.Duration) LoggerOption {
	return func(l *Logger) {
		if base > 0 {
			l.baseDelay = base
		}
	}
}

// WithBatchSize overrides the bulk-write chunk size.
func WithBatchSize(n int) LoggerOption {
	return func(l *Logger) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithLoggerClock overrides the time source. Mainly for tests.
func WithLoggerClock(now func() time.Time) LoggerOption {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates a delivery logger over the given store.
func NewLogger(store Store, opts ...LoggerOption) *Logger {
	l := &Logger{
		store:      store,
		log:        slog.Default(),
		baseDelay:  time.Second,
		maxRetries: 3,
		batchSize:  DefaultBatchSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log persists one delivery attempt and returns its ID. Transient store
// failures are retried with exponential backoff (1s, 2s, 4s); permanent
// validation failures are not. Returns nil on exhaustion or validation
// failure — never an error, so callers cannot mistake a lost log line for
// a failed delivery.
func (l *Logger) Log(ctx context.Context, entry Log) *uuid.UUID {
	if err := entry.Validate(); err != nil {
		l.log.LogAttrs(ctx, slog.LevelError, "delivery log rejected",
			logger.NotificationID(entry.NotificationID),
			logger.UserID(entry.UserID),
			logger.Error(err),
		)
		return nil
	}

	entry.normalize(l.now())

	backoff := retry.WithMaxRetries(l.maxRetries, retry.NewExponential(l.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := l.store.Insert(ctx, &entry); err != nil {
			if IsPermanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		l.log.LogAttrs(ctx, slog.LevelError, "delivery log write failed, dropping entry",
			logger.NotificationID(entry.NotificationID),
			logger.UserID(entry.UserID),
			logger.Channel(string(entry.Channel)),
			logger.Error(err),
		)
		return nil
	}

	return &entry.ID
}

// BulkResult summarizes a bulk write.
type BulkResult struct {
	Inserted int
	Failed   int
	Errors   []error
}

// LogBulk writes entries in chunks of the configured batch size. Each chunk
// commits independently, so one bad chunk does not void rows already
// written by the others. Invalid entries are counted as failed without
// touching the store.
func (l *Logger) LogBulk(ctx context.Context, entries []Log) BulkResult {
	var result BulkResult

	valid := make([]*Log, 0, len(entries))
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		entries[i].normalize(l.now())
		valid = append(valid, &entries[i])
	}

	for _, chunk := range lo.Chunk(valid, l.batchSize) {
		if err := l.store.InsertBatch(ctx, chunk); err != nil {
			result.Failed += len(chunk)
			result.Errors = append(result.Errors, err)
			l.log.LogAttrs(ctx, slog.LevelError, "bulk delivery log batch failed",
				slog.Int("batch_size", len(chunk)),
				logger.Error(err),
			)
			continue
		}
		result.Inserted += len(chunk)
	}

	return result
}

// UpdateStatus transitions a delivery row, stamping the matching timestamp
// when not supplied explicitly.
func (l *Logger) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, extra Extra) error {
	return l.store.UpdateStatus(ctx, id, status, extra)
}

// UpdateStatusByProviderID transitions the row matching a provider message
// ID, for webhook-driven callbacks.
func (l *Logger) UpdateStatusByProviderID(ctx context.Context, providerMessageID string, status Status, extra Extra) error {
	return l.store.UpdateStatusByProviderID(ctx, providerMessageID, status, extra)
}

// GetFailedDeliveries is the query surface the retry scheduler uses.
func (l *Logger) GetFailedDeliveries(ctx context.Context, filter FailedFilter) ([]Log, error) {
	return l.store.ListFailed(ctx, filter)
}
