package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dealerops/notifykit/pkg/notify"
	"github.com/dealerops/notifykit/pkg/throttle"
)

// FailedFilter narrows the failed-delivery query used by the retry
// scheduler.
type FailedFilter struct {
	// DealerID restricts to one dealer when non-zero.
	DealerID int64
	// Channel restricts to one channel when non-empty.
	Channel notify.Channel
	// MaxRetryCount excludes rows that already reached this many retries.
	MaxRetryCount int
	// FailedBefore excludes rows that failed after this time, when set.
	FailedBefore time.Time
	// Limit caps the result size; zero means no cap.
	Limit int
}

// Store is the persistence boundary for delivery logs. Implementations must
// keep status transitions forward-only and enforce at most one in-flight
// row per (notification, user, channel).
//
// Store also satisfies throttle.DeliveryCounter so production deployments
// rate-limit directly off the delivery history.
type Store interface {
	throttle.DeliveryCounter

	// Insert persists a new log row, filling ID, status, and CreatedAt
	// defaults. Returns ErrDuplicateInFlight when an in-flight row for
	// the same (notification, user, channel) already exists.
	Insert(ctx context.Context, log *Log) error

	// InsertBatch persists a batch of rows as one unit. A batch either
	// commits fully or not at all; chunking and isolation across batches
	// is the Logger's job.
	InsertBatch(ctx context.Context, logs []*Log) error

	// Get returns one row by ID, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Log, error)

	// UpdateStatus transitions a row, stamping the status timestamp when
	// it is not already set. Same-status calls are no-ops. Returns
	// ErrInvalidTransition for illegal moves and ErrNotFound for unknown
	// rows.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, extra Extra) error

	// UpdateStatusByProviderID is UpdateStatus keyed by the provider's
	// message ID, for webhook-driven status callbacks.
	UpdateStatusByProviderID(ctx context.Context, providerMessageID string, status Status, extra Extra) error

	// ListFailed returns failed rows matching the filter, oldest failure
	// first.
	ListFailed(ctx context.Context, filter FailedFilter) ([]Log, error)

	// ClaimForRetry atomically moves a failed row to processing. Returns
	// false when the row is no longer failed, which means another run
	// already claimed it.
	ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error)

	// DeleteOlderThan removes rows created before the cutoff, returning
	// how many were deleted. Retention is the only path that deletes
	// delivery history.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
