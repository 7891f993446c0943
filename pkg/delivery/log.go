package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealerops/notifykit/pkg/notify"
)

// Log is the durable record of one (notification, user, channel) delivery
// attempt. Rows are append-mostly: status transitions mutate in place, and
// a retry reuses the same row rather than inserting a new one.
type Log struct {
	ID             uuid.UUID      `json:"id"`
	DealerID       int64          `json:"dealer_id"`
	NotificationID string         `json:"notification_id"`
	UserID         string         `json:"user_id"`
	Channel        notify.Channel `json:"channel"`
	Status         Status         `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	Provider          string `json:"provider,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`

	RetryCount   int            `json:"retry_count"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	LatencyMs    int64          `json:"latency_ms,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Validate reports whether the log row is well-formed enough to persist.
// Validation failures are permanent: the logger does not retry them.
func (l *Log) Validate() error {
	if l.NotificationID == "" {
		return ErrMissingNotificationID
	}
	if l.UserID == "" {
		return ErrMissingUserID
	}
	if l.DealerID <= 0 {
		return ErrMissingDealerID
	}
	if !l.Channel.Valid() {
		return ErrInvalidChannel
	}
	if l.Status != "" && !l.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// normalize fills defaults prior to insert.
func (l *Log) normalize(now time.Time) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = StatusPending
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
}

// stampFor returns a pointer to the timestamp field that corresponds to the
// status, or nil when the status carries no timestamp of its own.
func (l *Log) stampFor(status Status) **time.Time {
	switch status {
	case StatusSent:
		return &l.SentAt
	case StatusDelivered:
		return &l.DeliveredAt
	case StatusClicked:
		return &l.ClickedAt
	case StatusRead:
		return &l.ReadAt
	case StatusFailed:
		return &l.FailedAt
	}
	return nil
}

// ApplyTransition moves the row to the new status, stamping the matching
// timestamp when it is not already set, and merging the extra fields.
// A same-status call is a no-op on the timestamp, which keeps transition
// application idempotent.
func (l *Log) ApplyTransition(status Status, extra Extra, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(l.Status, status) {
		return ErrInvalidTransition
	}

	l.Status = status

	if stamp := l.stampFor(status); stamp != nil && *stamp == nil {
		at := now
		if extra.Timestamp != nil {
			at = *extra.Timestamp
		}
		*stamp = &at
	}

	if extra.Provider != "" {
		l.Provider = extra.Provider
	}
	if extra.ProviderMessageID != "" {
		l.ProviderMessageID = extra.ProviderMessageID
	}
	if extra.ErrorMessage != "" {
		l.ErrorMessage = extra.ErrorMessage
	}
	if extra.ErrorCode != "" {
		l.ErrorCode = extra.ErrorCode
	}
	if extra.LatencyMs != nil {
		l.LatencyMs = *extra.LatencyMs
	}
	if extra.IncrementRetry {
		l.RetryCount++
	}
	if extra.SetRetryCount != nil {
		l.RetryCount = *extra.SetRetryCount
	}

	return nil
}

// Extra carries optional fields for a status transition.
type Extra struct {
	// Timestamp overrides the stamp for the new status. When nil the
	// store's clock is used. Ignored when the stamp is already set.
	Timestamp         *time.Time
	Provider          string
	ProviderMessageID string
	ErrorMessage      string
	ErrorCode         string
	LatencyMs         *int64
	IncrementRetry    bool
	// SetRetryCount pins the retry count, overriding IncrementRetry. The
	// retry scheduler uses it to make permanent failures terminal.
	SetRetryCount *int
}
