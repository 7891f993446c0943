package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerops/notifykit/pkg/logger"
)

// PriorityOverrideThreshold is the event priority at which quiet hours and
// rate limits no longer apply.
const PriorityOverrideThreshold = 90

// Default per-user delivery caps applied when a preference leaves them unset.
const (
	DefaultMaxPerHour = 10
	DefaultMaxPerDay  = 50
)

// Window selects the accounting period for delivery counting.
type Window int

const (
	// WindowHour counts deliveries in the trailing one hour.
	WindowHour Window = iota
	// WindowDay counts deliveries in the current calendar day.
	WindowDay
)

func (w Window) String() string {
	if w == WindowDay {
		return "day"
	}
	return "hour"
}

// Limits holds a user's delivery caps. Zero values fall back to the defaults.
type Limits struct {
	MaxPerHour int `json:"max_per_hour"`
	MaxPerDay  int `json:"max_per_day"`
}

func (l Limits) withDefaults() Limits {
	if l.MaxPerHour <= 0 {
		l.MaxPerHour = DefaultMaxPerHour
	}
	if l.MaxPerDay <= 0 {
		l.MaxPerDay = DefaultMaxPerDay
	}
	return l
}

// DeliveryCounter reports how many deliveries a user has already received.
// Implementations count sent and delivered outcomes only; failed attempts do
// not consume a user's budget.
type DeliveryCounter interface {
	CountDeliveries(ctx context.Context, userID string, dealerID int64, window Window, now time.Time) (int, error)
}

// Verdict is the outcome of a rate-limit check.
type Verdict struct {
	Allowed bool
	Reason  string
}

// RateLimiter enforces per-user hourly and daily delivery caps over a
// DeliveryCounter.
//
// The check is read-then-write: two concurrent sends for the same user can
// both observe one-below-cap and both proceed. This soft limit is accepted;
// exact enforcement would need a transactional counter.
type RateLimiter struct {
	counter DeliveryCounter
	log     *slog.Logger
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger for the RateLimiter.
func WithRateLimiterLogger(log *slog.Logger) RateLimiterOption {
	return func(r *RateLimiter) {
		r.log = log
	}
}

// NewRateLimiter creates a rate limiter over the given counter.
func NewRateLimiter(counter DeliveryCounter, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		counter: counter,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow checks the user's caps for one send cycle. A user at or over either
// cap is excluded for the cycle; there is no queued retry for rate-limit
// skips. Counter failures allow the send: availability over strictness is
// the documented policy, not an oversight.
func (r *RateLimiter) Allow(ctx context.Context, userID string, dealerID int64, limits Limits, priority int, now time.Time) Verdict {
	if priority >= PriorityOverrideThreshold {
		return Verdict{Allowed: true, Reason: "priority override"}
	}

	limits = limits.withDefaults()

	hourly, err := r.counter.CountDeliveries(ctx, userID, dealerID, WindowHour, now)
	if err != nil {
		r.log.LogAttrs(ctx, slog.LevelWarn, "rate limit count failed, allowing send",
			logger.UserID(userID),
			logger.DealerID(dealerID),
			logger.Error(err),
		)
		return Verdict{Allowed: true, Reason: "rate limit check unavailable"}
	}
	if hourly >= limits.MaxPerHour {
		return Verdict{
			Allowed: false,
			Reason:  fmt.Sprintf("hourly cap reached (%d/%d)", hourly, limits.MaxPerHour),
		}
	}

	daily, err := r.counter.CountDeliveries(ctx, userID, dealerID, WindowDay, now)
	if err != nil {
		r.log.LogAttrs(ctx, slog.LevelWarn, "rate limit count failed, allowing send",
			logger.UserID(userID),
			logger.DealerID(dealerID),
			logger.Error(err),
		)
		return Verdict{Allowed: true, Reason: "rate limit check unavailable"}
	}
	if daily >= limits.MaxPerDay {
		return Verdict{
			Allowed: false,
			Reason:  fmt.Sprintf("daily cap reached (%d/%d)", daily, limits.MaxPerDay),
		}
	}

	return Verdict{Allowed: true, Reason: "within limits"}
}
