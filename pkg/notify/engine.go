package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerops/notifykit/pkg/async"
	"github.com/dealerops/notifykit/pkg/logger"
	"github.com/dealerops/notifykit/pkg/throttle"
)

// Recipient is one user's slice of a delivery plan: the channels that
// survived filtering and when each of them may be sent.
type Recipient struct {
	UserID string `json:"user_id"`
	// Channels lists surviving channels in stable order.
	Channels []Channel `json:"channels"`
	// Schedule holds the per-channel send time. Channels deferred by quiet
	// hours are scheduled at the window end; the rest at decision time.
	Schedule map[Channel]time.Time `json:"schedule"`
	// ScheduledFor is the earliest send time across the channels.
	ScheduledFor time.Time `json:"scheduled_for"`
	Priority     int       `json:"priority"`
}

// Decision is the engine's delivery plan for one event.
type Decision struct {
	ShouldSend bool        `json:"should_send"`
	Recipients []Recipient `json:"recipients"`
	// Reasoning is a human-readable trail of every filtering step, kept
	// in deterministic order for auditability.
	Reasoning []string `json:"reasoning"`
}

// Engine combines rule matching, recipient resolution, preference
// filtering, quiet hours, and rate limiting into a per-event delivery plan.
// All collaborators are injected; the engine holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	rules    RuleRepository
	prefs    PreferenceRepository
	limiter  *throttle.RateLimiter
	matcher  *Matcher
	resolver *Resolver

	log              *slog.Logger
	now              func() time.Time
	fallbackChannels []Channel
	prefTimeout      time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for the Engine.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// WithClock overrides the engine's time source. Used by tests and by
// callers that replay historical events.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithFallbackChannels sets the channels used when no dealer rule matches
// and the followers fallback policy selects the recipients. Defaults to
// in-app only, the least intrusive medium.
func WithFallbackChannels(channels ...Channel) EngineOption {
	return func(e *Engine) {
		if len(channels) > 0 {
			e.fallbackChannels = channels
		}
	}
}

// WithPreferenceTimeout bounds each preference lookup during the parallel
// fan-out. A lookup that times out fails closed for that user.
func WithPreferenceTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.prefTimeout = d
		}
	}
}

// NewEngine creates a decision engine over read-only rule and preference
// repositories and a rate limiter. A nil limiter falls back to one over an
// empty in-memory counter, which never blocks a send.
func NewEngine(rules RuleRepository, prefs PreferenceRepository, limiter *throttle.RateLimiter, opts ...EngineOption) *Engine {
	if limiter == nil {
		limiter = throttle.NewRateLimiter(throttle.NewMemoryCounter())
	}
	e := &Engine{
		rules:            rules,
		prefs:            prefs,
		limiter:          limiter,
		matcher:          NewMatcher(),
		resolver:         NewResolver(),
		log:              slog.Default(),
		now:              time.Now,
		fallbackChannels: []Channel{ChannelInApp},
		prefTimeout:      3 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide produces the delivery plan for an event over the supplied
// candidate set. "Nobody to notify" is a normal outcome
// (ShouldSend=false), never an error; configuration and lookup failures
// fail closed per user and are reported in the reasoning trail.
func (e *Engine) Decide(ctx context.Context, event Event, candidates []Candidate) Decision {
	event.Normalize()
	now := e.now()

	decision := Decision{}
	reason := func(format string, args ...any) {
		decision.Reasoning = append(decision.Reasoning, fmt.Sprintf(format, args...))
	}

	rule, channels := e.matchRule(ctx, event, reason)

	userIDs := e.resolver.Resolve(rule, event.TriggeredBy, candidates)
	if len(userIDs) == 0 {
		reason("no recipients after resolution")
		return decision
	}
	reason("resolved %d candidate recipient(s)", len(userIDs))

	prefs, errs := e.fetchPreferences(ctx, event, userIDs)

	// Filtering runs single-threaded in resolver order so the reasoning
	// trail is stable regardless of preference fetch completion order.
	for i, userID := range userIDs {
		if errs[i] != nil {
			reason("user %s: preferences unavailable, skipped", userID)
			e.log.LogAttrs(ctx, slog.LevelWarn, "preference lookup failed, skipping recipient",
				logger.UserID(userID),
				logger.DealerID(event.DealerID),
				logger.Error(errs[i]),
			)
			continue
		}

		recipient, ok := e.planUser(ctx, event, userID, prefs[i], channels, now, reason)
		if ok {
			decision.Recipients = append(decision.Recipients, recipient)
		}
	}

	decision.ShouldSend = len(decision.Recipients) > 0
	if !decision.ShouldSend {
		reason("no recipients survived filtering")
	}
	return decision
}

// matchRule finds the governing rule and the channel set to plan with.
// A failed rule fetch degrades to the fallback policy rather than erroring
// the event.
func (e *Engine) matchRule(ctx context.Context, event Event, reason func(string, ...any)) (*Rule, []Channel) {
	rules, err := e.rules.RulesFor(ctx, event.DealerID, event.Module, event.Event)
	if err != nil {
		reason("rule lookup failed, using fallback policy")
		e.log.LogAttrs(ctx, slog.LevelWarn, "rule lookup failed",
			logger.DealerID(event.DealerID),
			logger.Module(string(event.Module)),
			logger.Event(event.Event),
			logger.Error(err),
		)
		return nil, e.fallbackChannels
	}

	rule, matched := e.matcher.Match(rules, event)
	if !matched {
		reason("no dealer rule matched, using followers fallback policy")
		return nil, e.fallbackChannels
	}

	channels := validChannels(rule.Channels)
	if len(channels) == 0 {
		reason("rule %d matched but configures no valid channels, using fallback channels", rule.ID)
		channels = e.fallbackChannels
	} else {
		reason("rule %d matched (priority %d, channels %v)", rule.ID, rule.Priority, channels)
	}
	return rule, channels
}

// fetchPreferences fans out per-user preference lookups; results and errors
// are positionally aligned with userIDs.
func (e *Engine) fetchPreferences(ctx context.Context, event Event, userIDs []string) ([]*Preference, []error) {
	ctx, cancel := context.WithTimeout(ctx, e.prefTimeout)
	defer cancel()

	futures := make([]*async.Future[*Preference], len(userIDs))
	for i, userID := range userIDs {
		futures[i] = async.Async(ctx, userID, func(ctx context.Context, id string) (*Preference, error) {
			return e.prefs.PreferenceFor(ctx, id, event.DealerID, event.Module)
		})
	}
	return async.WaitAllSettled(futures...)
}

// planUser applies the per-user filters and produces the recipient plan.
func (e *Engine) planUser(ctx context.Context, event Event, userID string, pref *Preference, channels []Channel, now time.Time, reason func(string, ...any)) (Recipient, bool) {
	if !pref.EventEnabled(event.Event) {
		reason("user %s: event %q disabled by preference", userID, event.Event)
		return Recipient{}, false
	}
	if !pref.StatusAccepted(event) {
		status, _ := event.Status()
		reason("user %s: status %q filtered by preference", userID, status)
		return Recipient{}, false
	}

	recipient := Recipient{
		UserID:   userID,
		Schedule: make(map[Channel]time.Time, len(channels)),
		Priority: event.Priority,
	}

	for _, ch := range channels {
		if !pref.ChannelEnabled(ch) {
			reason("user %s: channel %s disabled by preference", userID, ch)
			continue
		}

		sendAt := now
		// In-app notifications land in a tray, not on a sleeping phone;
		// quiet hours only defer the interruptive channels.
		if ch != ChannelInApp && pref != nil {
			deferred, until, err := pref.QuietHours.Evaluate(now, event.Priority)
			if err != nil {
				reason("user %s: quiet hours misconfigured, sending immediately", userID)
				e.log.LogAttrs(ctx, slog.LevelWarn, "quiet hours evaluation failed",
					logger.UserID(userID),
					logger.Error(err),
				)
			} else if deferred {
				reason("user %s: channel %s deferred to %s by quiet hours", userID, ch, until.Format(time.RFC3339))
				sendAt = until
			}
		}

		recipient.Channels = append(recipient.Channels, ch)
		recipient.Schedule[ch] = sendAt
	}

	if len(recipient.Channels) == 0 {
		reason("user %s: no channels survived, dropped", userID)
		return Recipient{}, false
	}

	verdict := e.limiter.Allow(ctx, userID, event.DealerID, rateLimits(pref), event.Priority, now)
	if !verdict.Allowed {
		// Hard exclusion for the cycle; rate-limit skips are not queued
		// for retry.
		reason("user %s: rate limited (%s)", userID, verdict.Reason)
		return Recipient{}, false
	}

	recipient.ScheduledFor = earliest(recipient.Schedule)
	return recipient, true
}

func rateLimits(pref *Preference) throttle.Limits {
	if pref == nil {
		return throttle.Limits{}
	}
	return pref.RateLimits
}

func validChannels(channels []Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Valid() {
			out = append(out, ch)
		}
	}
	return out
}

func earliest(schedule map[Channel]time.Time) time.Time {
	var min time.Time
	for _, t := range schedule {
		if min.IsZero() || t.Before(min) {
			min = t
		}
	}
	return min
}
