package notify

import "github.com/dealerops/notifykit/pkg/throttle"

// Preference holds a user's notification settings for one (user, dealer,
// module) scope. Absent entries default to enabled so that a user who never
// touched their settings still receives notifications.
type Preference struct {
	UserID   string `json:"user_id"`
	DealerID int64  `json:"dealer_id"`
	Module   Module `json:"module"`

	// Channels maps channel -> enabled. A channel missing from the map is
	// treated as enabled.
	Channels map[Channel]bool `json:"channels,omitempty"`

	// Events maps event name -> enabled. An event missing from the map is
	// treated as enabled.
	Events map[string]bool `json:"events,omitempty"`

	// StatusFilters optionally restricts status-change events to a subset
	// of statuses, keyed by event name. An event without an entry fires
	// for every status.
	StatusFilters map[string][]string `json:"status_filters,omitempty"`

	QuietHours throttle.QuietHours `json:"quiet_hours"`
	RateLimits throttle.Limits     `json:"rate_limits"`
}

// ChannelEnabled reports whether the user accepts the channel.
func (p *Preference) ChannelEnabled(ch Channel) bool {
	if p == nil || p.Channels == nil {
		return true
	}
	enabled, ok := p.Channels[ch]
	if !ok {
		return true
	}
	return enabled
}

// EventEnabled reports whether the user accepts the event type.
func (p *Preference) EventEnabled(event string) bool {
	if p == nil || p.Events == nil {
		return true
	}
	enabled, ok := p.Events[event]
	if !ok {
		return true
	}
	return enabled
}

// StatusAccepted reports whether a status-change event passes the user's
// per-event status sub-filter. Events without a configured filter, or
// without a status, always pass.
func (p *Preference) StatusAccepted(event Event) bool {
	if p == nil || p.StatusFilters == nil {
		return true
	}
	allowed, ok := p.StatusFilters[event.Event]
	if !ok || len(allowed) == 0 {
		return true
	}
	status, ok := event.Status()
	if !ok {
		// The filter is about statuses; an event without one is not a
		// status change and passes through.
		return true
	}
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}
