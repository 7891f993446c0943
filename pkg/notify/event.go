package notify

import (
	"time"

	"github.com/dealerops/notifykit/pkg/throttle"
)

// Channel represents a delivery medium.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// Valid reports whether the channel is one of the supported media.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// AllChannels lists every supported channel in a stable order.
func AllChannels() []Channel {
	return []Channel{ChannelSMS, ChannelEmail, ChannelPush, ChannelInApp}
}

// Module represents a functional area of the dealership platform that rules
// and preferences are scoped to.
type Module string

const (
	ModuleSalesOrders  Module = "sales_orders"
	ModuleEmployees    Module = "employees"
	ModuleInvoices     Module = "invoices"
	ModuleTimeTracking Module = "time_tracking"
)

// Priority bounds for events. Events at or above the throttle override
// threshold bypass quiet hours and rate limits.
const (
	PriorityMin     = 0
	PriorityMax     = 100
	PriorityDefault = 50

	PriorityOverrideThreshold = throttle.PriorityOverrideThreshold
)

// Event is the ephemeral description of a business event that may trigger
// notifications. Events are constructed per trigger and never persisted.
type Event struct {
	DealerID    int64          `json:"dealer_id"`
	Module      Module         `json:"module"`
	Event       string         `json:"event"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Data        map[string]any `json:"data,omitempty"`
	TriggeredBy string         `json:"triggered_by,omitempty"`
	Priority    int            `json:"priority"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// NewEvent constructs an event with the default priority and the current time.
func NewEvent(dealerID int64, module Module, event string) Event {
	return Event{
		DealerID:   dealerID,
		Module:     module,
		Event:      event,
		Priority:   PriorityDefault,
		OccurredAt: time.Now(),
	}
}

// Normalize clamps priority into [PriorityMin, PriorityMax], applying the
// default when unset, and stamps OccurredAt when zero.
func (e *Event) Normalize() {
	if e.Priority == 0 {
		e.Priority = PriorityDefault
	}
	if e.Priority < PriorityMin {
		e.Priority = PriorityMin
	}
	if e.Priority > PriorityMax {
		e.Priority = PriorityMax
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
}

// IsUrgent reports whether the event priority overrides quiet hours and
// rate limits.
func (e Event) IsUrgent() bool {
	return e.Priority >= PriorityOverrideThreshold
}

// Field returns a value from the event data bag.
func (e Event) Field(name string) (any, bool) {
	if e.Data == nil {
		return nil, false
	}
	v, ok := e.Data[name]
	return v, ok
}

// Status returns the "status" field of the event data, if present as a string.
// Status-change events carry the new status here.
func (e Event) Status() (string, bool) {
	v, ok := e.Field("status")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
