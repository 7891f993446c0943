package delivery

// Status is the lifecycle state of one delivery attempt.
type Status string

const (
	// StatusPending is the initial state before the channel sender runs.
	StatusPending Status = "pending"
	// StatusProcessing marks a failed row claimed by a retry run. The claim
	// prevents overlapping scheduler runs from double-sending.
	StatusProcessing Status = "processing"
	// StatusSent means the provider accepted the message.
	StatusSent Status = "sent"
	// StatusDelivered means the provider confirmed delivery.
	StatusDelivered Status = "delivered"
	// StatusClicked means the user interacted with the message.
	StatusClicked Status = "clicked"
	// StatusRead means the user read the message.
	StatusRead Status = "read"
	// StatusFailed means the attempt failed; retryable until the retry
	// budget is exhausted, then terminal.
	StatusFailed Status = "failed"
	// StatusBounced is terminal, email-specific.
	StatusBounced Status = "bounced"
	// StatusUnsubscribed is terminal and suppresses further sends on the
	// channel for the user.
	StatusUnsubscribed Status = "unsubscribed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusDelivered,
		StatusClicked, StatusRead, StatusFailed, StatusBounced, StatusUnsubscribed:
		return true
	}
	return false
}

// transitions is the forward-only state machine. The only way back from
// failed is the retry path through processing.
var transitions = map[Status][]Status{
	StatusPending:    {StatusSent, StatusFailed, StatusUnsubscribed},
	StatusProcessing: {StatusSent, StatusFailed, StatusUnsubscribed},
	StatusSent:       {StatusDelivered, StatusFailed, StatusBounced, StatusUnsubscribed},
	StatusDelivered:  {StatusClicked, StatusRead, StatusUnsubscribed},
	StatusClicked:    {StatusUnsubscribed},
	StatusRead:       {StatusUnsubscribed},
	StatusFailed:     {StatusProcessing, StatusUnsubscribed},
}

// CanTransition reports whether moving from one status to another is legal.
// Same-state transitions are allowed and treated as idempotent no-ops by
// the store.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from the
// status. Failed is terminal only once the retry budget is exhausted;
// that decision belongs to the retry scheduler, not the table.
func (s Status) IsTerminal() bool {
	return s == StatusBounced || s == StatusUnsubscribed
}

// InFlight reports whether the status still occupies the one allowed
// in-flight slot per (notification, user, channel).
func (s Status) InFlight() bool {
	switch s {
	case StatusPending, StatusProcessing:
		return true
	}
	return false
}
