package delivery

import "errors"

var (
	// ErrMissingNotificationID is returned when a log row has no notification reference.
	ErrMissingNotificationID = errors.New("delivery log requires a notification id")

	// ErrMissingUserID is returned when a log row has no recipient.
	ErrMissingUserID = errors.New("delivery log requires a user id")

	// ErrMissingDealerID is returned when a log row has no dealer scope.
	ErrMissingDealerID = errors.New("delivery log requires a dealer id")

	// ErrInvalidChannel is returned when the channel is not a supported medium.
	ErrInvalidChannel = errors.New("delivery log channel is not valid")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("delivery status is not valid")

	// ErrInvalidTransition is returned when a status change violates the
	// forward-only state machine.
	ErrInvalidTransition = errors.New("delivery status transition is not allowed")

	// ErrNotFound is returned when no log row matches the lookup.
	ErrNotFound = errors.New("delivery log not found")

	// ErrDuplicateInFlight is returned when a second in-flight row for the
	// same (notification, user, channel) would be created.
	ErrDuplicateInFlight = errors.New("an in-flight delivery already exists for this notification, user, and channel")
)

// IsPermanent reports whether a store error must not be retried by the
// logger's write-retry loop.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMissingNotificationID) ||
		errors.Is(err, ErrMissingUserID) ||
		errors.Is(err, ErrMissingDealerID) ||
		errors.Is(err, ErrInvalidChannel) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateInFlight)
}
