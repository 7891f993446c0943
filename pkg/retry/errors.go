package retry

import "errors"

var (
	// ErrStoreNil is returned when a nil delivery store is provided.
	ErrStoreNil = errors.New("delivery store cannot be nil")

	// ErrSendersNil is returned when a nil sender registry is provided.
	ErrSendersNil = errors.New("sender registry cannot be nil")

	// ErrRunInProgress is returned when a sweep is already running in this
	// process.
	ErrRunInProgress = errors.New("retry run already in progress")

	// ErrFetchFailed is returned when the failed-delivery query errors.
	ErrFetchFailed = errors.New("failed to fetch failed deliveries")
)
