package async

import "errors"

var (
	// ErrTimeout is returned by AwaitWithTimeout when the future does not
	// complete in time.
	ErrTimeout = errors.New("async: await timed out")
)
