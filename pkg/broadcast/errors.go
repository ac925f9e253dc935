package broadcast

import "errors"

var (
	// ErrClosed is returned when operations are attempted on a closed gateway.
	ErrClosed = errors.New("broadcast: gateway is closed")
	// ErrNoSubscribers is returned by Publish when the user has no live
	// subscription. Callers typically fall back to queued delivery.
	ErrNoSubscribers = errors.New("broadcast: no subscribers for user")
)
