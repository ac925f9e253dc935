package presence

import "errors"

var (
	ErrUnavailable = errors.New("presence: tracker unavailable")
	ErrInvalidKind = errors.New("presence: invalid connection kind")
)
