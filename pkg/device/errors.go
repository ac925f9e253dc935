package device

import "errors"

var (
	ErrTokenNotFound   = errors.New("device: token not found")
	ErrEmptyToken      = errors.New("device: token must not be empty")
	ErrInvalidPlatform = errors.New("device: invalid platform")
	ErrStorageFailure  = errors.New("device: storage operation failed")
)
