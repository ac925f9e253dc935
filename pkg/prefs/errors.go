package prefs

import "errors"

var (
	ErrInvalidMethod    = errors.New("prefs: invalid delivery method")
	ErrInvalidQuietTime = errors.New("prefs: quiet hours must be HH:MM")
	ErrInvalidTimezone  = errors.New("prefs: unknown timezone")
	ErrInvalidCaps      = errors.New("prefs: frequency caps must not be negative")
	ErrInvalidInterval  = errors.New("prefs: invalid digest interval")
	ErrStorageFailure   = errors.New("prefs: storage operation failed")
)
