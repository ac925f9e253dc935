package mongo

import "errors"

var (
	// ErrFailedToConnectToMongo means every dial attempt failed.
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	// ErrHealthcheckFailed wraps ping failures from the readiness probe.
	ErrHealthcheckFailed = errors.New("mongo healthcheck failed")
)
