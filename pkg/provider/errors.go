package provider

import "errors"

var (
	// ErrPermanent marks recipient-specific failures that must not be
	// retried against the same provider. See Permanent.
	ErrPermanent = errors.New("provider: permanent delivery failure")

	// ErrCircuitOpen is returned when a provider is skipped because its
	// circuit breaker is open.
	ErrCircuitOpen = errors.New("provider: circuit breaker open")

	// ErrProviderPanic wraps a panic recovered at the manager boundary.
	ErrProviderPanic = errors.New("provider: send panicked")

	// ErrDuplicateProvider is returned when registering a name twice.
	ErrDuplicateProvider = errors.New("provider: name already registered")

	// ErrUnknownProvider is returned for operations on unregistered names.
	ErrUnknownProvider = errors.New("provider: unknown provider")

	// ErrNoEligibleProviders means filtering left no candidate to try.
	ErrNoEligibleProviders = errors.New("provider: no eligible providers")

	// ErrAllProvidersFailed means every eligible candidate was tried and
	// none delivered.
	ErrAllProvidersFailed = errors.New("provider: all providers failed")

	// ErrNoActiveConnection means the user has no live socket to deliver on.
	ErrNoActiveConnection = errors.New("provider: no active connection")

	// ErrNoDeviceTokens means the user has no registered push tokens.
	ErrNoDeviceTokens = errors.New("provider: no registered device tokens")

	// ErrNoEmailAddress means no deliverable address could be resolved for
	// the user.
	ErrNoEmailAddress = errors.New("provider: no email address for user")

	// ErrGatewayRejected wraps a push gateway's non-success response.
	ErrGatewayRejected = errors.New("provider: gateway rejected request")

	// ErrMissingCredentials is returned by constructors when required
	// gateway credentials are absent. Callers disable the provider instead
	// of failing the whole process.
	ErrMissingCredentials = errors.New("provider: missing credentials")
)
