package courier

import "errors"

// Predefined sentinel errors for common cases.
var (
	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrUnknownProvider indicates a provider name outside the closed
	// set of supported adapters.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderNotConfigured indicates the named provider has no
	// credentials.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrNoProviderAvailable indicates no configured, healthy,
	// breaker-available provider exists for a category.
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrInvalidConfiguration indicates invalid configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
