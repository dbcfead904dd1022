package courier

import (
	"context"
)

// Courier defines the delivery interface consumed by the notification
// queue job and the admin surface. All methods are safe for concurrent
// use. *Client is the canonical implementation; the interface exists so
// collaborators can be tested against fakes.
type Courier interface {
	// Send delivers an email through the first configured provider in
	// the category's priority list. Failures are returned as data in
	// the result, never as panics.
	Send(ctx context.Context, params *SendParams, emailType EmailType) *SendResult

	// SendWithProvider bypasses selection and delivers through the
	// named provider, failing fast if it is unknown or unconfigured.
	SendWithProvider(ctx context.Context, params *SendParams, name ProviderName) *SendResult

	// BestProvider returns the healthiest available provider for a
	// category, honoring circuit breaker state.
	BestProvider(ctx context.Context, emailType EmailType) (ProviderName, error)

	// CheckHealth returns a provider's cached or fresh health snapshot.
	CheckHealth(ctx context.Context, name ProviderName, forceRefresh bool) *ProviderHealth

	// CheckAllHealth probes every provider concurrently.
	CheckAllHealth(ctx context.Context, forceRefresh bool) map[ProviderName]*ProviderHealth

	// Quota returns a provider's send-volume usage.
	Quota(ctx context.Context, name ProviderName) (*ProviderQuota, error)

	// Close releases the client. After Close, sends fail as data.
	Close() error
}

var _ Courier = (*Client)(nil)
