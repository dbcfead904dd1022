package courier

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the courier client.
type Option func(*Config)

// WithResend configures the Resend adapter with its API key.
func WithResend(apiKey string) Option {
	return func(c *Config) {
		c.Providers.Resend.Set("api_key", apiKey)
	}
}

// WithBrevo configures the Brevo adapter with its API key.
func WithBrevo(apiKey string) Option {
	return func(c *Config) {
		c.Providers.Brevo.Set("api_key", apiKey)
	}
}

// WithSES configures the AWS SES adapter with explicit credentials.
func WithSES(region, accessKey, secretKey string) Option {
	return func(c *Config) {
		c.Providers.SES.Set("region", region)
		c.Providers.SES.Set("access_key", accessKey)
		c.Providers.SES.Set("secret_key", secretKey)
	}
}

// WithMailerSend configures the MailerSend adapter with its API token.
func WithMailerSend(apiToken string) Option {
	return func(c *Config) {
		c.Providers.MailerSend.Set("api_token", apiToken)
	}
}

// WithDefaultFrom sets the sender identity applied when SendParams
// carries none.
func WithDefaultFrom(email, name string) Option {
	return func(c *Config) {
		c.DefaultFromEmail = email
		c.DefaultFromName = name
	}
}

// WithTimeout sets the per-request timeout for provider calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithBreaker configures the circuit breaker threshold and reset window.
func WithBreaker(failureThreshold int, resetWindow time.Duration) Option {
	return func(c *Config) {
		c.Breaker.FailureThreshold = failureThreshold
		c.Breaker.ResetWindow = resetWindow
	}
}

// WithHealthTTL sets how long health probe results are served from
// cache.
func WithHealthTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.HealthTTL = ttl
	}
}

// WithPriority overrides the provider preference for one message
// category.
func WithPriority(emailType EmailType, providers ...ProviderName) Option {
	return func(c *Config) {
		if c.Priority == nil {
			c.Priority = make(map[EmailType][]ProviderName)
		}
		c.Priority[emailType] = providers
	}
}

// WithLogger sets the logger for send outcomes, breaker transitions and
// swallowed metrics errors.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetricsRecorder sets the recorder that receives a SendRecord per
// delivery attempt, invoked fire-and-forget.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(c *Config) {
		c.Metrics = recorder
	}
}

// WithHTTPClient overrides the shared HTTP client used by all adapters.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}
