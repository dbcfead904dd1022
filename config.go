package courier

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the complete courier configuration.
type Config struct {
	// Providers contains per-vendor settings (credentials, endpoint
	// overrides, static quota limits).
	Providers ProvidersConfig

	// Priority maps each message category to its ordered provider
	// preference. Categories absent from the map fall back to
	// DefaultPriority. The list expresses preference, not hard
	// dependency.
	Priority map[EmailType][]ProviderName

	// DefaultPriority is the provider order used for unmapped
	// categories.
	DefaultPriority []ProviderName

	// DefaultFromEmail is applied when SendParams carries no sender.
	DefaultFromEmail string

	// DefaultFromName is applied when SendParams carries no sender name.
	DefaultFromName string

	// Timeout bounds every outbound provider call.
	Timeout time.Duration

	// Breaker contains circuit breaker configuration.
	Breaker BreakerConfig

	// HealthTTL bounds how long a health probe result is served from
	// cache.
	HealthTTL time.Duration

	// MaxConnsPerHost limits connections per vendor host.
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection stays open.
	IdleConnTimeout time.Duration

	// Logger receives send outcomes, breaker transitions and swallowed
	// metrics errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics, when set, receives a SendRecord per delivery attempt on a
	// detached goroutine.
	Metrics MetricsRecorder

	// HTTPClient overrides the shared HTTP client. Mainly for tests.
	HTTPClient *http.Client
}

// ProvidersConfig contains one settings map per vendor adapter.
type ProvidersConfig struct {
	Resend     ProviderSettings
	Brevo      ProviderSettings
	SES        ProviderSettings
	MailerSend ProviderSettings
}

// DefaultPriorityTable returns the static category preference table of
// the marketplace. Auth and chat mail favor the lowest-latency vendor;
// bulk categories lean on the high-quota ones.
func DefaultPriorityTable() map[EmailType][]ProviderName {
	return map[EmailType][]ProviderName{
		EmailTypeAuth:       {ProviderResend, ProviderBrevo, ProviderMailerSend},
		EmailTypeWelcome:    {ProviderBrevo, ProviderResend, ProviderMailerSend},
		EmailTypeBooking:    {ProviderResend, ProviderBrevo, ProviderSES},
		EmailTypeChat:       {ProviderResend, ProviderMailerSend, ProviderBrevo},
		EmailTypeReminder:   {ProviderBrevo, ProviderMailerSend, ProviderSES},
		EmailTypeNewsletter: {ProviderBrevo, ProviderSES, ProviderMailerSend},
		EmailTypeDigest:     {ProviderSES, ProviderBrevo, ProviderMailerSend},
		EmailTypeAdmin:      {ProviderResend, ProviderSES},
		EmailTypeSystem:     {ProviderResend, ProviderBrevo, ProviderSES, ProviderMailerSend},
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Providers: ProvidersConfig{
			Resend:     ProviderSettings{},
			Brevo:      ProviderSettings{},
			SES:        ProviderSettings{},
			MailerSend: ProviderSettings{},
		},
		Priority:        DefaultPriorityTable(),
		DefaultPriority: []ProviderName{ProviderResend, ProviderBrevo, ProviderSES, ProviderMailerSend},
		Timeout:         10 * time.Second,
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetWindow:      60 * time.Second,
		},
		HealthTTL:       60 * time.Second,
		MaxConnsPerHost: 10,
		IdleConnTimeout: 90 * time.Second,
	}
}

// knownProviders is the closed set of adapter names.
var knownProviders = map[ProviderName]bool{
	ProviderResend:     true,
	ProviderBrevo:      true,
	ProviderSES:        true,
	ProviderMailerSend: true,
}

// Validate checks if the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be greater than 0", ErrInvalidConfiguration)
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("%w: breaker failure threshold must be at least 1", ErrInvalidConfiguration)
	}
	if c.Breaker.ResetWindow <= 0 {
		return fmt.Errorf("%w: breaker reset window must be greater than 0", ErrInvalidConfiguration)
	}
	if c.HealthTTL <= 0 {
		return fmt.Errorf("%w: health cache TTL must be greater than 0", ErrInvalidConfiguration)
	}
	if len(c.DefaultPriority) == 0 {
		return fmt.Errorf("%w: default priority list must not be empty", ErrInvalidConfiguration)
	}
	for _, name := range c.DefaultPriority {
		if !knownProviders[name] {
			return fmt.Errorf("%w: unknown provider %q in default priority list", ErrInvalidConfiguration, name)
		}
	}
	for emailType, list := range c.Priority {
		if len(list) == 0 {
			return fmt.Errorf("%w: empty priority list for category %q", ErrInvalidConfiguration, emailType)
		}
		for _, name := range list {
			if !knownProviders[name] {
				return fmt.Errorf("%w: unknown provider %q in priority list for %q", ErrInvalidConfiguration, name, emailType)
			}
		}
	}
	return nil
}

// ConfigFromEnv loads configuration from COURIER_* environment
// variables on top of the defaults, e.g. COURIER_RESEND_API_KEY,
// COURIER_SES_REGION, COURIER_FROM_EMAIL, COURIER_TIMEOUT.
func ConfigFromEnv() Config {
	v := viper.New()
	setEnvDefaults(v)
	v.SetEnvPrefix("COURIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	cfg.DefaultFromEmail = v.GetString("from.email")
	cfg.DefaultFromName = v.GetString("from.name")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.Breaker.FailureThreshold = v.GetInt("breaker.failure_threshold")
	cfg.Breaker.ResetWindow = v.GetDuration("breaker.reset_window")
	cfg.HealthTTL = v.GetDuration("health.ttl")

	cfg.Providers.Resend = ProviderSettings{
		"api_key":       v.GetString("resend.api_key"),
		"daily_limit":   v.GetString("resend.daily_limit"),
		"monthly_limit": v.GetString("resend.monthly_limit"),
	}
	cfg.Providers.Brevo = ProviderSettings{
		"api_key":     v.GetString("brevo.api_key"),
		"daily_limit": v.GetString("brevo.daily_limit"),
	}
	cfg.Providers.SES = ProviderSettings{
		"access_key":    v.GetString("ses.access_key"),
		"secret_key":    v.GetString("ses.secret_key"),
		"session_token": v.GetString("ses.session_token"),
		"region":        v.GetString("ses.region"),
		"daily_limit":   v.GetString("ses.daily_limit"),
	}
	cfg.Providers.MailerSend = ProviderSettings{
		"api_token":   v.GetString("mailersend.api_token"),
		"daily_limit": v.GetString("mailersend.daily_limit"),
	}
	return cfg
}

func setEnvDefaults(v *viper.Viper) {
	v.SetDefault("from.email", "")
	v.SetDefault("from.name", "")
	v.SetDefault("timeout", "10s")
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_window", "60s")
	v.SetDefault("health.ttl", "60s")

	v.SetDefault("resend.api_key", "")
	v.SetDefault("resend.daily_limit", "100")
	v.SetDefault("resend.monthly_limit", "3000")
	v.SetDefault("brevo.api_key", "")
	v.SetDefault("brevo.daily_limit", "300")
	v.SetDefault("ses.access_key", "")
	v.SetDefault("ses.secret_key", "")
	v.SetDefault("ses.session_token", "")
	v.SetDefault("ses.region", "")
	v.SetDefault("ses.daily_limit", "200")
	v.SetDefault("mailersend.api_token", "")
	v.SetDefault("mailersend.daily_limit", "100")
}
