package core

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Provider defines the uniform capability set every email vendor adapter
// implements. Adapters are stateless aside from their own configuration
// and report every failure as data in the returned value; they never
// panic and never touch shared state.
type Provider interface {
	// Name returns the provider's stable name used in priority tables,
	// breaker keys and health cache keys.
	Name() ProviderName

	// Configured reports whether the adapter has the credentials it
	// needs to make API calls.
	Configured() bool

	// Send delivers a single email. The returned result is never nil;
	// delivery failures are carried in the result rather than returned
	// as an error, since the result envelope is the contract consumed
	// by the queue-draining job.
	Send(ctx context.Context, params *SendParams) *SendResult

	// Health performs one cheap authenticated read against the vendor
	// API and derives a scored health snapshot. It must not send mail.
	Health(ctx context.Context) *ProviderHealth

	// Quota reports send-volume usage, preferring a live vendor read and
	// falling back to statically configured limits with zero sent on any
	// failure. It never returns nil.
	Quota(ctx context.Context) *ProviderQuota

	// DebugInfo returns the adapter configuration with secrets masked
	// to a short prefix.
	DebugInfo() map[string]string
}

// ProviderName identifies an email vendor adapter.
type ProviderName string

// Supported providers.
const (
	ProviderResend     ProviderName = "resend"
	ProviderBrevo      ProviderName = "brevo"
	ProviderSES        ProviderName = "ses"
	ProviderMailerSend ProviderName = "mailersend"
)

// String returns the string representation of the provider name.
func (n ProviderName) String() string {
	return string(n)
}

// EmailType is the message category used to resolve the provider
// priority list for a send.
type EmailType string

// Message categories of the marketplace.
const (
	EmailTypeAuth       EmailType = "auth"
	EmailTypeWelcome    EmailType = "welcome"
	EmailTypeBooking    EmailType = "booking"
	EmailTypeChat       EmailType = "chat"
	EmailTypeReminder   EmailType = "reminder"
	EmailTypeNewsletter EmailType = "newsletter"
	EmailTypeDigest     EmailType = "digest"
	EmailTypeAdmin      EmailType = "admin"
	EmailTypeSystem     EmailType = "system"
)

// ProviderSettings represents configuration settings for email providers.
type ProviderSettings map[string]string

// Get retrieves a configuration value by key.
func (ps ProviderSettings) Get(key string) string {
	return ps[key]
}

// Set sets a configuration value.
func (ps ProviderSettings) Set(key, value string) {
	ps[key] = value
}

// SendParams is the input envelope for a single transactional email.
type SendParams struct {
	To       []string          `json:"to"`                 // Recipient addresses (required, non-empty)
	Subject  string            `json:"subject"`            // Subject line (required)
	HTML     string            `json:"html"`               // HTML body
	Text     string            `json:"text,omitempty"`     // Plain text body (optional)
	From     string            `json:"from,omitempty"`     // Sender override (optional)
	FromName string            `json:"fromName,omitempty"` // Sender display name override (optional)
	ReplyTo  string            `json:"replyTo,omitempty"`  // Reply-to address (optional)
	Tags     []string          `json:"tags,omitempty"`     // Provider-side tags (optional)
	Metadata map[string]string `json:"metadata,omitempty"` // Arbitrary tracking data (optional)
}

// Validate checks the envelope invariants: at least one non-blank
// recipient and a non-empty subject.
func (p *SendParams) Validate() error {
	if len(p.To) == 0 {
		return NewValidationError("to", "at least one recipient required")
	}
	for i, addr := range p.To {
		if strings.TrimSpace(addr) == "" {
			return NewValidationError("to", "blank recipient at index "+strconv.Itoa(i))
		}
	}
	if strings.TrimSpace(p.Subject) == "" {
		return NewValidationError("subject", "subject is required")
	}
	return nil
}

// Sender returns the formatted from address, "Name <email>" when a
// display name is present.
func (p *SendParams) Sender() string {
	if p.FromName != "" {
		return p.FromName + " <" + p.From + ">"
	}
	return p.From
}

// SendResult is the normalized outcome of a send attempt. Exactly one of
// MessageID and Error is meaningful, depending on Success.
type SendResult struct {
	Success   bool         `json:"success"`
	Provider  ProviderName `json:"provider"`
	MessageID string       `json:"messageId,omitempty"`
	Error     string       `json:"error,omitempty"`
	LatencyMs int64        `json:"latencyMs"`
	Timestamp time.Time    `json:"timestamp"`
}

// SuccessResult builds a successful send result, measuring latency from
// the given start time.
func SuccessResult(provider ProviderName, messageID string, started time.Time) *SendResult {
	return &SendResult{
		Success:   true,
		Provider:  provider,
		MessageID: messageID,
		LatencyMs: time.Since(started).Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
}

// FailureResult builds a failed send result, measuring latency from the
// given start time.
func FailureResult(provider ProviderName, errMsg string, started time.Time) *SendResult {
	return &SendResult{
		Success:   false,
		Provider:  provider,
		Error:     errMsg,
		LatencyMs: time.Since(started).Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
}

// ConfigFailure builds a failed result for a configuration problem:
// zero latency, no network call attempted.
func ConfigFailure(provider ProviderName, errMsg string) *SendResult {
	return &SendResult{
		Success:   false,
		Provider:  provider,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
}

// HealthStatus classifies the outcome of a provider health probe.
type HealthStatus string

const (
	// HealthOK indicates the provider responded quickly with capacity
	// to spare (score >= 70).
	HealthOK HealthStatus = "ok"

	// HealthDegraded indicates the provider responded but slowly or
	// close to its quota (score < 70).
	HealthDegraded HealthStatus = "degraded"

	// HealthError indicates the probe failed or returned a non-2xx
	// response.
	HealthError HealthStatus = "error"

	// HealthUnconfigured indicates credentials are missing; no probe
	// was attempted.
	HealthUnconfigured HealthStatus = "unconfigured"
)

// ProviderHealth is the snapshot produced by a health probe. Snapshots
// are replaced wholesale on refresh, never partially mutated.
type ProviderHealth struct {
	Provider   ProviderName `json:"provider"`
	Status     HealthStatus `json:"status"`
	Score      int          `json:"score"`
	LatencyMs  int64        `json:"latencyMs"`
	Message    string       `json:"message"`
	Configured bool         `json:"configured"`
	CheckedAt  time.Time    `json:"checkedAt"`
}

// UnconfiguredHealth builds the health snapshot for an adapter with
// missing credentials.
func UnconfiguredHealth(provider ProviderName) *ProviderHealth {
	return &ProviderHealth{
		Provider:  provider,
		Status:    HealthUnconfigured,
		Message:   "credentials not configured",
		CheckedAt: time.Now().UTC(),
	}
}

// ErrorHealth builds the health snapshot for a failed probe.
func ErrorHealth(provider ProviderName, message string, latency time.Duration) *ProviderHealth {
	return &ProviderHealth{
		Provider:   provider,
		Status:     HealthError,
		LatencyMs:  latency.Milliseconds(),
		Message:    message,
		Configured: true,
		CheckedAt:  time.Now().UTC(),
	}
}

// ScoredHealth builds the health snapshot for a successful probe from
// the measured latency and observed quota pressure. Pass a negative
// quotaPercentUsed when the probe carries no quota signal.
func ScoredHealth(provider ProviderName, latency time.Duration, quotaPercentUsed float64, message string) *ProviderHealth {
	score := HealthScore(latency, quotaPercentUsed)
	return &ProviderHealth{
		Provider:   provider,
		Status:     StatusForScore(score),
		Score:      score,
		LatencyMs:  latency.Milliseconds(),
		Message:    message,
		Configured: true,
		CheckedAt:  time.Now().UTC(),
	}
}

// HealthScore derives a 0-100 score from probe latency and quota
// saturation. Band penalties stack, so a 2500ms probe crosses all three
// latency bands and loses 50 points.
func HealthScore(latency time.Duration, quotaPercentUsed float64) int {
	score := 100
	ms := latency.Milliseconds()
	if ms > 500 {
		score -= 5
	}
	if ms > 1000 {
		score -= 15
	}
	if ms > 2000 {
		score -= 30
	}
	if quotaPercentUsed > 75 {
		score -= 15
	}
	if quotaPercentUsed > 90 {
		score -= 30
	}
	if score < 0 {
		score = 0
	}
	return score
}

// StatusForScore maps a health score to a status: ok at 70 and above,
// degraded below.
func StatusForScore(score int) HealthStatus {
	if score >= 70 {
		return HealthOK
	}
	return HealthDegraded
}

// QuotaWindow describes send-volume usage over one period.
type QuotaWindow struct {
	Sent        int64   `json:"sent"`
	Limit       int64   `json:"limit"`
	Remaining   int64   `json:"remaining"`
	PercentUsed float64 `json:"percentUsed"`
}

// NewQuotaWindow computes the derived fields of a window from sent and
// limit counts. A zero or negative limit yields an unconstrained window.
func NewQuotaWindow(sent, limit int64) QuotaWindow {
	w := QuotaWindow{Sent: sent, Limit: limit}
	if limit > 0 {
		w.Remaining = limit - sent
		if w.Remaining < 0 {
			w.Remaining = 0
		}
		w.PercentUsed = float64(sent) / float64(limit) * 100
	}
	return w
}

// ProviderQuota reports daily and, where the vendor exposes one, monthly
// send quota usage.
type ProviderQuota struct {
	Provider ProviderName `json:"provider"`
	Daily    QuotaWindow  `json:"daily"`
	Monthly  *QuotaWindow `json:"monthly,omitempty"`

	// Live reports whether the counters came from a vendor API rather
	// than static configuration.
	Live bool `json:"live"`
}

// StaticQuota builds the fallback quota shape from configured limits
// with zero sent counts. Used whenever a live quota read is unavailable
// or fails.
func StaticQuota(provider ProviderName, dailyLimit, monthlyLimit int64) *ProviderQuota {
	q := &ProviderQuota{
		Provider: provider,
		Daily:    NewQuotaWindow(0, dailyLimit),
	}
	if monthlyLimit > 0 {
		monthly := NewQuotaWindow(0, monthlyLimit)
		q.Monthly = &monthly
	}
	return q
}
