package courier

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mealbridge/courier/internal/core"
	"github.com/mealbridge/courier/internal/providers"
)

// Type aliases to re-export core types for the public API.
// This allows users to access types like courier.SendParams instead of
// core.SendParams, maintaining a clean public interface while keeping
// implementation details internal.
type (
	Provider         = core.Provider
	ProviderName     = core.ProviderName
	ProviderSettings = core.ProviderSettings
	EmailType        = core.EmailType
	SendParams       = core.SendParams
	SendResult       = core.SendResult
	ProviderHealth   = core.ProviderHealth
	HealthStatus     = core.HealthStatus
	ProviderQuota    = core.ProviderQuota
	QuotaWindow      = core.QuotaWindow
	ValidationError  = core.ValidationError
)

// Provider name constants.
const (
	ProviderResend     = core.ProviderResend
	ProviderBrevo      = core.ProviderBrevo
	ProviderSES        = core.ProviderSES
	ProviderMailerSend = core.ProviderMailerSend
)

// Message category constants.
const (
	EmailTypeAuth       = core.EmailTypeAuth
	EmailTypeWelcome    = core.EmailTypeWelcome
	EmailTypeBooking    = core.EmailTypeBooking
	EmailTypeChat       = core.EmailTypeChat
	EmailTypeReminder   = core.EmailTypeReminder
	EmailTypeNewsletter = core.EmailTypeNewsletter
	EmailTypeDigest     = core.EmailTypeDigest
	EmailTypeAdmin      = core.EmailTypeAdmin
	EmailTypeSystem     = core.EmailTypeSystem
)

// Health status constants.
const (
	HealthOK           = core.HealthOK
	HealthDegraded     = core.HealthDegraded
	HealthError        = core.HealthError
	HealthUnconfigured = core.HealthUnconfigured
)

// Error constructor functions.
var NewValidationError = core.NewValidationError

// Client orchestrates the vendor adapters: category-based provider
// selection, per-provider circuit breaking, cached health probing and
// fire-and-forget metrics. All methods are safe for concurrent use.
//
// A Client is constructed explicitly and owned by the process's
// composition root; there is no package-level singleton. Breaker and
// health state are process-local, so a multi-instance deployment tracks
// circuits independently per instance.
type Client struct {
	config    Config
	providers map[ProviderName]Provider
	breakers  *breakerSet
	health    *healthCache
	logger    *zap.Logger
	metrics   MetricsRecorder
	tracer    trace.Tracer
	mu        sync.RWMutex
	closed    bool
}

// New creates a courier client from the given configuration.
func New(config Config, opts ...Option) (*Client, error) {
	for _, opt := range opts {
		opt(&config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpc := config.HTTPClient
	if httpc == nil {
		httpc = &http.Client{
			Transport: &http.Transport{
				MaxConnsPerHost: config.MaxConnsPerHost,
				IdleConnTimeout: config.IdleConnTimeout,
			},
		}
	}

	client := &Client{
		config:   config,
		breakers: newBreakerSet(config.Breaker),
		health:   newHealthCache(config.HealthTTL),
		logger:   logger,
		metrics:  config.Metrics,
		tracer:   otel.Tracer("github.com/mealbridge/courier"),
		providers: map[ProviderName]Provider{
			ProviderResend:     providers.NewResend(config.Providers.Resend, httpc, config.Timeout),
			ProviderBrevo:      providers.NewBrevo(config.Providers.Brevo, httpc, config.Timeout),
			ProviderSES:        providers.NewSES(config.Providers.SES, httpc, config.Timeout),
			ProviderMailerSend: providers.NewMailerSend(config.Providers.MailerSend, httpc, config.Timeout),
		},
	}
	return client, nil
}

// Send delivers an email through the first configured provider in the
// category's priority list. The breaker is deliberately not consulted
// here: category-based selection favors predictability, while
// BestProvider offers the adaptive path. A provider is tried exactly
// once; there is no hidden retry or cross-provider failover.
func (c *Client) Send(ctx context.Context, params *SendParams, emailType EmailType) *SendResult {
	ctx, span := c.tracer.Start(ctx, "courier.Client.Send")
	defer span.End()
	span.SetAttributes(attribute.String("courier.type", string(emailType)))

	list := c.priorityList(emailType)

	if res := c.precheck(params, list[0]); res != nil {
		span.SetStatus(codes.Error, res.Error)
		return res
	}

	prepared := c.applyDefaults(params)

	var provider Provider
	for _, name := range list {
		if p := c.providers[name]; p != nil && p.Configured() {
			provider = p
			break
		}
	}
	if provider == nil {
		res := core.ConfigFailure(list[0], "no configured provider for category "+string(emailType))
		span.SetStatus(codes.Error, res.Error)
		c.logger.Warn("no configured provider",
			zap.String("type", string(emailType)),
			zap.String("attributed", list[0].String()),
		)
		return res
	}

	return c.deliver(ctx, span, provider, prepared, emailType)
}

// SendWithProvider bypasses selection and delivers through the named
// provider, failing fast if it is unknown or unconfigured.
func (c *Client) SendWithProvider(ctx context.Context, params *SendParams, name ProviderName) *SendResult {
	ctx, span := c.tracer.Start(ctx, "courier.Client.SendWithProvider")
	defer span.End()
	span.SetAttributes(attribute.String("courier.provider", name.String()))

	if res := c.precheck(params, name); res != nil {
		span.SetStatus(codes.Error, res.Error)
		return res
	}

	provider, ok := c.providers[name]
	if !ok {
		res := core.ConfigFailure(name, "unknown provider "+name.String())
		span.SetStatus(codes.Error, res.Error)
		return res
	}
	if !provider.Configured() {
		res := core.ConfigFailure(name, name.String()+" is not configured")
		span.SetStatus(codes.Error, res.Error)
		return res
	}

	return c.deliver(ctx, span, provider, c.applyDefaults(params), "")
}

// BestProvider health-checks all adapters and returns the top choice
// for the category: configured, not in error status, breaker-available,
// ranked by priority-list position with ties broken by descending
// health score. Unlike Send, this path honors the circuit breaker.
func (c *Client) BestProvider(ctx context.Context, emailType EmailType) (ProviderName, error) {
	ctx, span := c.tracer.Start(ctx, "courier.Client.BestProvider")
	defer span.End()
	span.SetAttributes(attribute.String("courier.type", string(emailType)))

	healths := c.CheckAllHealth(ctx, false)
	list := c.priorityList(emailType)

	rank := func(name ProviderName) int {
		for i, n := range list {
			if n == name {
				return i
			}
		}
		return len(list)
	}

	var candidates []ProviderName
	for name, h := range healths {
		if !h.Configured || h.Status == HealthError || h.Status == HealthUnconfigured {
			continue
		}
		if !c.breakers.available(name) {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		span.SetStatus(codes.Error, ErrNoProviderAvailable.Error())
		return "", ErrNoProviderAvailable
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := rank(candidates[i]), rank(candidates[j])
		if ri != rj {
			return ri < rj
		}
		return healths[candidates[i]].Score > healths[candidates[j]].Score
	})

	best := candidates[0]
	span.SetAttributes(attribute.String("courier.provider", best.String()))
	span.SetStatus(codes.Ok, "provider selected")
	return best, nil
}

// CheckHealth returns the provider's health snapshot, served from the
// cache within its TTL unless forceRefresh is set.
func (c *Client) CheckHealth(ctx context.Context, name ProviderName, forceRefresh bool) *ProviderHealth {
	provider, ok := c.providers[name]
	if !ok {
		return core.ErrorHealth(name, "unknown provider "+name.String(), 0)
	}

	if !forceRefresh {
		if cached, ok := c.health.get(name); ok {
			return cached
		}
	}

	h := provider.Health(ctx)
	c.health.put(name, h)
	return h
}

// CheckAllHealth probes every provider concurrently and returns the
// snapshots keyed by name. Probes are read-only and independent, so
// they fan out.
func (c *Client) CheckAllHealth(ctx context.Context, forceRefresh bool) map[ProviderName]*ProviderHealth {
	ctx, span := c.tracer.Start(ctx, "courier.Client.CheckAllHealth")
	defer span.End()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[ProviderName]*ProviderHealth, len(c.providers))
	)
	for name := range c.providers {
		wg.Add(1)
		go func(name ProviderName) {
			defer wg.Done()
			h := c.CheckHealth(ctx, name, forceRefresh)
			mu.Lock()
			out[name] = h
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return out
}

// Quota returns the named provider's quota usage. Adapters never fail
// this call; vendor errors fall back to static configured limits.
func (c *Client) Quota(ctx context.Context, name ProviderName) (*ProviderQuota, error) {
	provider, ok := c.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return provider.Quota(ctx), nil
}

// DebugInfo returns every adapter's configuration with secrets masked.
func (c *Client) DebugInfo() map[ProviderName]map[string]string {
	out := make(map[ProviderName]map[string]string, len(c.providers))
	for name, p := range c.providers {
		out[name] = p.DebugInfo()
	}
	return out
}

// BreakerState returns the effective circuit state for a provider.
func (c *Client) BreakerState(name ProviderName) BreakerState {
	return c.breakers.state(name)
}

// BreakerSnapshots returns a point-in-time view of all tracked
// circuits.
func (c *Client) BreakerSnapshots() map[ProviderName]BreakerSnapshot {
	return c.breakers.snapshot()
}

// ResetBreakers drops all circuit state. Intended for test isolation.
func (c *Client) ResetBreakers() {
	c.breakers.reset()
}

// ResetHealthCache drops all cached health snapshots. Intended for test
// isolation.
func (c *Client) ResetHealthCache() {
	c.health.reset()
}

// Close marks the client closed. Subsequent sends fail as data.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// deliver invokes the adapter once, records the outcome in the
// provider's breaker, dispatches metrics and annotates the span.
func (c *Client) deliver(ctx context.Context, span trace.Span, provider Provider, params *SendParams, emailType EmailType) *SendResult {
	result := provider.Send(ctx, params)

	if result.Success {
		c.breakers.recordSuccess(result.Provider)
		span.SetAttributes(attribute.String("courier.message_id", result.MessageID))
		span.SetStatus(codes.Ok, "email sent")
		c.logger.Info("email sent",
			zap.String("provider", result.Provider.String()),
			zap.String("type", string(emailType)),
			zap.Int64("latency_ms", result.LatencyMs),
		)
	} else {
		state := c.breakers.recordFailure(result.Provider)
		span.SetStatus(codes.Error, result.Error)
		c.logger.Warn("email send failed",
			zap.String("provider", result.Provider.String()),
			zap.String("type", string(emailType)),
			zap.String("error", result.Error),
			zap.String("breaker_state", state.String()),
		)
	}

	recipient := ""
	if len(params.To) > 0 {
		recipient = params.To[0]
	}
	c.recordMetrics(result, emailType, recipient)
	return result
}

// precheck covers the failure modes that never reach the network:
// closed client and invalid envelopes. Returns nil when the send may
// proceed.
func (c *Client) precheck(params *SendParams, attributed ProviderName) *SendResult {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return core.ConfigFailure(attributed, ErrClientClosed.Error())
	}
	if err := params.Validate(); err != nil {
		return core.ConfigFailure(attributed, err.Error())
	}
	return nil
}

// applyDefaults fills the configured sender identity into a copy of the
// params, leaving the caller's value untouched.
func (c *Client) applyDefaults(params *SendParams) *SendParams {
	prepared := *params
	if prepared.From == "" {
		prepared.From = c.config.DefaultFromEmail
	}
	if prepared.FromName == "" {
		prepared.FromName = c.config.DefaultFromName
	}
	return &prepared
}

// priorityList resolves the provider order for a category, falling back
// to the default list for unmapped categories.
func (c *Client) priorityList(emailType EmailType) []ProviderName {
	if list, ok := c.config.Priority[emailType]; ok && len(list) > 0 {
		return list
	}
	return c.config.DefaultPriority
}
