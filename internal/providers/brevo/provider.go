// Package brevo implements the email provider adapter for the Brevo
// (formerly Sendinblue) HTTP API.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mealbridge/courier/internal/core"
)

const defaultBaseURL = "https://api.brevo.com/v3"

// Provider implements core.Provider for Brevo. Auth is the api-key
// header; message submission is POST /smtp/email.
type Provider struct {
	settings core.ProviderSettings
	httpc    *http.Client
	timeout  time.Duration
	baseURL  string
}

// New creates a Brevo adapter. Missing credentials do not fail
// construction; the adapter reports itself unconfigured instead.
func New(settings core.ProviderSettings, httpc *http.Client, timeout time.Duration) *Provider {
	base := settings.Get("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Provider{settings: settings, httpc: httpc, timeout: timeout, baseURL: base}
}

// Name returns the provider name.
func (p *Provider) Name() core.ProviderName {
	return core.ProviderBrevo
}

// Configured reports whether an API key is present.
func (p *Provider) Configured() bool {
	return p.settings.Get("api_key") != ""
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendPayload struct {
	Sender      emailAddress   `json:"sender"`
	To          []emailAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent,omitempty"`
	ReplyTo     *emailAddress  `json:"replyTo,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

// Send submits the email via POST /smtp/email.
func (p *Provider) Send(ctx context.Context, params *core.SendParams) *core.SendResult {
	if !p.Configured() {
		return core.ConfigFailure(p.Name(), "brevo is not configured: missing api_key")
	}

	payload := sendPayload{
		Sender:      emailAddress{Email: params.From, Name: params.FromName},
		Subject:     params.Subject,
		HTMLContent: params.HTML,
		TextContent: params.Text,
		Tags:        params.Tags,
	}
	for _, to := range params.To {
		payload.To = append(payload.To, emailAddress{Email: to})
	}
	if params.ReplyTo != "" {
		payload.ReplyTo = &emailAddress{Email: params.ReplyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.ConfigFailure(p.Name(), "failed to encode request: "+err.Error())
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return core.ConfigFailure(p.Name(), "failed to build request: "+err.Error())
	}
	req.Header.Set("api-key", p.settings.Get("api_key"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return core.FailureResult(p.Name(), core.ClassifyTransportError(err, p.timeout), started)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.FailureResult(p.Name(), core.ErrorFromBody(respBody, resp.StatusCode), started)
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.MessageID == "" {
		return core.FailureResult(p.Name(), "response missing message id", started)
	}
	return core.SuccessResult(p.Name(), parsed.MessageID, started)
}

type accountResponse struct {
	Email string `json:"email"`
	Plan  []struct {
		Type        string  `json:"type"`
		CreditsType string  `json:"creditsType"`
		Credits     float64 `json:"credits"`
	} `json:"plan"`
}

// Health probes GET /account. The account's remaining send credits feed
// the quota pressure portion of the score when a daily limit is
// configured.
func (p *Provider) Health(ctx context.Context) *core.ProviderHealth {
	if !p.Configured() {
		return core.UnconfiguredHealth(p.Name())
	}

	started := time.Now()
	account, latency, errMsg := p.fetchAccount(ctx)
	if errMsg != "" {
		return core.ErrorHealth(p.Name(), errMsg, time.Since(started))
	}

	quotaPct := -1.0
	if q := p.liveQuota(account); q != nil && q.Daily.Limit > 0 {
		quotaPct = q.Daily.PercentUsed
	}
	return core.ScoredHealth(p.Name(), latency, quotaPct, "account endpoint reachable")
}

// Quota prefers the live account credits, falling back to static limits
// with zero sent counts when the account call fails or the plan carries
// no send-limit credits.
func (p *Provider) Quota(ctx context.Context) *core.ProviderQuota {
	account, _, errMsg := p.fetchAccount(ctx)
	if errMsg == "" {
		if q := p.liveQuota(account); q != nil {
			return q
		}
	}
	return core.StaticQuota(p.Name(), p.limit("daily_limit"), p.limit("monthly_limit"))
}

// fetchAccount performs the GET /account read shared by Health and
// Quota. It returns a non-empty error message instead of an error value
// so callers can thread it straight into result envelopes.
func (p *Provider) fetchAccount(ctx context.Context) (*accountResponse, time.Duration, string) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/account", nil)
	if err != nil {
		return nil, 0, err.Error()
	}
	req.Header.Set("api-key", p.settings.Get("api_key"))
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpc.Do(req)
	latency := time.Since(started)
	if err != nil {
		return nil, latency, core.ClassifyTransportError(err, p.timeout)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, latency, core.ErrorFromBody(respBody, resp.StatusCode)
	}

	var account accountResponse
	if err := json.Unmarshal(respBody, &account); err != nil {
		return nil, latency, "malformed account response: " + err.Error()
	}
	return &account, latency, ""
}

// liveQuota derives a daily quota window from the plan's send-limit
// credits. Returns nil when the plan exposes no usable counter.
func (p *Provider) liveQuota(account *accountResponse) *core.ProviderQuota {
	limit := p.limit("daily_limit")
	if account == nil || limit <= 0 {
		return nil
	}
	for _, plan := range account.Plan {
		if plan.CreditsType != "sendLimit" {
			continue
		}
		remaining := int64(plan.Credits)
		sent := limit - remaining
		if sent < 0 {
			sent = 0
		}
		return &core.ProviderQuota{
			Provider: p.Name(),
			Daily:    core.NewQuotaWindow(sent, limit),
			Live:     true,
		}
	}
	return nil
}

// DebugInfo returns the configuration with the API key masked.
func (p *Provider) DebugInfo() map[string]string {
	return map[string]string{
		"provider":   p.Name().String(),
		"base_url":   p.baseURL,
		"api_key":    core.MaskSecret(p.settings.Get("api_key")),
		"configured": strconv.FormatBool(p.Configured()),
	}
}

func (p *Provider) limit(key string) int64 {
	n, err := strconv.ParseInt(p.settings.Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
