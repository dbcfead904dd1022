// Package mailersend implements the email provider adapter for the
// MailerSend HTTP API.
package mailersend

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

const defaultBaseURL = "https://api.mailersend.com/v1"

// Provider implements core.Provider for MailerSend. Auth is a bearer
// token; a successful send is HTTP 202 with the message id in the
// x-message-id response header, no body parsing needed.
type Provider struct {
	settings core.ProviderSettings
	httpc    *http.Client
	timeout  time.Duration
	baseURL  string
}

// New creates a MailerSend adapter. Missing credentials do not fail
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
	return core.ProviderMailerSend
}

// Configured reports whether an API token is present.
func (p *Provider) Configured() bool {
	return p.settings.Get("api_token") != ""
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendPayload struct {
	From    emailAddress   `json:"from"`
	To      []emailAddress `json:"to"`
	Subject string         `json:"subject"`
	HTML    string         `json:"html"`
	Text    string         `json:"text,omitempty"`
	ReplyTo *emailAddress  `json:"reply_to,omitempty"`
	Tags    []string       `json:"tags,omitempty"`
}

// Send submits the email via POST /email.
func (p *Provider) Send(ctx context.Context, params *core.SendParams) *core.SendResult {
	if !p.Configured() {
		return core.ConfigFailure(p.Name(), "mailersend is not configured: missing api_token")
	}

	payload := sendPayload{
		From:    emailAddress{Email: params.From, Name: params.FromName},
		Subject: params.Subject,
		HTML:    params.HTML,
		Text:    params.Text,
		Tags:    params.Tags,
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return core.ConfigFailure(p.Name(), "failed to build request: "+err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+p.settings.Get("api_token"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return core.FailureResult(p.Name(), core.ClassifyTransportError(err, p.timeout), started)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return core.FailureResult(p.Name(), core.ErrorFromBody(respBody, resp.StatusCode), started)
	}

	// The id header may be absent on some plans; the 202 alone means the
	// message was accepted.
	return core.SuccessResult(p.Name(), resp.Header.Get("x-message-id"), started)
}

type quotaResponse struct {
	Quota     int64  `json:"quota"`
	Remaining int64  `json:"remaining"`
	Reset     string `json:"reset"`
}

// Health probes GET /api-quota, which doubles as the quota pressure
// signal for the score.
func (p *Provider) Health(ctx context.Context) *core.ProviderHealth {
	if !p.Configured() {
		return core.UnconfiguredHealth(p.Name())
	}

	quota, latency, errMsg := p.fetchQuota(ctx)
	if errMsg != "" {
		return core.ErrorHealth(p.Name(), errMsg, latency)
	}

	quotaPct := -1.0
	if quota.Quota > 0 {
		quotaPct = float64(quota.Quota-quota.Remaining) / float64(quota.Quota) * 100
	}
	return core.ScoredHealth(p.Name(), latency, quotaPct, "api-quota endpoint reachable")
}

// Quota prefers the live api-quota counters, falling back to static
// limits with zero sent counts when the call fails.
func (p *Provider) Quota(ctx context.Context) *core.ProviderQuota {
	quota, _, errMsg := p.fetchQuota(ctx)
	if errMsg == "" && quota.Quota > 0 {
		return &core.ProviderQuota{
			Provider: p.Name(),
			Daily:    core.NewQuotaWindow(quota.Quota-quota.Remaining, quota.Quota),
			Live:     true,
		}
	}
	return core.StaticQuota(p.Name(), p.limit("daily_limit"), p.limit("monthly_limit"))
}

func (p *Provider) fetchQuota(ctx context.Context) (*quotaResponse, time.Duration, string) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api-quota", nil)
	if err != nil {
		return nil, 0, err.Error()
	}
	req.Header.Set("Authorization", "Bearer "+p.settings.Get("api_token"))

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

	var quota quotaResponse
	if err := json.Unmarshal(respBody, &quota); err != nil {
		return nil, latency, "malformed quota response: " + err.Error()
	}
	return &quota, latency, ""
}

// DebugInfo returns the configuration with the API token masked.
func (p *Provider) DebugInfo() map[string]string {
	return map[string]string{
		"provider":   p.Name().String(),
		"base_url":   p.baseURL,
		"api_token":  core.MaskSecret(p.settings.Get("api_token")),
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
