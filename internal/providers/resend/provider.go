// Package resend implements the email provider adapter for the Resend
// HTTP API.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mealbridge/courier/internal/core"
)

const defaultBaseURL = "https://api.resend.com"

// Provider implements core.Provider for Resend. Auth is a bearer token;
// message submission is POST /emails with success signalled by an "id"
// in the response body.
type Provider struct {
	settings core.ProviderSettings
	httpc    *http.Client
	timeout  time.Duration
	baseURL  string
}

// New creates a Resend adapter. Missing credentials do not fail
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
	return core.ProviderResend
}

// Configured reports whether an API key is present.
func (p *Provider) Configured() bool {
	return p.settings.Get("api_key") != ""
}

type sendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send submits the email via POST /emails.
func (p *Provider) Send(ctx context.Context, params *core.SendParams) *core.SendResult {
	if !p.Configured() {
		return core.ConfigFailure(p.Name(), "resend is not configured: missing api_key")
	}

	body, err := json.Marshal(sendPayload{
		From:    params.Sender(),
		To:      params.To,
		Subject: params.Subject,
		HTML:    params.HTML,
		Text:    params.Text,
		ReplyTo: params.ReplyTo,
		Tags:    params.Tags,
	})
	if err != nil {
		return core.ConfigFailure(p.Name(), "failed to encode request: "+err.Error())
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return core.ConfigFailure(p.Name(), "failed to build request: "+err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+p.settings.Get("api_key"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

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
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.ID == "" {
		return core.FailureResult(p.Name(), "response missing message id", started)
	}
	return core.SuccessResult(p.Name(), parsed.ID, started)
}

// Health probes GET /domains, a lightweight authenticated read. Resend
// exposes no quota endpoint, so the score is latency-only.
func (p *Provider) Health(ctx context.Context) *core.ProviderHealth {
	if !p.Configured() {
		return core.UnconfiguredHealth(p.Name())
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/domains", nil)
	if err != nil {
		return core.ErrorHealth(p.Name(), err.Error(), 0)
	}
	req.Header.Set("Authorization", "Bearer "+p.settings.Get("api_key"))

	resp, err := p.httpc.Do(req)
	latency := time.Since(started)
	if err != nil {
		return core.ErrorHealth(p.Name(), core.ClassifyTransportError(err, p.timeout), latency)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.ErrorHealth(p.Name(), core.ErrorFromBody(respBody, resp.StatusCode), latency)
	}
	return core.ScoredHealth(p.Name(), latency, -1, "domains endpoint reachable")
}

// Quota returns the statically configured limits. Resend has no usable
// quota endpoint, so sent counts are always zero.
func (p *Provider) Quota(ctx context.Context) *core.ProviderQuota {
	return core.StaticQuota(p.Name(), p.limit("daily_limit"), p.limit("monthly_limit"))
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
