// Package ses implements the email provider adapter for the AWS SES v2
// HTTP API. Requests are signed with the local Signature V4
// implementation rather than the AWS SDK.
package ses

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mealbridge/courier/internal/core"
	"github.com/mealbridge/courier/internal/sigv4"
)

const service = "ses"

// Provider implements core.Provider for AWS SES v2.
type Provider struct {
	settings core.ProviderSettings
	httpc    *http.Client
	timeout  time.Duration
	endpoint string

	// now is the signing clock, replaceable in tests for deterministic
	// signatures.
	now func() time.Time
}

// New creates an SES adapter. Missing credentials do not fail
// construction; the adapter reports itself unconfigured instead.
func New(settings core.ProviderSettings, httpc *http.Client, timeout time.Duration) *Provider {
	endpoint := settings.Get("endpoint")
	if endpoint == "" && settings.Get("region") != "" {
		endpoint = "https://email." + settings.Get("region") + ".amazonaws.com"
	}
	return &Provider{
		settings: settings,
		httpc:    httpc,
		timeout:  timeout,
		endpoint: endpoint,
		now:      time.Now,
	}
}

// Name returns the provider name.
func (p *Provider) Name() core.ProviderName {
	return core.ProviderSES
}

// Configured reports whether the access key pair and region are present.
func (p *Provider) Configured() bool {
	return p.settings.Get("access_key") != "" &&
		p.settings.Get("secret_key") != "" &&
		p.settings.Get("region") != ""
}

func (p *Provider) credentials() sigv4.Credentials {
	return sigv4.Credentials{
		AccessKeyID:     p.settings.Get("access_key"),
		SecretAccessKey: p.settings.Get("secret_key"),
		SessionToken:    p.settings.Get("session_token"),
	}
}

type content struct {
	Data    string `json:"Data"`
	Charset string `json:"Charset,omitempty"`
}

type sendPayload struct {
	FromEmailAddress string `json:"FromEmailAddress"`
	Destination      struct {
		ToAddresses []string `json:"ToAddresses"`
	} `json:"Destination"`
	Content struct {
		Simple struct {
			Subject content `json:"Subject"`
			Body    struct {
				Html content  `json:"Html"`
				Text *content `json:"Text,omitempty"`
			} `json:"Body"`
		} `json:"Simple"`
	} `json:"Content"`
	ReplyToAddresses []string `json:"ReplyToAddresses,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"MessageId"`
}

// Send submits the email via POST /v2/email/outbound-emails, SigV4
// signed over the exact wire-serialized body.
func (p *Provider) Send(ctx context.Context, params *core.SendParams) *core.SendResult {
	if !p.Configured() {
		return core.ConfigFailure(p.Name(), "ses is not configured: missing access_key, secret_key or region")
	}

	var payload sendPayload
	payload.FromEmailAddress = params.Sender()
	payload.Destination.ToAddresses = params.To
	payload.Content.Simple.Subject = content{Data: params.Subject, Charset: "UTF-8"}
	payload.Content.Simple.Body.Html = content{Data: params.HTML, Charset: "UTF-8"}
	if params.Text != "" {
		payload.Content.Simple.Body.Text = &content{Data: params.Text, Charset: "UTF-8"}
	}
	if params.ReplyTo != "" {
		payload.ReplyToAddresses = []string{params.ReplyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.ConfigFailure(p.Name(), "failed to encode request: "+err.Error())
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v2/email/outbound-emails", bytes.NewReader(body))
	if err != nil {
		return core.ConfigFailure(p.Name(), "failed to build request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	sigv4.Sign(req, body, p.credentials(), p.settings.Get("region"), service, p.now())

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
	SendQuota struct {
		Max24HourSend   float64 `json:"Max24HourSend"`
		SentLast24Hours float64 `json:"SentLast24Hours"`
	} `json:"SendQuota"`
	SendingEnabled bool `json:"SendingEnabled"`
}

// Health probes GET /v2/email/account, which also reports the 24-hour
// send quota used for the saturation portion of the score.
func (p *Provider) Health(ctx context.Context) *core.ProviderHealth {
	if !p.Configured() {
		return core.UnconfiguredHealth(p.Name())
	}

	account, latency, errMsg := p.fetchAccount(ctx)
	if errMsg != "" {
		return core.ErrorHealth(p.Name(), errMsg, latency)
	}
	if !account.SendingEnabled {
		return core.ErrorHealth(p.Name(), "account sending disabled", latency)
	}

	quotaPct := -1.0
	if account.SendQuota.Max24HourSend > 0 {
		quotaPct = account.SendQuota.SentLast24Hours / account.SendQuota.Max24HourSend * 100
	}
	return core.ScoredHealth(p.Name(), latency, quotaPct, "account endpoint reachable")
}

// Quota prefers the live 24-hour send quota, falling back to static
// limits with zero sent counts when the account call fails.
func (p *Provider) Quota(ctx context.Context) *core.ProviderQuota {
	account, _, errMsg := p.fetchAccount(ctx)
	if errMsg == "" && account.SendQuota.Max24HourSend > 0 {
		return &core.ProviderQuota{
			Provider: p.Name(),
			Daily: core.NewQuotaWindow(
				int64(account.SendQuota.SentLast24Hours),
				int64(account.SendQuota.Max24HourSend),
			),
			Live: true,
		}
	}
	return core.StaticQuota(p.Name(), p.limit("daily_limit"), p.limit("monthly_limit"))
}

func (p *Provider) fetchAccount(ctx context.Context) (*accountResponse, time.Duration, string) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/v2/email/account", nil)
	if err != nil {
		return nil, 0, err.Error()
	}
	sigv4.Sign(req, nil, p.credentials(), p.settings.Get("region"), service, p.now())

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

// DebugInfo returns the configuration with credentials masked.
func (p *Provider) DebugInfo() map[string]string {
	return map[string]string{
		"provider":   p.Name().String(),
		"endpoint":   p.endpoint,
		"region":     p.settings.Get("region"),
		"access_key": core.MaskSecret(p.settings.Get("access_key")),
		"secret_key": core.MaskSecret(p.settings.Get("secret_key")),
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
