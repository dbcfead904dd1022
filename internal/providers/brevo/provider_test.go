package brevo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mealbridge/courier/internal/core"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, extra core.ProviderSettings) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	settings := core.ProviderSettings{
		"api_key":  "xkeysib-test",
		"base_url": srv.URL,
	}
	for k, v := range extra {
		settings[k] = v
	}
	return New(settings, srv.Client(), 5*time.Second)
}

func testParams() *core.SendParams {
	return &core.SendParams{
		To:       []string{"guest@example.org"},
		Subject:  "Welcome to the neighborhood",
		HTML:     "<p>Glad to have you.</p>",
		Text:     "Glad to have you.",
		From:     "noreply@mealbridge.org",
		FromName: "MealBridge",
		ReplyTo:  "support@mealbridge.org",
	}
}

func TestSendSuccess(t *testing.T) {
	var got sendPayload
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/smtp/email" {
			t.Errorf("%s %s, want POST /smtp/email", r.Method, r.URL.Path)
		}
		if key := r.Header.Get("api-key"); key != "xkeysib-test" {
			t.Errorf("api-key=%q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"messageId": "<202608@smtp-relay>"})
	}, nil)

	res := p.Send(context.Background(), testParams())
	if !res.Success {
		t.Fatalf("send failed: %s", res.Error)
	}
	if res.MessageID != "<202608@smtp-relay>" || res.Provider != core.ProviderBrevo {
		t.Fatalf("result=%+v", res)
	}
	if got.Sender.Email != "noreply@mealbridge.org" || got.Sender.Name != "MealBridge" {
		t.Fatalf("sender=%+v", got.Sender)
	}
	if len(got.To) != 1 || got.To[0].Email != "guest@example.org" {
		t.Fatalf("to=%+v", got.To)
	}
	if got.HTMLContent != "<p>Glad to have you.</p>" || got.TextContent != "Glad to have you." {
		t.Fatalf("content=%q/%q", got.HTMLContent, got.TextContent)
	}
	if got.ReplyTo == nil || got.ReplyTo.Email != "support@mealbridge.org" {
		t.Fatalf("replyTo=%+v", got.ReplyTo)
	}
}

func TestSendVendorError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "sender not valid", "code": "invalid_parameter"})
	}, nil)

	res := p.Send(context.Background(), testParams())
	if res.Success || res.Error != "sender not valid" {
		t.Fatalf("result=%+v", res)
	}
}

func TestSendUnconfigured(t *testing.T) {
	p := New(core.ProviderSettings{}, http.DefaultClient, time.Second)
	res := p.Send(context.Background(), testParams())
	if res.Success || res.LatencyMs != 0 {
		t.Fatalf("result=%+v, want zero-latency config failure", res)
	}
}

func accountBody(sendLimitCredits float64) map[string]any {
	return map[string]any{
		"email": "ops@mealbridge.org",
		"plan": []map[string]any{
			{"type": "free", "creditsType": "sendLimit", "credits": sendLimitCredits},
		},
	}
}

func TestHealthIncludesQuotaPressure(t *testing.T) {
	// 15 of 300 daily credits remaining puts usage at 95%, which costs
	// 45 points on top of the latency score.
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account" {
			t.Errorf("path=%s, want /account", r.URL.Path)
		}
		json.NewEncoder(w).Encode(accountBody(15))
	}, core.ProviderSettings{"daily_limit": "300"})

	h := p.Health(context.Background())
	if h.Status != core.HealthDegraded {
		t.Fatalf("status=%s, want degraded at 95%% quota", h.Status)
	}
	if h.Score != 55 {
		t.Fatalf("score=%d, want 55", h.Score)
	}
}

func TestHealthWithoutQuotaSignal(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"email": "ops@mealbridge.org"})
	}, nil)

	h := p.Health(context.Background())
	if h.Status != core.HealthOK || h.Score != 100 {
		t.Fatalf("health=%+v", h)
	}
}

func TestHealthProbeFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Key not found"})
	}, nil)

	h := p.Health(context.Background())
	if h.Status != core.HealthError || h.Message != "Key not found" {
		t.Fatalf("health=%+v", h)
	}
}

func TestQuotaLive(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(accountBody(30))
	}, core.ProviderSettings{"daily_limit": "300"})

	q := p.Quota(context.Background())
	if !q.Live {
		t.Fatal("expected live quota")
	}
	if q.Daily.Sent != 270 || q.Daily.Remaining != 30 || q.Daily.PercentUsed != 90 {
		t.Fatalf("daily=%+v", q.Daily)
	}
}

func TestQuotaFallsBackToStatic(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, core.ProviderSettings{"daily_limit": "300"})

	q := p.Quota(context.Background())
	if q.Live {
		t.Fatal("vendor failure must fall back to static quota")
	}
	if q.Daily.Limit != 300 || q.Daily.Sent != 0 {
		t.Fatalf("daily=%+v", q.Daily)
	}
}

func TestQuotaFallsBackWithoutSendLimitCredits(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"email": "ops@mealbridge.org",
			"plan":  []map[string]any{{"type": "free", "creditsType": "sms", "credits": 10.0}},
		})
	}, core.ProviderSettings{"daily_limit": "300"})

	q := p.Quota(context.Background())
	if q.Live {
		t.Fatal("plan without send-limit credits must fall back to static quota")
	}
}

func TestDebugInfoMasksKey(t *testing.T) {
	p := New(core.ProviderSettings{"api_key": "xkeysib-verysecret"}, http.DefaultClient, time.Second)
	if got := p.DebugInfo()["api_key"]; got != "xkey****" {
		t.Fatalf("api_key=%q, want masked", got)
	}
}
