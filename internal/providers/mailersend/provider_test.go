package mailersend

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
		"api_token": "mlsn.test",
		"base_url":  srv.URL,
	}
	for k, v := range extra {
		settings[k] = v
	}
	return New(settings, srv.Client(), 5*time.Second)
}

func testParams() *core.SendParams {
	return &core.SendParams{
		To:       []string{"guest@example.org"},
		Subject:  "New message from your host",
		HTML:     "<p>Any allergies?</p>",
		From:     "noreply@mealbridge.org",
		FromName: "MealBridge",
	}
}

func TestSendAcceptedWithMessageID(t *testing.T) {
	var got sendPayload
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/email" {
			t.Errorf("%s %s, want POST /email", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer mlsn.test" {
			t.Errorf("Authorization=%q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("x-message-id", "64b7e1f2c3")
		w.WriteHeader(http.StatusAccepted)
	}, nil)

	res := p.Send(context.Background(), testParams())
	if !res.Success {
		t.Fatalf("send failed: %s", res.Error)
	}
	if res.MessageID != "64b7e1f2c3" || res.Provider != core.ProviderMailerSend {
		t.Fatalf("result=%+v", res)
	}
	if got.From.Email != "noreply@mealbridge.org" || got.From.Name != "MealBridge" {
		t.Fatalf("from=%+v", got.From)
	}
	if len(got.To) != 1 || got.To[0].Email != "guest@example.org" {
		t.Fatalf("to=%+v", got.To)
	}
}

func TestSendAcceptedWithoutMessageID(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}, nil)

	res := p.Send(context.Background(), testParams())
	if !res.Success {
		t.Fatalf("202 without id header must still succeed: %s", res.Error)
	}
	if res.MessageID != "" {
		t.Fatalf("messageID=%q, want empty", res.MessageID)
	}
}

func TestSendNonAcceptedStatusFails(t *testing.T) {
	// A 200 is not the accepted shape; only 202 counts as success.
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, nil)

	res := p.Send(context.Background(), testParams())
	if res.Success {
		t.Fatal("non-202 response must fail")
	}
}

func TestSendVendorError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "The from.email domain must be verified."})
	}, nil)

	res := p.Send(context.Background(), testParams())
	if res.Success || res.Error != "The from.email domain must be verified." {
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

func TestHealthFromQuota(t *testing.T) {
	// 100 of 1000 remaining puts usage at 90%, which costs 15 points.
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api-quota" {
			t.Errorf("path=%s, want /api-quota", r.URL.Path)
		}
		json.NewEncoder(w).Encode(quotaResponse{Quota: 1000, Remaining: 100, Reset: "2026-02-02T00:00:00Z"})
	}, nil)

	h := p.Health(context.Background())
	if h.Status != core.HealthOK {
		t.Fatalf("status=%s: %s", h.Status, h.Message)
	}
	if h.Score != 85 {
		t.Fatalf("score=%d, want 85", h.Score)
	}
}

func TestHealthProbeFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Unauthenticated."})
	}, nil)

	h := p.Health(context.Background())
	if h.Status != core.HealthError || h.Message != "Unauthenticated." {
		t.Fatalf("health=%+v", h)
	}
}

func TestQuotaLive(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(quotaResponse{Quota: 1000, Remaining: 250})
	}, nil)

	q := p.Quota(context.Background())
	if !q.Live {
		t.Fatal("expected live quota")
	}
	if q.Daily.Sent != 750 || q.Daily.Remaining != 250 || q.Daily.PercentUsed != 75 {
		t.Fatalf("daily=%+v", q.Daily)
	}
}

func TestQuotaFallsBackToStatic(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}, core.ProviderSettings{"daily_limit": "100"})

	q := p.Quota(context.Background())
	if q.Live {
		t.Fatal("malformed response must fall back to static quota")
	}
	if q.Daily.Limit != 100 || q.Daily.Sent != 0 {
		t.Fatalf("daily=%+v", q.Daily)
	}
}

func TestDebugInfoMasksToken(t *testing.T) {
	p := New(core.ProviderSettings{"api_token": "mlsn.abcdef"}, http.DefaultClient, time.Second)
	if got := p.DebugInfo()["api_token"]; got != "mlsn****" {
		t.Fatalf("api_token=%q, want masked", got)
	}
}
