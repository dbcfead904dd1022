package courier

import (
	"testing"
	"time"
)

func newTestBreakers(threshold int, window time.Duration) (*breakerSet, *time.Time) {
	b := newBreakerSet(BreakerConfig{FailureThreshold: threshold, ResetWindow: window})
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreakers(5, time.Minute)

	for i := 0; i < 4; i++ {
		b.recordFailure("resend")
		if got := b.state("resend"); got != BreakerClosed {
			t.Fatalf("after %d failures state=%s, want closed", i+1, got)
		}
	}

	b.recordFailure("resend")
	if got := b.state("resend"); got != BreakerOpen {
		t.Fatalf("after threshold state=%s, want open", got)
	}
	if b.available("resend") {
		t.Fatal("open breaker must not be available")
	}
}

func TestBreakerSuccessResetsImmediately(t *testing.T) {
	b, _ := newTestBreakers(5, time.Minute)

	for i := 0; i < 7; i++ {
		b.recordFailure("brevo")
	}
	if got := b.state("brevo"); got != BreakerOpen {
		t.Fatalf("state=%s, want open", got)
	}

	b.recordSuccess("brevo")
	if got := b.state("brevo"); got != BreakerClosed {
		t.Fatalf("after success state=%s, want closed", got)
	}
	snap := b.snapshot()["brevo"]
	if snap.Failures != 0 {
		t.Fatalf("failure count=%d, want 0 after success", snap.Failures)
	}
}

func TestBreakerHalfOpenAfterResetWindow(t *testing.T) {
	b, now := newTestBreakers(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.recordFailure("ses")
	}
	if got := b.state("ses"); got != BreakerOpen {
		t.Fatalf("state=%s, want open", got)
	}

	// Within the reset window the circuit stays open.
	*now = now.Add(59 * time.Second)
	if got := b.state("ses"); got != BreakerOpen {
		t.Fatalf("inside window state=%s, want open", got)
	}

	// Once the window elapses the state is inferred half-open with no
	// further recorded calls.
	*now = now.Add(2 * time.Second)
	if got := b.state("ses"); got != BreakerHalfOpen {
		t.Fatalf("after window state=%s, want half-open", got)
	}
	if !b.available("ses") {
		t.Fatal("half-open breaker must be available")
	}
}

func TestBreakerFailureWhileOpenRefreshesWindow(t *testing.T) {
	b, now := newTestBreakers(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.recordFailure("mailersend")
	}
	*now = now.Add(61 * time.Second)
	if got := b.state("mailersend"); got != BreakerHalfOpen {
		t.Fatalf("state=%s, want half-open", got)
	}

	b.recordFailure("mailersend")
	if got := b.state("mailersend"); got != BreakerOpen {
		t.Fatalf("failure in half-open state=%s, want open", got)
	}
}

func TestBreakerTracksProvidersIndependently(t *testing.T) {
	b, _ := newTestBreakers(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.recordFailure("resend")
	}
	b.recordFailure("brevo")

	if got := b.state("resend"); got != BreakerOpen {
		t.Fatalf("resend state=%s, want open", got)
	}
	if got := b.state("brevo"); got != BreakerClosed {
		t.Fatalf("brevo state=%s, want closed", got)
	}
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreakers(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.recordFailure("resend")
	}
	b.reset()
	if got := b.state("resend"); got != BreakerClosed {
		t.Fatalf("state after reset=%s, want closed", got)
	}
	if len(b.snapshot()) != 1 {
		// state() recreated the entry; snapshot reflects the fresh one.
		t.Fatalf("snapshot size=%d, want 1", len(b.snapshot()))
	}
}
