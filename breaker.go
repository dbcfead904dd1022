package courier

import (
	"sync"
	"time"
)

// BreakerState represents the effective state of one provider's circuit
// breaker.
type BreakerState int

const (
	// BreakerClosed indicates normal operation; all calls are allowed.
	BreakerClosed BreakerState = iota

	// BreakerOpen indicates the provider crossed the consecutive
	// failure threshold and is considered unavailable by health-ranked
	// selection.
	BreakerOpen

	// BreakerHalfOpen indicates the reset window has elapsed since the
	// last failure; the next call decides whether the circuit closes.
	// Half-open is inferred at read time, never stored.
	BreakerHalfOpen
)

// String returns the string representation of the breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig contains circuit breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// a provider's circuit.
	FailureThreshold int

	// ResetWindow is how long after the last failure an open circuit is
	// reported half-open.
	ResetWindow time.Duration
}

// BreakerSnapshot is a point-in-time view of one provider's circuit for
// operator visibility.
type BreakerSnapshot struct {
	State       BreakerState `json:"-"`
	StateName   string       `json:"state"`
	Failures    int          `json:"failures"`
	LastFailure time.Time    `json:"lastFailure,omitempty"`
	LastSuccess time.Time    `json:"lastSuccess,omitempty"`
}

// breakerEntry tracks one provider's circuit. Each entry carries its own
// mutex so independent provider keys never contend.
type breakerEntry struct {
	mu          sync.Mutex
	open        bool
	failures    int
	lastFailure time.Time
	lastSuccess time.Time
}

// breakerSet owns the per-provider-name circuit breakers. State is
// process-local: a multi-instance deployment tracks circuits
// independently per instance.
type breakerSet struct {
	cfg BreakerConfig
	now func() time.Time

	mu      sync.RWMutex
	entries map[ProviderName]*breakerEntry
}

func newBreakerSet(cfg BreakerConfig) *breakerSet {
	return &breakerSet{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[ProviderName]*breakerEntry),
	}
}

func (b *breakerSet) entry(name ProviderName) *breakerEntry {
	b.mu.RLock()
	e, ok := b.entries[name]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[name]; ok {
		return e
	}
	e = &breakerEntry{}
	b.entries[name] = e
	return e
}

// recordFailure increments the consecutive failure count and opens the
// circuit once the threshold is crossed. Failures while open keep it
// open and refresh the reset window.
func (b *breakerSet) recordFailure(name ProviderName) BreakerState {
	e := b.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures++
	e.lastFailure = b.now()
	if e.failures >= b.cfg.FailureThreshold {
		e.open = true
	}
	return b.effectiveState(e)
}

// recordSuccess closes the circuit and resets the failure count.
func (b *breakerSet) recordSuccess(name ProviderName) {
	e := b.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures = 0
	e.open = false
	e.lastSuccess = b.now()
}

// state returns the effective breaker state for a provider, inferring
// half-open when the reset window has elapsed since the last failure.
func (b *breakerSet) state(name ProviderName) BreakerState {
	e := b.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	return b.effectiveState(e)
}

// available reports whether health-ranked selection may use the
// provider. Half-open counts as available so a recovered provider gets
// a probe call.
func (b *breakerSet) available(name ProviderName) bool {
	return b.state(name) != BreakerOpen
}

// effectiveState requires e.mu held.
func (b *breakerSet) effectiveState(e *breakerEntry) BreakerState {
	if !e.open {
		return BreakerClosed
	}
	if b.now().Sub(e.lastFailure) > b.cfg.ResetWindow {
		return BreakerHalfOpen
	}
	return BreakerOpen
}

// snapshot returns a point-in-time copy of every tracked circuit.
func (b *breakerSet) snapshot() map[ProviderName]BreakerSnapshot {
	b.mu.RLock()
	names := make([]ProviderName, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	b.mu.RUnlock()

	out := make(map[ProviderName]BreakerSnapshot, len(names))
	for _, name := range names {
		e := b.entry(name)
		e.mu.Lock()
		state := b.effectiveState(e)
		out[name] = BreakerSnapshot{
			State:       state,
			StateName:   state.String(),
			Failures:    e.failures,
			LastFailure: e.lastFailure,
			LastSuccess: e.lastSuccess,
		}
		e.mu.Unlock()
	}
	return out
}

// reset drops all circuit state. Intended for test isolation.
func (b *breakerSet) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[ProviderName]*breakerEntry)
}
