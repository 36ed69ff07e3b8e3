package shopgate

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics set.
type MetricID uint8

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricSessionCreated counts minted sessions.
	MetricSessionCreated
	// MetricSessionInvalidated counts explicit logouts.
	MetricSessionInvalidated
	// MetricSessionExpired counts sessions found expired on read.
	MetricSessionExpired
	// MetricAuthDenied counts auth middleware rejections.
	MetricAuthDenied
	// MetricGuestBlocked counts guest middleware rejections.
	MetricGuestBlocked
	// MetricRateLimitHit counts requests rejected by the limiter.
	MetricRateLimitHit
	// MetricValidationFailed counts validation middleware rejections.
	MetricValidationFailed
	// MetricRedirectServed counts responses produced by the redirect engine.
	MetricRedirectServed

	metricIDCount
)

// Metrics holds one atomic counter per [MetricID]. When disabled every
// operation is a no-op, so callers never guard their Inc calls.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a counter set; pass Enabled=false for a no-op instance.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of the counter for id.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot returns a deep copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
