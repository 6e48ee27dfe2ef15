package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records remote store traffic, fallback recoveries, and event
// fan-out volume.
type SyncMetrics struct {
	remoteOps      *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	events         *prometheus.CounterVec
	pollCycles     prometheus.Counter
	pollFailures   prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
// A nil registerer yields a no-op instance, which keeps tests quiet.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	remoteOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_ops_total",
		Help: "Remote store operations attempted.",
	}, []string{"collection", "op"})
	remoteFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_failures_total",
		Help: "Remote store operations that failed.",
	}, []string{"collection", "op"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fallback_recoveries_total",
		Help: "Operations recovered against the local cache.",
	}, []string{"collection", "op"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Events fanned out on the bus.",
	}, []string{"kind"})
	pollCycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_poll_cycles_total",
		Help: "Notification poller refresh cycles.",
	})
	pollFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_poll_failures_total",
		Help: "Notification poller cycles that failed.",
	})
	reg.MustRegister(remoteOps, remoteFailures, fallbacks, events, pollCycles, pollFailures)
	return &SyncMetrics{
		remoteOps:      remoteOps,
		remoteFailures: remoteFailures,
		fallbacks:      fallbacks,
		events:         events,
		pollCycles:     pollCycles,
		pollFailures:   pollFailures,
	}
}

// IncRemoteOp counts an attempted remote operation.
func (m *SyncMetrics) IncRemoteOp(collection, op string) {
	if m == nil || m.remoteOps == nil {
		return
	}
	m.remoteOps.WithLabelValues(normalizeLabel(collection), normalizeLabel(op)).Inc()
}

// IncRemoteFailure counts a failed remote operation.
func (m *SyncMetrics) IncRemoteFailure(collection, op string) {
	if m == nil || m.remoteFailures == nil {
		return
	}
	m.remoteFailures.WithLabelValues(normalizeLabel(collection), normalizeLabel(op)).Inc()
}

// IncFallback counts a local-cache recovery.
func (m *SyncMetrics) IncFallback(collection, op string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(collection), normalizeLabel(op)).Inc()
}

// IncEvent counts one bus publication of the given kind.
func (m *SyncMetrics) IncEvent(kind string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncPollCycle counts one poller refresh.
func (m *SyncMetrics) IncPollCycle() {
	if m == nil || m.pollCycles == nil {
		return
	}
	m.pollCycles.Inc()
}

// IncPollFailure counts one failed poller refresh.
func (m *SyncMetrics) IncPollFailure() {
	if m == nil || m.pollFailures == nil {
		return
	}
	m.pollFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
