// Package metrics is the in-process observability surface (C11): an
// in-memory counters/latency-samples struct in bd's rpc.Metrics style,
// plus a Prometheus registry carrying the same counts for scraping.
// Neither is required for correctness; both exist purely to make engine
// behavior observable from outside the process.
package metrics

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxSamples = 200

// Metrics tracks per-operation counts, errors, and a bounded window of
// latency samples, alongside Prometheus vectors for the same data.
type Metrics struct {
	mu      sync.Mutex
	counts  map[string]int64
	errors  map[string]int64
	samples map[string][]time.Duration

	registry    *prometheus.Registry
	opsTotal    *prometheus.CounterVec
	opErrors    *prometheus.CounterVec
	opLatency   *prometheus.HistogramVec
	queueDepth  *prometheus.GaugeVec
}

// New builds a Metrics instance with its own Prometheus registry so
// tests can spin up independent instances without a global collision.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		counts:  make(map[string]int64),
		errors:  make(map[string]int64),
		samples: make(map[string][]time.Duration),

		registry: reg,
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitingroom_engine_ops_total",
			Help: "Total engine operations by name.",
		}, []string{"op"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitingroom_engine_errors_total",
			Help: "Total engine operation failures by name.",
		}, []string{"op"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waitingroom_engine_op_duration_seconds",
			Help:    "Engine operation latency by name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "waitingroom_queue_depth",
			Help: "Current active/waiting depth per event.",
		}, []string{"event", "state"}),
	}

	reg.MustRegister(m.opsTotal, m.opErrors, m.opLatency, m.queueDepth)
	return m
}

// Observe records the outcome of a single operation. The HTTP layer calls
// it once per request, labelled by route (join, status, start, ...).
func (m *Metrics) Observe(op string, dur time.Duration, err error) {
	m.mu.Lock()
	m.counts[op]++
	if err != nil {
		m.errors[op]++
	}
	s := append(m.samples[op], dur)
	if len(s) > maxSamples {
		s = s[len(s)-maxSamples:]
	}
	m.samples[op] = s
	m.mu.Unlock()

	m.opsTotal.WithLabelValues(op).Inc()
	if err != nil {
		m.opErrors.WithLabelValues(op).Inc()
	}
	m.opLatency.WithLabelValues(op).Observe(dur.Seconds())
}

// SetQueueDepth records the current active/waiting lengths for an event.
func (m *Metrics) SetQueueDepth(eventID string, active, waiting int) {
	m.queueDepth.WithLabelValues(eventID, "active").Set(float64(active))
	m.queueDepth.WithLabelValues(eventID, "waiting").Set(float64(waiting))
}

// Snapshot is the in-memory summary: counts, errors, and average latency
// per operation, for a lightweight diagnostics endpoint.
type Snapshot struct {
	Op            string        `json:"op"`
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	AverageLatency time.Duration `json:"averageLatencyNs"`
}

// Snapshots returns one Snapshot per operation observed so far.
func (m *Metrics) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.counts))
	for op, count := range m.counts {
		var avg time.Duration
		if s := m.samples[op]; len(s) > 0 {
			var total time.Duration
			for _, d := range s {
				total += d
			}
			avg = total / time.Duration(len(s))
		}
		out = append(out, Snapshot{Op: op, Count: count, Errors: m.errors[op], AverageLatency: avg})
	}
	return out
}

// Handler serves the in-memory JSON snapshot by default, and the
// Prometheus text exposition format when the caller asks for it via
// Accept: text/plain or ?format=prom.
func (m *Metrics) Handler() http.Handler {
	prom := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "prom" || strings.Contains(r.Header.Get("Accept"), "text/plain") {
			prom.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.Snapshots())
	})
}
