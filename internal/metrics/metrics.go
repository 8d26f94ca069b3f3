// Package metrics holds the process-wide Prometheus collectors. Labels are
// bounded (no per-player or per-match values) to keep cardinality safe.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_tick_duration_seconds",
		Help:    "Time spent in one match tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.016, 0.05, 0.1},
	})

	ticksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_ticks_dropped_total",
		Help: "Accumulated ticks discarded after exceeding the catch-up cap",
	})

	activeMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_active_matches",
		Help: "Matches currently running",
	})

	globalPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_global_players",
		Help: "Connected players across all matches",
	})

	snapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshots_broadcast_total",
		Help: "Snapshots handed to the session layer",
	})

	eventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_events_total",
		Help: "Game events emitted",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_events_dropped_total",
		Help: "Game events dropped by rate limiting or full buffers",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by limiter, capacity, or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "capacity", "invalid", "match_full"

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// RecordTick records tick timing.
func RecordTick(d time.Duration) { tickDuration.Observe(d.Seconds()) }

// RecordTicksDropped counts ticks discarded past the catch-up cap.
func RecordTicksDropped(n int) { ticksDropped.Add(float64(n)) }

// UpdateActiveMatches updates the running-match gauge.
func UpdateActiveMatches(n int) { activeMatches.Set(float64(n)) }

// UpdateGlobalPlayers updates the process-wide player gauge.
func UpdateGlobalPlayers(n int64) { globalPlayers.Set(float64(n)) }

// RecordSnapshot counts one broadcast snapshot.
func RecordSnapshot() { snapshotsTotal.Inc() }

// RecordEvents counts emitted and dropped game events.
func RecordEvents(emitted, dropped int) {
	eventsTotal.Add(float64(emitted))
	eventsDropped.Add(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "capacity", "invalid", "match_full".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates the WebSocket connection gauge.
func UpdateWSConnections(n int64) { wsConnectionsActive.Set(float64(n)) }

// IncrementWSMessages counts one sent WebSocket message.
func IncrementWSMessages() { wsMessagesTotal.Inc() }

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}
