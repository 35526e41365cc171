package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics (admin surface)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Gateway metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Live gateway connections",
		},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_gateway_events_total",
			Help: "Total inbound gateway events",
		},
		[]string{"type"},
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_gateway_event_duration_seconds",
			Help:    "Gateway event dispatch duration",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
		[]string{"type"},
	)

	// Delivery metrics
	MessagesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_routed_total",
			Help: "Total routed messages by outcome",
		},
		[]string{"outcome"}, // "delivered", "pending" or "rejected"
	)

	PendingDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_pending_messages_delivered_total",
			Help: "Queued messages replayed on reconnect",
		},
	)

	PendingQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_pending_queue_depth",
			Help: "Messages currently queued for offline users",
		},
	)

	DecryptFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_decrypt_failures_total",
			Help: "Envelope decryption failures",
		},
	)

	// Signaling metrics
	SignalsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_signals_relayed_total",
			Help: "Call-signaling events relayed",
		},
		[]string{"event"},
	)

	CallsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_calls_failed_total",
			Help: "Signaling attempts to unreachable users",
		},
	)

	// Infrastructure metrics
	ArchiveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_archive_errors_total",
			Help: "Best-effort archive write failures",
		},
	)

	DirectoryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_directory_errors_total",
			Help: "User directory lookup failures",
		},
	)
)
