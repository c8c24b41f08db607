package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outgoing requests to the dispatch server
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passenger_requests_total",
			Help: "Total number of requests sent to the dispatch server",
		},
		[]string{"request_type", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "passenger_request_duration_seconds",
			Help:    "Dispatch server round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"request_type"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passenger_request_retries_total",
			Help: "Total number of retry decisions taken by the dispatch loop",
		},
		[]string{"request_type", "decision"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "passenger_queue_depth",
			Help: "Current number of pending requests in the request queue",
		},
	)

	// Pushed events
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passenger_events_total",
			Help: "Total number of pushed events by kind and outcome",
		},
		[]string{"event", "outcome"},
	)

	CallStateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "passenger_call_state",
			Help: "Current call state (0 idle, 1 requesting, 2 assigned)",
		},
	)

	// Mock dispatch server
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
		[]string{"service"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "exchange", "status"},
	)
)

// RecordRequest records one round-trip to the dispatch server
func RecordRequest(requestType string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(requestType, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(requestType).Observe(duration.Seconds())
}

// RecordRetry records a retry decision ("requeued", "regenerated", "dropped", "rejected")
func RecordRetry(requestType, decision string) {
	RetriesTotal.WithLabelValues(requestType, decision).Inc()
}

// RecordEvent records a pushed event outcome ("applied", "stale", "ignored", "violation", "malformed")
func RecordEvent(event, outcome string) {
	EventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(service, exchange string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesPublished.WithLabelValues(service, exchange, status).Inc()
}
