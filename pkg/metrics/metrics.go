// Package metrics declares the Prometheus collectors exposed at
// APIConfig.MetricsPath, grouped by the subsystem that updates them:
// ingestion, the poll scheduler, the WebSocket hub, and the notification
// dispatcher. Mirrors cuemby-warren's pkg/metrics: package-level vars,
// registered once in init, scraped through promhttp.Handler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics (§4.2).
	EventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackingd_events_ingested_total",
			Help: "Total number of events applied by the ingestion pipeline, by source and outcome",
		},
		[]string{"source_id", "outcome"},
	)

	EventsDuplicateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackingd_events_duplicate_total",
			Help: "Total number of events discarded as duplicates by the §4.2 dedup window",
		},
		[]string{"source_id"},
	)

	IngestionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackingd_ingestion_duration_seconds",
			Help:    "Time taken to apply one event through the ingestion pipeline",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source_id"},
	)

	// Scheduler metrics (§4.4).
	PollTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackingd_poll_ticks_total",
			Help: "Total number of scheduler poll ticks, by source and outcome",
		},
		[]string{"source_id", "outcome"},
	)

	PollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackingd_poll_duration_seconds",
			Help:    "Time taken for one source's poll-and-apply cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source_id"},
	)

	OrphansRecoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackingd_orphans_recovered_total",
			Help: "Total number of sources recovered from a stuck in-flight poll at startup",
		},
	)

	// Hub metrics (§4.5).
	HubActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackingd_hub_active_connections",
			Help: "Current number of connected WebSocket clients",
		},
	)

	HubBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackingd_hub_broadcasts_total",
			Help: "Total number of messages broadcast to a topic, by message type",
		},
		[]string{"type"},
	)

	HubQueueOverflowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackingd_hub_queue_overflows_total",
			Help: "Total number of drop-oldest events across all connection outboxes",
		},
	)

	HubClientsDisconnectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackingd_hub_clients_disconnected_total",
			Help: "Total number of clients force-disconnected after repeated queue overflow",
		},
	)

	// Notification dispatcher metrics (§4.6).
	NotificationsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackingd_notifications_delivered_total",
			Help: "Total number of notifications delivered, by method",
		},
		[]string{"method"},
	)

	NotificationsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackingd_notifications_failed_total",
			Help: "Total number of notifications that failed permanently, by method",
		},
		[]string{"method"},
	)

	NotificationDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackingd_notification_delivery_duration_seconds",
			Help:    "Time taken for one delivery attempt, by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	NotificationsRecoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trackingd_notifications_recovered_total",
			Help: "Total number of notification jobs enqueued by the orphan sweep for events that had no job row at all",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsIngestedTotal,
		EventsDuplicateTotal,
		IngestionDuration,
		PollTicksTotal,
		PollDuration,
		OrphansRecoveredTotal,
		HubActiveConnections,
		HubBroadcastsTotal,
		HubQueueOverflowsTotal,
		HubClientsDisconnectedTotal,
		NotificationsDeliveredTotal,
		NotificationsFailedTotal,
		NotificationDeliveryDuration,
		NotificationsRecoveredTotal,
	)
}

// Handler returns the promhttp handler mounted at APIConfig.MetricsPath.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation and reports it to a histogram vec on Observe.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time against histogram, labeled.
func (t *Timer) ObserveDuration(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
