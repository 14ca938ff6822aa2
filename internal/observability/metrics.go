// Package observability holds Prometheus collectors and OpenTelemetry tracing setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloh_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bloh_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikeToggles counts like toggles by resulting state ("liked" or "unliked").
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloh_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"state"})

	// ViewEvents counts view requests by outcome ("counted", "deduplicated", "skipped").
	ViewEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloh_view_events_total",
		Help: "Total number of view requests by outcome",
	}, []string{"outcome"})

	// SyncItems counts synchronized items by kind ("ingredient", "step") and applied action.
	SyncItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloh_sync_items_total",
		Help: "Total number of synchronized items by kind and action",
	}, []string{"kind", "action"})

	// SubscriberMails counts publication notices by result ("sent", "failed").
	SubscriberMails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloh_subscriber_mails_total",
		Help: "Total number of publication notices mailed to subscribers",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
