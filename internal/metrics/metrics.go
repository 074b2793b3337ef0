package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendoralerts_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vendoralerts_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// Dispatched counts finished dispatch attempts by outcome (sent, retry, failed).
	Dispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendoralerts_notifications_dispatched_total",
			Help: "Dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)

	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendoralerts_deliveries_total",
			Help: "Per-user deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	Enqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendoralerts_enqueued_total",
			Help: "Notification requests enqueued by source",
		},
		[]string{"source"},
	)

	CatalogLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendoralerts_catalog_lookups_total",
			Help: "Catalog API name lookups by resource and status",
		},
		[]string{"resource", "status"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vendoralerts_dispatch_queue_depth",
			Help: "Requests held in the dispatcher's in-memory queue",
		},
	)
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(RequestCount, RequestDuration, Dispatched, Deliveries,
			Enqueued, CatalogLookups, QueueDepth)
	})
}
