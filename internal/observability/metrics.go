package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsCreatedTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "listings_created_total", Help: "Total traveler listings created"})
	ConnectionRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "connection_requests_total", Help: "Total connection requests recorded"})
	GroupsFormedTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "groups_formed_total", Help: "Total groups created from accepted connections"})
	GroupsDisbandedTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "groups_disbanded_total", Help: "Total groups disbanded"})
	JoinRequestsTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "join_requests_total", Help: "Total group join requests recorded"})
	JoinAcceptsTotal        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "join_accepts_total", Help: "Total accepted group join requests"})
	TxConflictsTotal        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "store_tx_conflicts_total", Help: "Total store transaction conflicts retried"})

	NotificationsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "notifications_emitted_total", Help: "Total notification documents written"})
	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "halfride", Name: "notification_failures_total", Help: "Total notification writes that failed and were dropped"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "halfride", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "halfride",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
