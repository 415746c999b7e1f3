package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_listing_fetches_total",
			Help: "Total number of listing fetches by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	ListingFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_listing_fetch_duration_seconds",
			Help:    "Duration of listing fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	SupersededResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directory_superseded_responses_total",
			Help: "Listing responses discarded because a newer request was issued",
		},
	)

	PageClamps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directory_page_clamps_total",
			Help: "Times the requested page exceeded totalPages and was clamped",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_cache_lookups_total",
			Help: "Listing cache lookups by store and result",
		},
		[]string{"store", "result"},
	)

	ListingSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directory_listing_sessions_active",
			Help: "Number of open websocket listing sessions",
		},
	)
)
