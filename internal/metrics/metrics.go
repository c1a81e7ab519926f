package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_fetches_total",
			Help: "Outbound page fetches by page kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	ProductsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storesync_products_extracted_total",
			Help: "Product pages turned into records.",
		},
	)

	NotProductPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storesync_not_product_pages_total",
			Help: "Fetched pages without a product-detail region.",
		},
	)

	MergeSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storesync_merge_skipped_total",
			Help: "Records dropped by the merge stage for lack of an identifier.",
		},
	)

	SyncWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_sync_writes_total",
			Help: "Store writes by action (insert, update, soft_delete, failed).",
		},
		[]string{"action"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_runs_total",
			Help: "Completed pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storesync_run_duration_seconds",
			Help:    "Duration of full pipeline runs.",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400},
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storesync_http_requests_total",
			Help: "Requests served by the trigger surface.",
		},
		[]string{"method", "path", "status"},
	)
)
