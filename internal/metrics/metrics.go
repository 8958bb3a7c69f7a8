package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yatube_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yatube_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "yatube_http_in_flight_requests",
			Help: "Number of requests being served",
		},
	)

	PageCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yatube_page_cache_results_total",
			Help: "Page cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ThumbnailJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yatube_thumbnail_jobs_total",
			Help: "Thumbnail jobs by outcome (done, failed, dropped)",
		},
		[]string{"outcome"},
	)
)

// Registry holds the collectors above; the /metrics endpoint serves it.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		InFlightRequests,
		PageCacheResults,
		ThumbnailJobs,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}
