package obs

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store-level query metrics.
var (
	storeQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authstore_queries_total",
			Help: "Total number of store operations.",
		},
		[]string{"op"},
	)

	storeQueryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authstore_query_errors_total",
			Help: "Store operations that returned a storage fault.",
		},
		[]string{"op"},
	)

	storeQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authstore_query_duration_seconds",
			Help:    "Store operation latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

var registerOnce sync.Once

// Init registers the store metrics with the default registry. Safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(storeQueriesTotal, storeQueryErrors, storeQueryDuration)
	})
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveQuery records one finished store operation. Absent rows are not
// storage faults; callers pass a nil error for them.
func ObserveQuery(op string, d time.Duration, err error) {
	storeQueriesTotal.WithLabelValues(op).Inc()
	storeQueryDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		storeQueryErrors.WithLabelValues(op).Inc()
	}
}
