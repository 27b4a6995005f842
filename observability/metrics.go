package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryMetrics records claimtrie query activity: request counts by method
// and outcome, rewind depth, and rewind failures by cause.
type QueryMetrics struct {
	requests       *prometheus.CounterVec
	rewindDepth    prometheus.Histogram
	rewindFailures *prometheus.CounterVec
}

var (
	queryMetricsOnce sync.Once
	queryRegistry    *QueryMetrics
)

// Queries returns the lazily-initialised query metrics registry. Repeated
// calls share one registration.
func Queries() *QueryMetrics {
	queryMetricsOnce.Do(func() {
		queryRegistry = &QueryMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lbrycrd",
				Subsystem: "claimtrie",
				Name:      "queries_total",
				Help:      "Total claimtrie queries segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			rewindDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "lbrycrd",
				Subsystem: "claimtrie",
				Name:      "rewind_depth_blocks",
				Help:      "Distribution of block decrements performed by historical queries.",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
			}),
			rewindFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lbrycrd",
				Subsystem: "claimtrie",
				Name:      "rewind_failures_total",
				Help:      "Rewind aborts segmented by cause.",
			}, []string{"cause"}),
		}
		prometheus.MustRegister(queryRegistry.requests, queryRegistry.rewindDepth, queryRegistry.rewindFailures)
	})
	return queryRegistry
}

// ObserveQuery counts one finished query.
func (m *QueryMetrics) ObserveQuery(method, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}

// ObserveRewindDepth records how many blocks a historical query walked.
func (m *QueryMetrics) ObserveRewindDepth(depth uint32) {
	if m == nil {
		return
	}
	m.rewindDepth.Observe(float64(depth))
}

// ObserveRewindFailure counts one aborted rewind by cause.
func (m *QueryMetrics) ObserveRewindFailure(cause string) {
	if m == nil {
		return
	}
	m.rewindFailures.WithLabelValues(cause).Inc()
}
