package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	casesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casebinder",
			Name:      "cases_total",
			Help:      "Cases processed by result (ok, validation, decode, layout, internal)",
		},
		[]string{"result"},
	)

	pagesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casebinder",
			Name:      "pages_emitted_total",
			Help:      "Output pages emitted by page kind",
		},
		[]string{"kind"},
	)

	caseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "casebinder",
			Name:      "case_duration_seconds",
			Help:      "Time spent laying out a single case",
			Buckets:   prometheus.DefBuckets,
		},
	)

	jobsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "casebinder",
			Name:      "jobs_inflight",
			Help:      "Background assembly jobs queued or running",
		},
	)

	registerOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(casesTotal, pagesEmitted, caseDuration, jobsInflight)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveCase records one finished case.
func ObserveCase(result string, dur time.Duration) {
	casesTotal.WithLabelValues(result).Inc()
	caseDuration.Observe(dur.Seconds())
}

func AddPages(kind string, n int) { pagesEmitted.WithLabelValues(kind).Add(float64(n)) }

func JobQueued()   { jobsInflight.Inc() }
func JobFinished() { jobsInflight.Dec() }
