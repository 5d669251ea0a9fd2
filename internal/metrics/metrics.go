// Package metrics exposes Prometheus collectors for the fetcher.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetcherItemsTotal        *prometheus.CounterVec
	fetcherBytesTotal        prometheus.Counter
	fetcherPageRequestsTotal *prometheus.CounterVec
	fetcherInFlightFetches   prometheus.Gauge
	fetcherKeywordsTotal     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetcherItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetcher_items_total",
				Help: "Total number of candidate URLs processed, labeled by outcome reason.",
			},
			[]string{"reason"},
		)

		fetcherBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fetcher_bytes_total",
				Help: "Total number of asset bytes written to disk.",
			},
		)

		fetcherPageRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetcher_page_requests_total",
				Help: "Total number of search page requests, labeled by result.",
			},
			[]string{"result"},
		)

		fetcherInFlightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fetcher_in_flight_fetches",
				Help: "Number of downloads currently holding a fetch permit.",
			},
		)

		fetcherKeywordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fetcher_keywords_total",
				Help: "Total number of keyword sessions completed.",
			},
		)
	})
}

// ItemProcessed increments the per-reason item counter.
func ItemProcessed(reason string) {
	if fetcherItemsTotal == nil {
		return
	}
	fetcherItemsTotal.WithLabelValues(reason).Inc()
}

// BytesWritten adds to the byte counter after a successful write.
func BytesWritten(n int64) {
	if fetcherBytesTotal == nil || n <= 0 {
		return
	}
	fetcherBytesTotal.Add(float64(n))
}

// PageRequest increments the page request counter for a result label
// ("ok", "end", "error").
func PageRequest(result string) {
	if fetcherPageRequestsTotal == nil {
		return
	}
	fetcherPageRequestsTotal.WithLabelValues(result).Inc()
}

// SetInFlight records the current in-flight fetch count.
func SetInFlight(n int) {
	if fetcherInFlightFetches == nil {
		return
	}
	fetcherInFlightFetches.Set(float64(n))
}

// KeywordDone increments the completed keyword counter.
func KeywordDone() {
	if fetcherKeywordsTotal == nil {
		return
	}
	fetcherKeywordsTotal.Inc()
}
