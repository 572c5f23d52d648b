package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors. Registered once via promauto; the default registry
// is served at /metrics by promhttp.
var (
	httpRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embed_http_requests_total",
		Help: "Total number of HTTP requests",
	})
	httpErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embed_http_errors_total",
		Help: "Total number of HTTP 5xx errors",
	})

	cardsInsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "embed_cards_inserted_total",
		Help: "Embed cards inserted into chat documents, by media kind",
	}, []string{"kind"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "embed_resolutions_total",
		Help: "Media resolutions attempted, by kind and outcome",
	}, []string{"kind", "outcome"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embed_cache_hits_total",
		Help: "Resolved-media cache hits",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embed_cache_misses_total",
		Help: "Resolved-media cache misses",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "embed_sessions_active",
		Help: "Chat sessions currently connected over the event bridge",
	})

	scrollSnapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embed_scroll_snaps_total",
		Help: "Bottom re-snaps issued by the scroll controller",
	})
)

func recordResolution(kind string, err error, empty bool) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case empty:
		outcome = "empty"
	}
	resolutionsTotal.WithLabelValues(kind, outcome).Inc()
}
