package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cesac_search_total",
		Help: "Search requests by outcome",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cesac_search_duration_seconds",
		Help:    "Wall time of one search request",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	searchExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cesac_search_expanded_nodes",
		Help:    "Nodes expanded per search request",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cesac_graph_nodes",
		Help: "Nodes in the most recently searched graph",
	})
)

// outcome labels
const (
	outcomeMove      = "move"
	outcomeNoMoves   = "no_legal_moves"
	outcomeCancelled = "cancelled"
	outcomeError     = "error"
)

func observe(res Result, outcome string) {
	searchTotal.WithLabelValues(outcome).Inc()
	searchDuration.Observe(res.Duration.Seconds())
	searchExpanded.Observe(float64(res.Expanded))
	graphNodes.Set(float64(res.Nodes))
}
