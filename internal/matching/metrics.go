package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_swipes_total",
			Help: "Total number of recorded swipes",
		},
		[]string{"action"},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_matches_total",
			Help: "Total number of matches created",
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_match_notifications_total",
			Help: "Match notification outcomes",
		},
		[]string{"outcome"},
	)

	candidateQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidate_queries_total",
			Help: "Candidate feed queries by strategy",
		},
		[]string{"strategy"},
	)

	candidateResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_candidate_results",
			Help:    "Result counts per candidate feed query",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		},
		[]string{"strategy"},
	)
)

func RecordSwipeMetric(action string) {
	swipesTotal.WithLabelValues(action).Inc()
}

func RecordMatchMetric() {
	matchesTotal.Inc()
}

func RecordNotificationMetric(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

func RecordCandidateQueryMetric(strategy string, results int) {
	candidateQueries.WithLabelValues(strategy).Inc()
	candidateResults.WithLabelValues(strategy).Observe(float64(results))
}
