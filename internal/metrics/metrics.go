// Package metrics exposes Prometheus counters for test assembly and grading.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TestsAssembled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "tests_assembled_total",
		Help:      "Tests created, by selection mode.",
	}, []string{"mode"})

	AssemblyShortfall = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "assembly_shortfall_questions_total",
		Help:      "Questions requested but not available when tests were assembled.",
	})

	AttemptsGraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "practice",
		Name:      "attempts_graded_total",
		Help:      "Attempts graded and stored.",
	})

	AttemptPercentage = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "practice",
		Name:      "attempt_percentage_score",
		Help:      "Distribution of attempt percentage scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
