package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluator requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 90},
	}, []string{"role", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluator failures",
	}, []string{"role", "model"})
)

const (
	roleJudge   = "judge"
	roleAuditor = "auditor"
)
