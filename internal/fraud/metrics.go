package fraud

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_evaluations_total",
		Help: "Total number of fraud evaluations by outcome",
	}, []string{"result"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fraud_evaluation_duration_seconds",
		Help:    "Duration of full fraud evaluations including evidence collection",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	evidenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_evidence_failures_total",
		Help: "Total number of evidence chains that produced no result",
	}, []string{"chain"})

	riskLevelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_risk_levels_total",
		Help: "Total number of completed evaluations by risk level",
	}, []string{"level"})

	queuedEvaluations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fraud_evaluations_queued",
		Help: "Number of evaluations waiting in the worker queue",
	})
)

func recordEvaluation(result string, started time.Time) {
	evaluationsTotal.WithLabelValues(result).Inc()
	evaluationDuration.Observe(time.Since(started).Seconds())
}

func recordEvidenceFailure(chain string) {
	evidenceFailuresTotal.WithLabelValues(chain).Inc()
}

func recordRiskLevel(level RiskLevel) {
	riskLevelsTotal.WithLabelValues(string(level)).Inc()
}
