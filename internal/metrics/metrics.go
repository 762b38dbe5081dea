// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imrishuroy/returnguard/internal/returns"
	"github.com/imrishuroy/returnguard/internal/risk"
)

var (
	OrdersScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "returnguard_orders_scored_total",
			Help: "Total number of orders scored, by risk label and source",
		},
		[]string{"risk_label", "source"},
	)

	RiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "returnguard_risk_score",
			Help:    "Distribution of order risk scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	EstimatedSavings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "returnguard_estimated_savings_total",
			Help: "Sum of estimated savings from preventive actions",
		},
		[]string{"risk_label"},
	)

	ReturnDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "returnguard_return_decisions_total",
			Help: "Total number of return dispositions, by recommendation",
		},
		[]string{"recommendation"},
	)

	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "returnguard_webhooks_received_total",
			Help: "Total number of platform webhooks, by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisJobsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "returnguard_analysis_jobs_failed_total",
			Help: "Total number of analysis jobs that failed",
		},
	)
)

// ObserveAnalysis records one scored order.
func ObserveAnalysis(a risk.RiskAnalysis, source string) {
	label := string(a.RiskLabel)
	OrdersScored.WithLabelValues(label, source).Inc()
	RiskScore.Observe(float64(a.RiskScore))
	if a.EstimatedSavings > 0 {
		EstimatedSavings.WithLabelValues(label).Add(a.EstimatedSavings)
	}
}

// ObserveReturnDecision records one disposition.
func ObserveReturnDecision(d returns.Decision) {
	ReturnDecisions.WithLabelValues(string(d.Recommendation)).Inc()
}
