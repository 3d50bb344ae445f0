package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector manages Prometheus metrics for the governance engine.
type Collector struct {
	eventsProcessed    *prometheus.CounterVec
	ruleEvaluations    *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	actionsExecuted    *prometheus.CounterVec
	actionFailures     *prometheus.CounterVec
	auditWriteFailures prometheus.Counter
}

// NewCollector registers the governance metrics with the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		eventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_events_processed_total",
			Help: "Governance events processed, by event type and overall outcome",
		}, []string{"event_type", "outcome"}),
		ruleEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_rule_evaluations_total",
			Help: "Individual rule evaluations, by rule and verdict",
		}, []string{"rule_id", "verdict"}),
		evaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "governance_rule_evaluation_duration_seconds",
			Help:    "Duration of individual rule evaluations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		actionsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_actions_executed_total",
			Help: "Remediation actions executed, by action type",
		}, []string{"action_type"}),
		actionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_action_failures_total",
			Help: "Remediation actions that failed to execute, by action type",
		}, []string{"action_type"}),
		auditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "governance_audit_write_failures_total",
			Help: "Audit entries that failed to persist",
		}),
	}
}

// ObserveEvent records one processed event with its overall outcome.
func (c *Collector) ObserveEvent(eventType, outcome string) {
	if c == nil {
		return
	}
	c.eventsProcessed.WithLabelValues(eventType, outcome).Inc()
}

// ObserveRuleEvaluation records one rule evaluation and its duration.
func (c *Collector) ObserveRuleEvaluation(ruleID, verdict string, d time.Duration) {
	if c == nil {
		return
	}
	c.ruleEvaluations.WithLabelValues(ruleID, verdict).Inc()
	c.evaluationDuration.Observe(d.Seconds())
}

// ObserveAction records one executed remediation action.
func (c *Collector) ObserveAction(actionType string) {
	if c == nil {
		return
	}
	c.actionsExecuted.WithLabelValues(actionType).Inc()
}

// ObserveActionFailure records a remediation action that failed.
func (c *Collector) ObserveActionFailure(actionType string) {
	if c == nil {
		return
	}
	c.actionFailures.WithLabelValues(actionType).Inc()
}

// ObserveAuditWriteFailure records an audit entry that failed to persist.
func (c *Collector) ObserveAuditWriteFailure() {
	if c == nil {
		return
	}
	c.auditWriteFailures.Inc()
}
