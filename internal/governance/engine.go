package governance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/metrics"
)

// Engine runs every applicable rule against an event, sequentially and in
// priority order. It is a reporting engine, not a fail-fast gate: a rule
// failure never stops the pass, and gating decisions belong to the caller.
type Engine struct {
	catalog  *Catalog
	recorder Recorder
	trust    TrustScorer
	listings ListingStore
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewEngine creates an evaluation engine. recorder and collector may be
// nil, in which case auditing and metrics are skipped.
func NewEngine(
	catalog *Catalog,
	recorder Recorder,
	trust TrustScorer,
	listings ListingStore,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Engine {
	return &Engine{
		catalog:  catalog,
		recorder: recorder,
		trust:    trust,
		listings: listings,
		logger:   logger,
		metrics:  collector,
	}
}

// Evaluate runs every active rule triggered by the event, in priority
// order, and returns the full result list in evaluation order. All rules
// in one pass share a single evaluation context. The result set is handed
// to the audit recorder before being returned.
func (e *Engine) Evaluate(ctx context.Context, event *Event, user *User) []*RuleResult {
	rules := e.catalog.RulesForEvent(ctx, event.Type)

	ec := &EvalContext{
		Now:      time.Now(),
		Actor:    user,
		Listings: e.listings,
		Trust:    e.trust,
	}

	results := make([]*RuleResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, e.evaluateRule(ctx, rule, event, ec))
	}

	if e.recorder != nil {
		e.recorder.Record(ctx, event, results)
	}

	e.logger.Debug("Event evaluated",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int("rules_evaluated", len(results)),
	)
	return results
}

// evaluateRule runs a single rule, converting errors and panics into a
// synthesized CRITICAL result so one broken rule never crashes the pass.
func (e *Engine) evaluateRule(ctx context.Context, rule Rule, event *Event, ec *EvalContext) (result *RuleResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Rule evaluation panicked",
				zap.String("rule_id", rule.ID()),
				zap.String("event_id", event.ID),
				zap.Any("panic", r),
			)
			result = systemFailure(rule, fmt.Errorf("panic: %v", r))
		}
		e.metrics.ObserveRuleEvaluation(rule.ID(), verdict(result), time.Since(start))
	}()

	result, err := rule.Evaluate(ctx, event, ec)
	if err != nil {
		e.logger.Error("Rule evaluation failed",
			zap.String("rule_id", rule.ID()),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return systemFailure(rule, err)
	}
	if result == nil {
		return systemFailure(rule, fmt.Errorf("rule returned no result"))
	}
	return result
}

// systemFailure builds the CRITICAL BLOCK result recorded when a rule
// cannot be evaluated at all.
func systemFailure(rule Rule, err error) *RuleResult {
	return &RuleResult{
		RuleID:   rule.ID(),
		RuleName: rule.Name(),
		Passed:   false,
		Severity: SeverityCritical,
		Reasons:  []string{fmt.Sprintf("rule evaluation failed with system error: %v", err)},
		Action:   Block(),
	}
}

func verdict(result *RuleResult) string {
	switch {
	case result == nil:
		return "error"
	case result.Severity == SeverityCritical && !result.Passed:
		return "error"
	case result.Passed:
		return "passed"
	default:
		return "failed"
	}
}
