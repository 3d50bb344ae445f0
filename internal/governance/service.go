package governance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/metrics"
)

// SystemClaimant is the claimant recorded on claims the engine files
// itself.
const SystemClaimant = "SYSTEM"

// Decision is what a caller receives for one processed event: the full
// rule verdicts plus a human-readable log of every side effect executed.
type Decision struct {
	Results         []*RuleResult `json:"results"`
	ActionsExecuted []string      `json:"actions_executed"`
}

// Outcome summarizes the decision's result set.
func (d *Decision) Outcome() Outcome {
	return OutcomeOf(d.Results)
}

// RuleConfig is the admin view of one registered rule merged with its
// live override status.
type RuleConfig struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      RuleStatus  `json:"status"`
	Triggers    []EventType `json:"trigger_events"`
	Priority    int         `json:"priority"`
	Version     string      `json:"version"`
}

// Service is the public governance facade. It runs the evaluation engine,
// then executes the actions the failed results require: status
// auto-corrections, claim creation, and the owner notifications that
// follow from them. Rule evaluation itself stays side-effect free; every
// mutation funnels through here.
type Service struct {
	engine   *Engine
	catalog  *Catalog
	listings ListingStore
	claims   ClaimStore
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewService creates the governance service.
func NewService(
	engine *Engine,
	catalog *Catalog,
	listings ListingStore,
	claims ClaimStore,
	notifier Notifier,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Service {
	return &Service{
		engine:   engine,
		catalog:  catalog,
		listings: listings,
		claims:   claims,
		notifier: notifier,
		logger:   logger,
		metrics:  collector,
	}
}

// ProcessEvent is the sole entry point for triggering governance. It
// evaluates the event, executes any required actions, and returns both
// the verdicts and the log of actions taken. Enforcement of BLOCK
// verdicts is the caller's job.
func (s *Service) ProcessEvent(ctx context.Context, event *Event, user *User) (*Decision, error) {
	if event == nil {
		return nil, fmt.Errorf("event is required")
	}
	if !IsKnownEventType(event.Type) {
		return nil, fmt.Errorf("unknown event type: %q", event.Type)
	}

	results := s.engine.Evaluate(ctx, event, user)
	decision := &Decision{
		Results:         results,
		ActionsExecuted: s.executeActions(ctx, results),
	}

	s.metrics.ObserveEvent(string(event.Type), string(decision.Outcome()))
	s.logger.Info("Governance event processed",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("outcome", string(decision.Outcome())),
		zap.Int("rules_evaluated", len(results)),
		zap.Int("actions_executed", len(decision.ActionsExecuted)),
	)
	return decision, nil
}

// executeActions walks the result set in evaluation order and applies
// every executable action. A failed action is logged, counted, excluded
// from the returned log, and never aborts the remaining actions.
func (s *Service) executeActions(ctx context.Context, results []*RuleResult) []string {
	executed := make([]string, 0)
	for _, result := range results {
		if !result.Actionable() {
			continue
		}
		switch result.Action.Type {
		case ActionAutoCorrect:
			executed = append(executed, s.applyAutoCorrect(ctx, result)...)
		case ActionCreateClaim:
			executed = append(executed, s.applyCreateClaim(ctx, result)...)
		default:
			// BLOCK, FLAG, DOWNGRADE_TRUST and MUTATE_PAYLOAD are
			// informational for the caller; no service-level side effect.
		}
	}
	return executed
}

// applyAutoCorrect persists the corrected field value. When the
// correction suspends a listing that has an owning broker, the owner is
// notified with the rule's joined reasons.
func (s *Service) applyAutoCorrect(ctx context.Context, result *RuleResult) []string {
	targetID := result.Action.DetailString(DetailTargetID)
	field := result.Action.DetailString(DetailField)
	newValue := result.Action.DetailString(DetailNewValue)
	if targetID == "" || field == "" {
		s.logger.Warn("Auto-correct action missing target or field",
			zap.String("rule_id", result.RuleID))
		s.metrics.ObserveActionFailure(string(ActionAutoCorrect))
		return nil
	}

	if err := s.listings.UpdateField(ctx, targetID, field, newValue); err != nil {
		s.logger.Error("Failed to apply auto-correction",
			zap.String("rule_id", result.RuleID),
			zap.String("listing_id", targetID),
			zap.String("field", field),
			zap.Error(err),
		)
		s.metrics.ObserveActionFailure(string(ActionAutoCorrect))
		return nil
	}

	s.metrics.ObserveAction(string(ActionAutoCorrect))
	executed := []string{fmt.Sprintf("Updated listing %s %s to %s", targetID, field, newValue)}

	if field == "status" && newValue == string(StatusSuspended) {
		if owner := s.ownerOf(ctx, targetID); owner != "" {
			reason := strings.Join(result.Reasons, "; ")
			if err := s.notifier.ListingSuspended(ctx, owner, targetID, reason); err != nil {
				s.logger.Warn("Failed to notify owner of suspension",
					zap.String("listing_id", targetID),
					zap.String("broker_id", owner),
					zap.Error(err),
				)
			} else {
				executed = append(executed, fmt.Sprintf("Notified broker %s: listing %s suspended", owner, targetID))
			}
		}
	}
	return executed
}

// applyCreateClaim persists a system-filed claim and notifies the target
// listing's owner when one exists.
func (s *Service) applyCreateClaim(ctx context.Context, result *RuleResult) []string {
	targetID := result.Action.DetailString(DetailTargetListingID)
	if targetID == "" {
		s.logger.Warn("Create-claim action missing target listing",
			zap.String("rule_id", result.RuleID))
		s.metrics.ObserveActionFailure(string(ActionCreateClaim))
		return nil
	}

	claimant := result.Action.DetailString(DetailClaimantID)
	if claimant == "" {
		claimant = SystemClaimant
	}

	claim := &Claim{
		ID:         systemClaimID(),
		ListingID:  targetID,
		ClaimantID: claimant,
		Type:       ClaimType(result.Action.DetailString(DetailClaimType)),
		Status:     ClaimOpen,
		Evidence:   result.Action.DetailString(DetailEvidence),
		Notes:      fmt.Sprintf("Automatically filed by rule %q", result.RuleName),
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		s.logger.Error("Failed to create system claim",
			zap.String("rule_id", result.RuleID),
			zap.String("listing_id", targetID),
			zap.Error(err),
		)
		s.metrics.ObserveActionFailure(string(ActionCreateClaim))
		return nil
	}

	s.metrics.ObserveAction(string(ActionCreateClaim))
	executed := []string{fmt.Sprintf("Created %s claim %s against listing %s", claim.Type, claim.ID, targetID)}

	if owner := s.ownerOf(ctx, targetID); owner != "" {
		if err := s.notifier.OwnerClaimFiled(ctx, owner, targetID, claim.Type); err != nil {
			s.logger.Warn("Failed to notify owner of claim",
				zap.String("listing_id", targetID),
				zap.String("broker_id", owner),
				zap.Error(err),
			)
		} else {
			executed = append(executed, fmt.Sprintf("Notified broker %s of %s claim against listing %s", owner, claim.Type, targetID))
		}
	}
	return executed
}

// ownerOf returns the broker owning the listing, or "" when the listing
// has no owner or cannot be read.
func (s *Service) ownerOf(ctx context.Context, listingID string) string {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		s.logger.Warn("Failed to load listing for owner lookup",
			zap.String("listing_id", listingID),
			zap.Error(err),
		)
		return ""
	}
	if listing == nil {
		return ""
	}
	return listing.BrokerID
}

// RuleConfig returns every registered rule merged with its live override
// status, for the admin rule-management surface.
func (s *Service) RuleConfig(ctx context.Context) []RuleConfig {
	rules := s.catalog.All()
	configs := make([]RuleConfig, 0, len(rules))
	for _, rule := range rules {
		configs = append(configs, RuleConfig{
			ID:          rule.ID(),
			Name:        rule.Name(),
			Description: rule.Description(),
			Status:      s.catalog.StatusOf(ctx, rule.ID()),
			Triggers:    rule.Triggers(),
			Priority:    rule.Priority(),
			Version:     rule.Version(),
		})
	}
	return configs
}

// UpdateRuleStatus toggles a rule's override status. Returns false for
// unknown rules or invalid status values.
func (s *Service) UpdateRuleStatus(ctx context.Context, ruleID string, status RuleStatus) bool {
	if !ValidRuleStatus(status) {
		return false
	}
	return s.catalog.SetStatus(ctx, ruleID, status)
}

func systemClaimID() string {
	return "SYS-CLM-" + strings.ToUpper(uuid.NewString()[:8])
}
