package rules

import (
	"context"
	"fmt"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// PrimaryActiveListing enforces at most one ACTIVE listing per property.
// The check reads the live listing store, so it races with concurrent
// writes; the store's uniqueness constraint is the final arbiter.
type PrimaryActiveListing struct {
	baseRule
}

func NewPrimaryActiveListing() *PrimaryActiveListing {
	return &PrimaryActiveListing{baseRule{
		id:          "primary-active-listing",
		name:        "Primary Active Listing",
		description: "A property may have at most one ACTIVE listing at a time",
		triggers:    []governance.EventType{governance.EventListingCreated, governance.EventListingUpdated},
		priority:    95,
		version:     "1.0.0",
	}}
}

func (r *PrimaryActiveListing) Evaluate(ctx context.Context, event *governance.Event, ec *governance.EvalContext) (*governance.RuleResult, error) {
	subject := event.Subject()
	if subject == nil || subject.Status != governance.StatusActive || subject.PropertyID == "" {
		return r.pass(), nil
	}

	existingID, err := ec.Listings.FindActiveByPropertyID(ctx, subject.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("active-listing lookup for property %s: %w", subject.PropertyID, err)
	}
	if existingID == "" || existingID == subject.ID {
		return r.pass(), nil
	}

	return r.fail(governance.SeverityError, governance.Block(),
		fmt.Sprintf("property %s already has ACTIVE listing %s; listing %s cannot also be ACTIVE",
			subject.PropertyID, existingID, subject.ID)), nil
}

// conflictTrustBand is the maximum trust-score gap within which two
// sources are considered peers; price disputes between peers cannot be
// settled by trust alone and get flagged for review instead.
const conflictTrustBand = 20

// conflictPriceDriftPct is the price divergence, in percent, above which
// two peer sources are considered in conflict.
const conflictPriceDriftPct = 20.0

// ConflictDetection flags updates where two similarly-trusted sources
// disagree materially on price. Neither source outranks the other, so the
// engine cannot pick a winner; a human gets the flag.
type ConflictDetection struct {
	baseRule
}

func NewConflictDetection() *ConflictDetection {
	return &ConflictDetection{baseRule{
		id:          "conflict-auto-detection",
		name:        "Source Conflict Detection",
		description: "Flag material price disagreement between similarly-trusted sources for manual review",
		triggers:    []governance.EventType{governance.EventListingUpdated},
		priority:    50,
		version:     "1.0.0",
	}}
}

func (r *ConflictDetection) Evaluate(_ context.Context, event *governance.Event, ec *governance.EvalContext) (*governance.RuleResult, error) {
	current := event.Subject()
	previous := event.PreviousListing()
	if current == nil || previous == nil {
		return r.pass(), nil
	}
	if current.SourceID == "" || previous.SourceID == "" || current.SourceID == previous.SourceID {
		return r.pass(), nil
	}

	curScore := ec.Trust.Score(current.Source, current.SourceID)
	prevScore := ec.Trust.Score(previous.Source, previous.SourceID)
	gap := curScore - prevScore
	if gap < 0 {
		gap = -gap
	}
	if gap > conflictTrustBand {
		return r.pass(), nil
	}

	drift := priceDriftPct(previous.Price, current.Price)
	if drift <= conflictPriceDriftPct {
		return r.pass(), nil
	}

	reason := fmt.Sprintf(
		"sources %s (trust %d) and %s (trust %d) disagree on price by %s (%.2f vs %.2f)",
		previous.SourceID, prevScore, current.SourceID, curScore,
		pct(drift), previous.Price, current.Price)
	return r.fail(governance.SeverityWarning, governance.Flag(map[string]interface{}{
		governance.DetailTargetID: current.ID,
		governance.DetailField:    "price",
	}), reason), nil
}
