package rules

import (
	"context"
	"fmt"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// PublishSuspension takes a listing off the market the moment an
// ownership or duplicate claim is filed against it. Data-accuracy claims
// leave the listing live while they are investigated.
type PublishSuspension struct {
	baseRule
}

func NewPublishSuspension() *PublishSuspension {
	return &PublishSuspension{baseRule{
		id:          "publish-suspension",
		name:        "Publish Suspension on Claim",
		description: "Suspend a listing when an OWNERSHIP or DUPLICATE claim is filed against it",
		triggers:    []governance.EventType{governance.EventClaimFiled},
		priority:    100,
		version:     "1.1.0",
	}}
}

func (r *PublishSuspension) Evaluate(_ context.Context, event *governance.Event, _ *governance.EvalContext) (*governance.RuleResult, error) {
	claim := event.Payload.Claim
	if claim == nil {
		return r.pass(), nil
	}
	if claim.Type != governance.ClaimOwnership && claim.Type != governance.ClaimDuplicate {
		return r.pass(fmt.Sprintf("%s claims do not suspend the listing", claim.Type)), nil
	}
	return r.fail(
		governance.SeverityWarning,
		governance.AutoCorrectStatus(claim.ListingID, governance.StatusSuspended),
		fmt.Sprintf("%s claim %s filed against listing %s; suspending pending resolution",
			claim.Type, claim.ID, claim.ListingID),
	), nil
}

// ClaimResolution restores a listing's lifecycle state when a claim
// against it is resolved: an upheld claim archives the listing, a
// rejected claim puts it back on the market.
type ClaimResolution struct {
	baseRule
}

func NewClaimResolution() *ClaimResolution {
	return &ClaimResolution{baseRule{
		id:          "claim-resolution",
		name:        "Claim Resolution",
		description: "Archive the listing when a claim is upheld, reactivate it when the claim is rejected",
		triggers:    []governance.EventType{governance.EventClaimResolved},
		priority:    100,
		version:     "1.0.0",
	}}
}

func (r *ClaimResolution) Evaluate(_ context.Context, event *governance.Event, _ *governance.EvalContext) (*governance.RuleResult, error) {
	claim := event.Payload.Claim
	if claim == nil {
		return r.pass(), nil
	}
	switch claim.Resolution {
	case governance.ResolutionUphold:
		return r.fail(
			governance.SeverityWarning,
			governance.AutoCorrectStatus(claim.ListingID, governance.StatusArchived),
			fmt.Sprintf("claim %s upheld; archiving listing %s", claim.ID, claim.ListingID),
		), nil
	case governance.ResolutionReject:
		// TODO: restore the status the listing held before suspension once
		// listing status history is persisted, instead of assuming ACTIVE.
		return r.fail(
			governance.SeverityWarning,
			governance.AutoCorrectStatus(claim.ListingID, governance.StatusActive),
			fmt.Sprintf("claim %s rejected; reactivating listing %s", claim.ID, claim.ListingID),
		), nil
	default:
		return r.warnPass(fmt.Sprintf("claim %s resolved without a recognized resolution (%q)",
			claim.ID, claim.Resolution)), nil
	}
}

// AutoClaim files a DUPLICATE claim on the system's behalf when a listing
// tries to go active against a property that already has an active
// listing. It complements PrimaryActiveListing: that rule blocks the
// event, this one creates the paper trail for a human to resolve.
type AutoClaim struct {
	baseRule
}

func NewAutoClaim() *AutoClaim {
	return &AutoClaim{baseRule{
		id:          "auto-claim-creation",
		name:        "Automatic Duplicate Claim",
		description: "File a DUPLICATE claim when a listing proposes ACTIVE for a property that already has one",
		triggers:    []governance.EventType{governance.EventListingCreated, governance.EventListingUpdated},
		priority:    70,
		version:     "1.0.0",
	}}
}

func (r *AutoClaim) Evaluate(ctx context.Context, event *governance.Event, ec *governance.EvalContext) (*governance.RuleResult, error) {
	subject := event.Subject()
	if subject == nil || subject.Status != governance.StatusActive || subject.PropertyID == "" {
		return r.pass(), nil
	}

	existingID, err := ec.Listings.FindActiveByPropertyID(ctx, subject.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup for property %s: %w", subject.PropertyID, err)
	}
	if existingID == "" || existingID == subject.ID {
		return r.pass(), nil
	}

	evidence := fmt.Sprintf("listing %s attempted to go ACTIVE for property %s while listing %s is already ACTIVE",
		subject.ID, subject.PropertyID, existingID)
	return r.fail(
		governance.SeverityWarning,
		governance.CreateClaim(governance.ClaimDuplicate, existingID, evidence),
		evidence,
	), nil
}
