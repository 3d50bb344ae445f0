package rules

import (
	"context"
	"fmt"

	"github.com/propertymesh/listing-governance/internal/governance"
	"github.com/propertymesh/listing-governance/internal/trust"
)

// protectedFields cannot be overwritten by a source less trusted than the
// one that asserted the current value. Filling an empty field (enrichment)
// is always allowed.
var protectedFields = []string{"price", "title", "description", "address", "property_type"}

// SourceTrustHierarchy stops lower-trust sources from overwriting data
// asserted by higher-trust sources.
type SourceTrustHierarchy struct {
	baseRule
}

func NewSourceTrustHierarchy() *SourceTrustHierarchy {
	return &SourceTrustHierarchy{baseRule{
		id:          "source-trust-hierarchy",
		name:        "Source Trust Hierarchy",
		description: "A lower-trust source may enrich but never overwrite data from a higher-trust source",
		triggers:    []governance.EventType{governance.EventListingUpdated},
		priority:    95,
		version:     "1.3.0",
	}}
}

func (r *SourceTrustHierarchy) Evaluate(_ context.Context, event *governance.Event, ec *governance.EvalContext) (*governance.RuleResult, error) {
	current := event.Subject()
	previous := event.PreviousListing()
	if current == nil || previous == nil {
		return r.pass(), nil
	}

	curScore := ec.Trust.Score(current.Source, current.SourceID)
	prevScore := ec.Trust.Score(previous.Source, previous.SourceID)
	if curScore >= prevScore {
		return r.pass(), nil
	}

	var reasons []string
	for _, f := range protectedFields {
		prevVal := fieldValue(previous, f)
		curVal := fieldValue(current, f)
		if prevVal == curVal {
			continue
		}
		if prevVal == "" {
			// Enrichment: the lower-trust source is filling a gap.
			continue
		}
		reasons = append(reasons, fmt.Sprintf(
			"source %s (trust %d) may not overwrite %q asserted by %s (trust %d)",
			current.Source, curScore, f, previous.Source, prevScore))
	}
	if len(reasons) == 0 {
		return r.pass(), nil
	}
	return r.fail(governance.SeverityError, governance.Block(), reasons...), nil
}

// CanonicalPrecedence is a hard floor under the trust hierarchy: scraped
// data can never replace an MLS feed record, regardless of per-identity
// trust overrides.
type CanonicalPrecedence struct {
	baseRule
}

func NewCanonicalPrecedence() *CanonicalPrecedence {
	return &CanonicalPrecedence{baseRule{
		id:          "canonical-data-precedence",
		name:        "Canonical Data Precedence",
		description: "Scraped data never replaces an MLS feed record",
		triggers:    []governance.EventType{governance.EventListingUpdated},
		priority:    90,
		version:     "1.0.0",
	}}
}

func (r *CanonicalPrecedence) Evaluate(_ context.Context, event *governance.Event, _ *governance.EvalContext) (*governance.RuleResult, error) {
	current := event.Subject()
	previous := event.PreviousListing()
	if current == nil || previous == nil {
		return r.pass(), nil
	}
	if previous.Source == governance.SourceMLSFeed && current.Source == governance.SourceScraper {
		return r.fail(governance.SeverityError, governance.Block(),
			fmt.Sprintf("listing %s is canonical MLS feed data; scraped updates are never accepted",
				previous.ID)), nil
	}
	return r.pass(), nil
}

// PromotionSafeguard stops listings from being marked VERIFIED on the
// word of a source below the trusted tier. Instead of blocking, it
// corrects the status down to PENDING_REVIEW for a human to finish.
type PromotionSafeguard struct {
	baseRule
}

func NewPromotionSafeguard() *PromotionSafeguard {
	return &PromotionSafeguard{baseRule{
		id:          "canonical-promotion-safeguard",
		name:        "Canonical Promotion Safeguard",
		description: "VERIFIED status requires a trusted-tier source; lesser sources are demoted to PENDING_REVIEW",
		triggers:    []governance.EventType{governance.EventListingCreated, governance.EventListingUpdated},
		priority:    90,
		version:     "1.1.0",
	}}
}

func (r *PromotionSafeguard) Evaluate(_ context.Context, event *governance.Event, ec *governance.EvalContext) (*governance.RuleResult, error) {
	subject := event.Subject()
	if subject == nil || subject.Status != governance.StatusVerified {
		return r.pass(), nil
	}
	score := ec.Trust.Score(subject.Source, subject.SourceID)
	if score >= trust.ScoreTrusted {
		return r.pass(), nil
	}
	return r.fail(
		governance.SeverityWarning,
		governance.AutoCorrectStatus(subject.ID, governance.StatusPendingReview),
		fmt.Sprintf("source %s (trust %d) is below the trusted tier (%d); VERIFIED demoted to PENDING_REVIEW",
			subject.Source, score, trust.ScoreTrusted),
	), nil
}

// ScrapedDowngrade keeps scraped listings out of publication-grade
// states entirely. Scraped data enters as candidate data and earns
// promotion through review, never by self-assertion.
type ScrapedDowngrade struct {
	baseRule
}

func NewScrapedDowngrade() *ScrapedDowngrade {
	return &ScrapedDowngrade{baseRule{
		id:          "scraped-data-downgrade",
		name:        "Scraped Data Downgrade",
		description: "Scraped listings may not enter VERIFIED or ACTIVE states; demote to PENDING_REVIEW",
		triggers:    []governance.EventType{governance.EventListingCreated, governance.EventListingUpdated},
		priority:    80,
		version:     "1.0.0",
	}}
}

func (r *ScrapedDowngrade) Evaluate(_ context.Context, event *governance.Event, _ *governance.EvalContext) (*governance.RuleResult, error) {
	subject := event.Subject()
	if subject == nil || subject.Source != governance.SourceScraper {
		return r.pass(), nil
	}
	if subject.Status != governance.StatusVerified && subject.Status != governance.StatusActive {
		return r.pass(), nil
	}
	return r.fail(
		governance.SeverityWarning,
		governance.AutoCorrectStatus(subject.ID, governance.StatusPendingReview),
		fmt.Sprintf("scraped listing %s may not be %s; demoted to PENDING_REVIEW",
			subject.ID, subject.Status),
	), nil
}
