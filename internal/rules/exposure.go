package rules

import (
	"context"
	"fmt"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// PublicExposure gates publication-grade states on minimum data quality:
// a listing the public can see must carry a positive price, a usable
// address and at least one photo.
type PublicExposure struct {
	baseRule
}

func NewPublicExposure() *PublicExposure {
	return &PublicExposure{baseRule{
		id:          "public-exposure",
		name:        "Public Exposure Readiness",
		description: "ACTIVE and VERIFIED listings must have a price, a complete address and at least one photo",
		triggers:    []governance.EventType{governance.EventListingCreated, governance.EventListingUpdated},
		priority:    85,
		version:     "1.0.0",
	}}
}

func (r *PublicExposure) Evaluate(_ context.Context, event *governance.Event, _ *governance.EvalContext) (*governance.RuleResult, error) {
	subject := event.Subject()
	if subject == nil {
		return r.pass(), nil
	}
	if subject.Status != governance.StatusActive && subject.Status != governance.StatusVerified {
		return r.pass(), nil
	}

	var reasons []string
	if subject.Price <= 0 {
		reasons = append(reasons, fmt.Sprintf("listing %s has no price", subject.ID))
	}
	if !subject.Address.Complete() {
		reasons = append(reasons, fmt.Sprintf("listing %s address is incomplete (street and city required)", subject.ID))
	}
	if len(subject.Photos) == 0 {
		reasons = append(reasons, fmt.Sprintf("listing %s has no photos", subject.ID))
	}
	if len(reasons) == 0 {
		return r.pass(), nil
	}
	return r.fail(governance.SeverityError, governance.Block(), reasons...), nil
}
