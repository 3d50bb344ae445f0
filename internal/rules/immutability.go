package rules

import (
	"context"
	"fmt"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// lockedFields are frozen once a listing reaches a verified state.
var lockedFields = []string{"price", "address", "legal_description"}

// VersionImmutability blocks edits to the core facts of a listing once it
// has been verified or activated. Corrections to verified data must go
// through the claim process instead of a direct update.
type VersionImmutability struct {
	baseRule
}

func NewVersionImmutability() *VersionImmutability {
	return &VersionImmutability{baseRule{
		id:          "listing-version-immutability",
		name:        "Listing Version Immutability",
		description: "Price, address and legal description are frozen once a listing is VERIFIED or ACTIVE",
		triggers:    []governance.EventType{governance.EventListingUpdated},
		priority:    100,
		version:     "1.2.0",
	}}
}

func (r *VersionImmutability) Evaluate(_ context.Context, event *governance.Event, _ *governance.EvalContext) (*governance.RuleResult, error) {
	current := event.Subject()
	previous := event.PreviousListing()
	if current == nil {
		return r.pass(), nil
	}
	if previous == nil {
		return r.warnPass("update event carries no previous snapshot; immutability not verifiable"), nil
	}
	if previous.Status != governance.StatusVerified && previous.Status != governance.StatusActive {
		return r.pass(), nil
	}

	changed := changedFields(previous, current, lockedFields)
	if len(changed) == 0 {
		return r.pass(), nil
	}

	reasons := make([]string, 0, len(changed))
	for _, f := range changed {
		reasons = append(reasons, fmt.Sprintf(
			"field %q is immutable while listing is %s (was %q, proposed %q)",
			f, previous.Status, fieldValue(previous, f), fieldValue(current, f)))
	}
	return r.fail(governance.SeverityError, governance.Block(), reasons...), nil
}
