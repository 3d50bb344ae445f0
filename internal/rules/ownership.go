package rules

import (
	"context"
	"fmt"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// BrokerOwnership ensures only the owning broker, or a privileged actor,
// can modify or delete a listing.
type BrokerOwnership struct {
	baseRule
}

func NewBrokerOwnership() *BrokerOwnership {
	return &BrokerOwnership{baseRule{
		id:          "broker-ownership",
		name:        "Broker Ownership",
		description: "Only the owning broker or a privileged actor may modify or delete a listing",
		triggers:    []governance.EventType{governance.EventListingUpdated, governance.EventListingDeleted},
		priority:    100,
		version:     "1.0.0",
	}}
}

func (r *BrokerOwnership) Evaluate(_ context.Context, event *governance.Event, ec *governance.EvalContext) (*governance.RuleResult, error) {
	subject := event.Subject()
	if subject == nil {
		return r.pass(), nil
	}
	if ec.Actor.Privileged() {
		return r.pass(fmt.Sprintf("actor %s is privileged", actorID(ec.Actor))), nil
	}
	if subject.BrokerID == "" {
		return r.fail(governance.SeverityError, governance.Block(),
			fmt.Sprintf("listing %s has no owning broker; ownership cannot be verified", subject.ID)), nil
	}
	if ec.Actor == nil || ec.Actor.BrokerID != subject.BrokerID {
		return r.fail(governance.SeverityError, governance.Block(),
			fmt.Sprintf("actor %s does not own listing %s (owner: broker %s)",
				actorID(ec.Actor), subject.ID, subject.BrokerID)), nil
	}
	return r.pass(), nil
}

func actorID(u *governance.User) string {
	if u == nil {
		return "unknown"
	}
	return u.ID
}
