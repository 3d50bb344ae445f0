// Package rules contains the governance policy catalog: the concrete
// rules the evaluation engine runs against listing and claim events.
// Every rule here is a pure function of the event and the shared
// evaluation context; side effects are described as actions and executed
// by the governance service.
package rules

import (
	"fmt"
	"strconv"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// Default returns the full policy catalog in registration order. The
// catalog re-sorts by priority, so order here only breaks priority ties.
func Default() []governance.Rule {
	return []governance.Rule{
		NewVersionImmutability(),
		NewBrokerOwnership(),
		NewPublishSuspension(),
		NewClaimResolution(),
		NewPrimaryActiveListing(),
		NewSourceTrustHierarchy(),
		NewCanonicalPrecedence(),
		NewPromotionSafeguard(),
		NewPublicExposure(),
		NewScrapedDowngrade(),
		NewAutoClaim(),
		NewConflictDetection(),
	}
}

// baseRule carries the static metadata every rule shares.
type baseRule struct {
	id          string
	name        string
	description string
	triggers    []governance.EventType
	priority    int
	version     string
}

func (b baseRule) ID() string                        { return b.id }
func (b baseRule) Name() string                      { return b.name }
func (b baseRule) Description() string               { return b.description }
func (b baseRule) Triggers() []governance.EventType  { return b.triggers }
func (b baseRule) Priority() int                     { return b.priority }
func (b baseRule) Status() governance.RuleStatus     { return governance.RuleStatusActive }
func (b baseRule) Version() string                   { return b.version }

// pass builds a passing result. With no reasons the rule simply did not
// apply to this event.
func (b baseRule) pass(reasons ...string) *governance.RuleResult {
	return &governance.RuleResult{
		RuleID:   b.id,
		RuleName: b.name,
		Passed:   true,
		Severity: governance.SeverityInfo,
		Reasons:  reasons,
	}
}

// warnPass builds a passing result that still deserves operator
// attention, e.g. an update arriving without its previous snapshot.
func (b baseRule) warnPass(reasons ...string) *governance.RuleResult {
	return &governance.RuleResult{
		RuleID:   b.id,
		RuleName: b.name,
		Passed:   true,
		Severity: governance.SeverityWarning,
		Reasons:  reasons,
	}
}

// fail builds a failing result with the given severity and action.
func (b baseRule) fail(severity governance.Severity, action *governance.Action, reasons ...string) *governance.RuleResult {
	return &governance.RuleResult{
		RuleID:   b.id,
		RuleName: b.name,
		Passed:   false,
		Severity: severity,
		Reasons:  reasons,
		Action:   action,
	}
}

// fieldValue reads a listing field by its canonical name, rendered as a
// comparable string. Unset values render as "" so enrichment (filling a
// blank field) can be told apart from overwriting.
func fieldValue(l *governance.Listing, field string) string {
	if l == nil {
		return ""
	}
	switch field {
	case "price":
		if l.Price <= 0 {
			return ""
		}
		return strconv.FormatFloat(l.Price, 'f', 2, 64)
	case "title":
		return l.Title
	case "description":
		return l.Description
	case "legal_description":
		return l.LegalDescription
	case "property_type":
		return l.PropertyType
	case "address":
		return l.Address.String()
	case "status":
		return string(l.Status)
	default:
		return ""
	}
}

// changedFields returns which of the named fields differ between the two
// snapshots.
func changedFields(previous, current *governance.Listing, fields []string) []string {
	changed := make([]string, 0, len(fields))
	for _, f := range fields {
		if fieldValue(previous, f) != fieldValue(current, f) {
			changed = append(changed, f)
		}
	}
	return changed
}

func priceDriftPct(previous, current float64) float64 {
	if previous <= 0 {
		return 0
	}
	drift := (current - previous) / previous * 100
	if drift < 0 {
		drift = -drift
	}
	return drift
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
