package governance

// Outcome is the single-word summary of a whole evaluation pass.
type Outcome string

const (
	OutcomePass  Outcome = "PASS"
	OutcomeBlock Outcome = "BLOCK"
	OutcomeFlag  Outcome = "FLAG"
)

// OutcomeOf aggregates a result set into an overall outcome: BLOCK when
// any failed result is ERROR or worse, FLAG when any result carries a
// WARNING or an executable action, PASS otherwise.
func OutcomeOf(results []*RuleResult) Outcome {
	flagged := false
	for _, r := range results {
		if !r.Passed && r.Severity.Blocking() {
			return OutcomeBlock
		}
		if r.Severity == SeverityWarning || (r.Action != nil && r.Action.Type != ActionNone) {
			flagged = true
		}
	}
	if flagged {
		return OutcomeFlag
	}
	return OutcomePass
}
