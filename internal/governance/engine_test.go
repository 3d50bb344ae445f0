package governance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeListingStore struct {
	activeByProperty map[string]string
	listings         map[string]*Listing
	findErr          error
	updates          []string
	updateErr        error
}

func (f *fakeListingStore) FindActiveByPropertyID(_ context.Context, propertyID string) (string, error) {
	if f.findErr != nil {
		return "", f.findErr
	}
	return f.activeByProperty[propertyID], nil
}

func (f *fakeListingStore) GetByID(_ context.Context, id string) (*Listing, error) {
	return f.listings[id], nil
}

func (f *fakeListingStore) UpdateField(_ context.Context, id, field, value string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, id+"."+field+"="+value)
	return nil
}

type fixedScorer int

func (s fixedScorer) Score(Source, string) int { return int(s) }

type captureRecorder struct {
	events  []*Event
	results [][]*RuleResult
}

func (c *captureRecorder) Record(_ context.Context, event *Event, results []*RuleResult) {
	c.events = append(c.events, event)
	c.results = append(c.results, results)
}

func newTestEngine(t *testing.T, rules ...Rule) (*Engine, *captureRecorder) {
	t.Helper()
	catalog := NewCatalog(NewMemoryStatusStore(), zap.NewNop())
	for _, r := range rules {
		catalog.Register(r)
	}
	recorder := &captureRecorder{}
	engine := NewEngine(catalog, recorder, fixedScorer(60), &fakeListingStore{}, zap.NewNop(), nil)
	return engine, recorder
}

func createdEvent(id string) *Event {
	return &Event{
		ID:   id,
		Type: EventListingCreated,
		Payload: Payload{
			Listing: &Listing{ID: "lst-1", PropertyID: "prop-1", Status: StatusDraft},
		},
	}
}

func TestEngineEvaluatesAllRulesWithoutShortCircuit(t *testing.T) {
	failing := &stubRule{id: "fails", priority: 100, triggers: []EventType{EventListingCreated},
		evaluate: func(context.Context, *Event, *EvalContext) (*RuleResult, error) {
			return &RuleResult{RuleID: "fails", Passed: false, Severity: SeverityError, Action: Block()}, nil
		}}
	trailing := passingRule("trailing", 10, EventListingCreated)

	engine, _ := newTestEngine(t, failing, trailing)
	results := engine.Evaluate(context.Background(), createdEvent("evt-1"), nil)

	require.Len(t, results, 2)
	assert.Equal(t, "fails", results[0].RuleID)
	assert.False(t, results[0].Passed)
	assert.Equal(t, "trailing", results[1].RuleID)
	assert.True(t, results[1].Passed)
}

func TestEngineIsDeterministic(t *testing.T) {
	engine, _ := newTestEngine(t,
		passingRule("a", 90, EventListingCreated),
		passingRule("b", 90, EventListingCreated),
		passingRule("c", 50, EventListingCreated),
	)

	first := engine.Evaluate(context.Background(), createdEvent("evt-1"), nil)
	second := engine.Evaluate(context.Background(), createdEvent("evt-1"), nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].RuleID, second[i].RuleID)
		assert.Equal(t, first[i].Passed, second[i].Passed)
	}
}

func TestEngineConvertsRuleErrorToCriticalBlock(t *testing.T) {
	broken := &stubRule{id: "broken", priority: 100, triggers: []EventType{EventListingCreated},
		evaluate: func(context.Context, *Event, *EvalContext) (*RuleResult, error) {
			return nil, errors.New("store unavailable")
		}}

	engine, _ := newTestEngine(t, broken, passingRule("ok", 10, EventListingCreated))
	results := engine.Evaluate(context.Background(), createdEvent("evt-1"), nil)

	require.Len(t, results, 2)
	assert.False(t, results[0].Passed)
	assert.Equal(t, SeverityCritical, results[0].Severity)
	assert.Equal(t, ActionBlock, results[0].Action.Type)
	assert.Contains(t, results[0].Reasons[0], "system error")
	// The broken rule never stops the pass.
	assert.True(t, results[1].Passed)
}

func TestEngineRecoversFromRulePanic(t *testing.T) {
	panicking := &stubRule{id: "panics", priority: 100, triggers: []EventType{EventListingCreated},
		evaluate: func(context.Context, *Event, *EvalContext) (*RuleResult, error) {
			panic("nil map write")
		}}

	engine, _ := newTestEngine(t, panicking)
	results := engine.Evaluate(context.Background(), createdEvent("evt-1"), nil)

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, SeverityCritical, results[0].Severity)
}

func TestEngineTreatsNilResultAsFailure(t *testing.T) {
	nilResult := &stubRule{id: "nil-result", priority: 100, triggers: []EventType{EventListingCreated},
		evaluate: func(context.Context, *Event, *EvalContext) (*RuleResult, error) {
			return nil, nil
		}}

	engine, _ := newTestEngine(t, nilResult)
	results := engine.Evaluate(context.Background(), createdEvent("evt-1"), nil)

	require.Len(t, results, 1)
	assert.Equal(t, SeverityCritical, results[0].Severity)
}

func TestEngineRecordsEveryPass(t *testing.T) {
	engine, recorder := newTestEngine(t, passingRule("a", 50, EventListingCreated))

	engine.Evaluate(context.Background(), createdEvent("evt-1"), nil)
	engine.Evaluate(context.Background(), createdEvent("evt-2"), nil)

	require.Len(t, recorder.events, 2)
	assert.Equal(t, "evt-1", recorder.events[0].ID)
	assert.Len(t, recorder.results[0], 1)
}

func TestOutcomeAggregation(t *testing.T) {
	tests := []struct {
		name    string
		results []*RuleResult
		want    Outcome
	}{
		{
			name:    "all passed",
			results: []*RuleResult{{Passed: true, Severity: SeverityInfo}},
			want:    OutcomePass,
		},
		{
			name:    "empty result set",
			results: nil,
			want:    OutcomePass,
		},
		{
			name:    "error failure blocks",
			results: []*RuleResult{{Passed: true, Severity: SeverityInfo}, {Passed: false, Severity: SeverityError}},
			want:    OutcomeBlock,
		},
		{
			name:    "critical failure blocks",
			results: []*RuleResult{{Passed: false, Severity: SeverityCritical}},
			want:    OutcomeBlock,
		},
		{
			name:    "warning flags",
			results: []*RuleResult{{Passed: true, Severity: SeverityWarning}},
			want:    OutcomeFlag,
		},
		{
			name:    "warning failure with action flags",
			results: []*RuleResult{{Passed: false, Severity: SeverityWarning, Action: AutoCorrectStatus("lst-1", StatusSuspended)}},
			want:    OutcomeFlag,
		},
		{
			name:    "block beats flag",
			results: []*RuleResult{{Passed: false, Severity: SeverityWarning, Action: Flag(nil)}, {Passed: false, Severity: SeverityError}},
			want:    OutcomeBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeOf(tt.results))
		})
	}
}
