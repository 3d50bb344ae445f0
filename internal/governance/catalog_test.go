package governance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubRule is a minimal Rule for catalog and engine tests.
type stubRule struct {
	id       string
	priority int
	triggers []EventType
	evaluate func(ctx context.Context, event *Event, ec *EvalContext) (*RuleResult, error)
}

func (s *stubRule) ID() string            { return s.id }
func (s *stubRule) Name() string          { return "stub " + s.id }
func (s *stubRule) Description() string   { return "stub rule" }
func (s *stubRule) Triggers() []EventType { return s.triggers }
func (s *stubRule) Priority() int         { return s.priority }
func (s *stubRule) Status() RuleStatus    { return RuleStatusActive }
func (s *stubRule) Version() string       { return "1.0.0" }

func (s *stubRule) Evaluate(ctx context.Context, event *Event, ec *EvalContext) (*RuleResult, error) {
	if s.evaluate != nil {
		return s.evaluate(ctx, event, ec)
	}
	return &RuleResult{RuleID: s.id, RuleName: s.Name(), Passed: true, Severity: SeverityInfo}, nil
}

func passingRule(id string, priority int, triggers ...EventType) *stubRule {
	return &stubRule{id: id, priority: priority, triggers: triggers}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	return NewCatalog(NewMemoryStatusStore(), zap.NewNop())
}

func ruleIDs(rules []Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID())
	}
	return ids
}

func TestCatalogOrdersByPriorityDescending(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.Register(passingRule("low", 10, EventListingCreated))
	catalog.Register(passingRule("high", 100, EventListingCreated))
	catalog.Register(passingRule("mid", 50, EventListingCreated))

	got := catalog.RulesForEvent(context.Background(), EventListingCreated)
	assert.Equal(t, []string{"high", "mid", "low"}, ruleIDs(got))
}

func TestCatalogBreaksTiesByRegistrationOrder(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.Register(passingRule("first", 90, EventListingUpdated))
	catalog.Register(passingRule("second", 90, EventListingUpdated))
	catalog.Register(passingRule("third", 90, EventListingUpdated))

	got := catalog.RulesForEvent(context.Background(), EventListingUpdated)
	assert.Equal(t, []string{"first", "second", "third"}, ruleIDs(got))
}

func TestCatalogFiltersByTrigger(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.Register(passingRule("updates-only", 50, EventListingUpdated))
	catalog.Register(passingRule("creates-only", 50, EventListingCreated))

	got := catalog.RulesForEvent(context.Background(), EventListingCreated)
	assert.Equal(t, []string{"creates-only"}, ruleIDs(got))

	assert.Empty(t, catalog.RulesForEvent(context.Background(), EventClaimFiled))
}

func TestCatalogStatusOverrideExcludesRule(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.Register(passingRule("a", 90, EventListingCreated))
	catalog.Register(passingRule("b", 80, EventListingCreated))

	require.True(t, catalog.SetStatus(context.Background(), "a", RuleStatusInactive))

	got := catalog.RulesForEvent(context.Background(), EventListingCreated)
	assert.Equal(t, []string{"b"}, ruleIDs(got))
	assert.Equal(t, RuleStatusInactive, catalog.StatusOf(context.Background(), "a"))

	// Re-enable restores evaluation order.
	require.True(t, catalog.SetStatus(context.Background(), "a", RuleStatusActive))
	got = catalog.RulesForEvent(context.Background(), EventListingCreated)
	assert.Equal(t, []string{"a", "b"}, ruleIDs(got))
}

func TestCatalogSetStatusUnknownRule(t *testing.T) {
	catalog := newTestCatalog(t)
	assert.False(t, catalog.SetStatus(context.Background(), "missing", RuleStatusInactive))
}

func TestCatalogReregistrationKeepsPosition(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.Register(passingRule("first", 90, EventListingCreated))
	catalog.Register(passingRule("second", 90, EventListingCreated))

	// Overwriting "first" must not move it behind "second".
	catalog.Register(passingRule("first", 90, EventListingCreated))

	got := catalog.RulesForEvent(context.Background(), EventListingCreated)
	assert.Equal(t, []string{"first", "second"}, ruleIDs(got))
}

type failingStatusStore struct{}

func (failingStatusStore) Set(context.Context, string, RuleStatus) error {
	return errors.New("store down")
}

func (failingStatusStore) All(context.Context) (map[string]RuleStatus, error) {
	return nil, errors.New("store down")
}

func TestCatalogDegradesWhenStatusStoreFails(t *testing.T) {
	catalog := NewCatalog(failingStatusStore{}, zap.NewNop())
	catalog.Register(passingRule("a", 90, EventListingCreated))

	// All registered rules stay active when overrides cannot be read.
	got := catalog.RulesForEvent(context.Background(), EventListingCreated)
	assert.Equal(t, []string{"a"}, ruleIDs(got))

	assert.False(t, catalog.SetStatus(context.Background(), "a", RuleStatusInactive))
}
