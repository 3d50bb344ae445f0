package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/governance"
)

func testEvent(id string) *governance.Event {
	return &governance.Event{
		ID:      id,
		Type:    governance.EventListingUpdated,
		ActorID: "u1",
	}
}

func TestRecorderPersistsEntry(t *testing.T) {
	store := NewMemoryStore()
	recorder := NewRecorder(store, zap.NewNop(), nil)

	results := []*governance.RuleResult{
		{RuleID: "a", Passed: true, Severity: governance.SeverityInfo},
		{RuleID: "b", Passed: false, Severity: governance.SeverityError},
	}
	recorder.Record(context.Background(), testEvent("evt-1"), results)

	entry, err := recorder.Trace(context.Background(), "evt-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "evt-1", entry.EventID)
	assert.Equal(t, governance.EventListingUpdated, entry.EventType)
	assert.Equal(t, "u1", entry.ActorID)
	assert.Equal(t, 2, entry.RulesEvaluated)
	assert.Equal(t, governance.OutcomeBlock, entry.Outcome)
}

func TestRecorderComputesOutcome(t *testing.T) {
	store := NewMemoryStore()
	recorder := NewRecorder(store, zap.NewNop(), nil)

	recorder.Record(context.Background(), testEvent("pass"), []*governance.RuleResult{
		{RuleID: "a", Passed: true, Severity: governance.SeverityInfo},
	})
	recorder.Record(context.Background(), testEvent("flag"), []*governance.RuleResult{
		{RuleID: "a", Passed: false, Severity: governance.SeverityWarning,
			Action: governance.AutoCorrectStatus("lst-1", governance.StatusSuspended)},
	})

	passEntry, _ := recorder.Trace(context.Background(), "pass")
	flagEntry, _ := recorder.Trace(context.Background(), "flag")
	assert.Equal(t, governance.OutcomePass, passEntry.Outcome)
	assert.Equal(t, governance.OutcomeFlag, flagEntry.Outcome)
}

type failingStore struct{}

func (failingStore) Insert(context.Context, *Entry) error { return errors.New("disk full") }

func (failingStore) GetByEventID(context.Context, string) (*Entry, error) { return nil, nil }

func (failingStore) List(context.Context) ([]*Entry, error) { return nil, nil }

func TestRecorderSwallowsStoreFailure(t *testing.T) {
	recorder := NewRecorder(failingStore{}, zap.NewNop(), nil)

	// Must not panic or propagate; auditing never fails the decision path.
	recorder.Record(context.Background(), testEvent("evt-1"), nil)
}

func TestMemoryStoreListsNewestFirst(t *testing.T) {
	store := NewMemoryStore()

	older := &Entry{EventID: "old", Timestamp: time.Now().Add(-time.Hour)}
	newer := &Entry{EventID: "new", Timestamp: time.Now()}
	require.NoError(t, store.Insert(context.Background(), older))
	require.NoError(t, store.Insert(context.Background(), newer))

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].EventID)
	assert.Equal(t, "old", entries[1].EventID)
}

func TestMemoryStoreMissingEntry(t *testing.T) {
	store := NewMemoryStore()
	entry, err := store.GetByEventID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
