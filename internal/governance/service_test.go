package governance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClaimStore struct {
	created []*Claim
	err     error
}

func (f *fakeClaimStore) Create(_ context.Context, claim *Claim) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, claim)
	return nil
}

type fakeNotifier struct {
	claimNotices   []string
	suspendNotices []string
	err            error
}

func (f *fakeNotifier) OwnerClaimFiled(_ context.Context, ownerID, listingID string, _ ClaimType) error {
	if f.err != nil {
		return f.err
	}
	f.claimNotices = append(f.claimNotices, ownerID+":"+listingID)
	return nil
}

func (f *fakeNotifier) ListingSuspended(_ context.Context, ownerID, listingID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.suspendNotices = append(f.suspendNotices, ownerID+":"+listingID)
	return nil
}

type serviceFixture struct {
	service  *Service
	listings *fakeListingStore
	claims   *fakeClaimStore
	notifier *fakeNotifier
}

func newServiceFixture(t *testing.T, rules ...Rule) *serviceFixture {
	t.Helper()
	logger := zap.NewNop()
	catalog := NewCatalog(NewMemoryStatusStore(), logger)
	for _, r := range rules {
		catalog.Register(r)
	}
	listings := &fakeListingStore{
		activeByProperty: map[string]string{},
		listings:         map[string]*Listing{},
	}
	claims := &fakeClaimStore{}
	notifier := &fakeNotifier{}
	engine := NewEngine(catalog, nil, fixedScorer(60), listings, logger, nil)
	service := NewService(engine, catalog, listings, claims, notifier, logger, nil)
	return &serviceFixture{service: service, listings: listings, claims: claims, notifier: notifier}
}

func suspendingRule(listingID string) *stubRule {
	return &stubRule{id: "suspend", priority: 100, triggers: []EventType{EventClaimFiled},
		evaluate: func(context.Context, *Event, *EvalContext) (*RuleResult, error) {
			return &RuleResult{
				RuleID:   "suspend",
				RuleName: "stub suspend",
				Passed:   false,
				Severity: SeverityWarning,
				Reasons:  []string{"ownership disputed"},
				Action:   AutoCorrectStatus(listingID, StatusSuspended),
			}, nil
		}}
}

func claimFiledEvent(id string) *Event {
	return &Event{
		ID:   id,
		Type: EventClaimFiled,
		Payload: Payload{
			Claim: &Claim{ID: "clm-1", ListingID: "lst-1", Type: ClaimOwnership},
		},
	}
}

func TestProcessEventRejectsInvalidInput(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.ProcessEvent(context.Background(), nil, nil)
	assert.Error(t, err)

	_, err = fx.service.ProcessEvent(context.Background(), &Event{ID: "evt-1", Type: "LISTING_EXPLODED"}, nil)
	assert.Error(t, err)
}

func TestProcessEventSuspensionCascade(t *testing.T) {
	fx := newServiceFixture(t, suspendingRule("lst-1"))
	fx.listings.listings["lst-1"] = &Listing{ID: "lst-1", BrokerID: "brk-9"}

	decision, err := fx.service.ProcessEvent(context.Background(), claimFiledEvent("evt-1"), nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFlag, decision.Outcome())
	assert.Equal(t, []string{"lst-1.status=SUSPENDED"}, fx.listings.updates)
	assert.Equal(t, []string{"brk-9:lst-1"}, fx.notifier.suspendNotices)

	require.Len(t, decision.ActionsExecuted, 2)
	assert.Contains(t, decision.ActionsExecuted[0], "Updated listing lst-1 status to SUSPENDED")
	assert.Contains(t, decision.ActionsExecuted[1], "brk-9")
}

func TestProcessEventSuspensionWithoutOwnerSkipsNotification(t *testing.T) {
	fx := newServiceFixture(t, suspendingRule("lst-1"))
	fx.listings.listings["lst-1"] = &Listing{ID: "lst-1"}

	decision, err := fx.service.ProcessEvent(context.Background(), claimFiledEvent("evt-1"), nil)
	require.NoError(t, err)

	assert.Len(t, decision.ActionsExecuted, 1)
	assert.Empty(t, fx.notifier.suspendNotices)
}

func TestProcessEventActionFailureIsIsolated(t *testing.T) {
	fx := newServiceFixture(t, suspendingRule("lst-1"))
	fx.listings.updateErr = errors.New("db down")

	decision, err := fx.service.ProcessEvent(context.Background(), claimFiledEvent("evt-1"), nil)
	require.NoError(t, err)

	// The decision still reports the rule result; only the action log is empty.
	assert.Empty(t, decision.ActionsExecuted)
	require.Len(t, decision.Results, 1)
	assert.False(t, decision.Results[0].Passed)
}

func TestProcessEventNotificationFailureKeepsCorrection(t *testing.T) {
	fx := newServiceFixture(t, suspendingRule("lst-1"))
	fx.listings.listings["lst-1"] = &Listing{ID: "lst-1", BrokerID: "brk-9"}
	fx.notifier.err = errors.New("webhook down")

	decision, err := fx.service.ProcessEvent(context.Background(), claimFiledEvent("evt-1"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"lst-1.status=SUSPENDED"}, fx.listings.updates)
	require.Len(t, decision.ActionsExecuted, 1)
	assert.Contains(t, decision.ActionsExecuted[0], "Updated listing")
}

func TestProcessEventCreatesSystemClaim(t *testing.T) {
	claiming := &stubRule{id: "dup", priority: 70, triggers: []EventType{EventListingCreated},
		evaluate: func(context.Context, *Event, *EvalContext) (*RuleResult, error) {
			return &RuleResult{
				RuleID:   "dup",
				RuleName: "stub duplicate",
				Passed:   false,
				Severity: SeverityWarning,
				Reasons:  []string{"duplicate active listing"},
				Action:   CreateClaim(ClaimDuplicate, "lst-existing", "overlap detected"),
			}, nil
		}}

	fx := newServiceFixture(t, claiming)
	fx.listings.listings["lst-existing"] = &Listing{ID: "lst-existing", BrokerID: "brk-2"}

	decision, err := fx.service.ProcessEvent(context.Background(), createdEvent("evt-1"), nil)
	require.NoError(t, err)

	require.Len(t, fx.claims.created, 1)
	claim := fx.claims.created[0]
	assert.True(t, strings.HasPrefix(claim.ID, "SYS-CLM-"))
	assert.Equal(t, SystemClaimant, claim.ClaimantID)
	assert.Equal(t, ClaimDuplicate, claim.Type)
	assert.Equal(t, ClaimOpen, claim.Status)
	assert.Equal(t, "lst-existing", claim.ListingID)
	assert.Equal(t, "overlap detected", claim.Evidence)

	assert.Equal(t, []string{"brk-2:lst-existing"}, fx.notifier.claimNotices)
	assert.Len(t, decision.ActionsExecuted, 2)
}

func TestProcessEventBlockResultExecutesNoAction(t *testing.T) {
	blocking := &stubRule{id: "block", priority: 100, triggers: []EventType{EventListingCreated},
		evaluate: func(context.Context, *Event, *EvalContext) (*RuleResult, error) {
			return &RuleResult{RuleID: "block", Passed: false, Severity: SeverityError, Action: Block()}, nil
		}}

	fx := newServiceFixture(t, blocking)
	decision, err := fx.service.ProcessEvent(context.Background(), createdEvent("evt-1"), nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeBlock, decision.Outcome())
	assert.Empty(t, decision.ActionsExecuted)
	assert.Empty(t, fx.listings.updates)
}

func TestRuleConfigMergesOverrideStatus(t *testing.T) {
	fx := newServiceFixture(t,
		passingRule("a", 90, EventListingCreated),
		passingRule("b", 50, EventListingCreated),
	)

	require.True(t, fx.service.UpdateRuleStatus(context.Background(), "b", RuleStatusInactive))
	assert.False(t, fx.service.UpdateRuleStatus(context.Background(), "b", RuleStatus("BROKEN")))
	assert.False(t, fx.service.UpdateRuleStatus(context.Background(), "missing", RuleStatusInactive))

	configs := fx.service.RuleConfig(context.Background())
	require.Len(t, configs, 2)
	assert.Equal(t, "a", configs[0].ID)
	assert.Equal(t, RuleStatusActive, configs[0].Status)
	assert.Equal(t, "b", configs[1].ID)
	assert.Equal(t, RuleStatusInactive, configs[1].Status)
}
