package governance

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EventType identifies the kind of change a governance event describes.
type EventType string

const (
	EventListingCreated EventType = "LISTING_CREATED"
	EventListingUpdated EventType = "LISTING_UPDATED"
	EventListingDeleted EventType = "LISTING_DELETED"
	EventClaimFiled     EventType = "CLAIM_FILED"
	EventClaimResolved  EventType = "CLAIM_RESOLVED"
	EventDataIngested   EventType = "DATA_INGESTED"
)

// KnownEventTypes lists every event type the engine evaluates.
var KnownEventTypes = []EventType{
	EventListingCreated,
	EventListingUpdated,
	EventListingDeleted,
	EventClaimFiled,
	EventClaimResolved,
	EventDataIngested,
}

// IsKnownEventType reports whether t is one of the event types the
// engine understands.
func IsKnownEventType(t EventType) bool {
	for _, known := range KnownEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Source identifies where listing data originated.
type Source string

const (
	SourceManual  Source = "MANUAL"
	SourceMLSFeed Source = "MLS_FEED"
	SourceScraper Source = "SCRAPER"
)

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	StatusDraft         ListingStatus = "DRAFT"
	StatusPendingReview ListingStatus = "PENDING_REVIEW"
	StatusVerified      ListingStatus = "VERIFIED"
	StatusActive        ListingStatus = "ACTIVE"
	StatusSold          ListingStatus = "SOLD"
	StatusArchived      ListingStatus = "ARCHIVED"
	StatusSuspended     ListingStatus = "SUSPENDED"
)

// Address is a structured listing address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// String renders the address in a single canonical line, used when
// comparing address values across listing revisions.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// Complete reports whether the address carries at least a street and city.
func (a *Address) Complete() bool {
	return a != nil && strings.TrimSpace(a.Street) != "" && strings.TrimSpace(a.City) != ""
}

// Listing is the external listing entity the engine governs. The engine
// references listings but never owns their persistence; snapshots arrive
// inside event payloads.
type Listing struct {
	ID               string        `json:"id"`
	PropertyID       string        `json:"property_id"`
	BrokerID         string        `json:"broker_id"`
	Source           Source        `json:"source"`
	SourceID         string        `json:"source_id"`
	Status           ListingStatus `json:"status"`
	Price            float64       `json:"price"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	LegalDescription string        `json:"legal_description"`
	PropertyType     string        `json:"property_type"`
	Address          *Address      `json:"address,omitempty"`
	Photos           []string      `json:"photos,omitempty"`
}

// ClaimType classifies a dispute filed against a listing.
type ClaimType string

const (
	ClaimOwnership    ClaimType = "OWNERSHIP"
	ClaimDataAccuracy ClaimType = "DATA_ACCURACY"
	ClaimDuplicate    ClaimType = "DUPLICATE"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	ClaimOpen     ClaimStatus = "OPEN"
	ClaimResolved ClaimStatus = "RESOLVED"
	ClaimRejected ClaimStatus = "REJECTED"
)

// Resolution is the verdict recorded when a claim is resolved.
type Resolution string

const (
	ResolutionUphold Resolution = "UPHOLD_CLAIM"
	ResolutionReject Resolution = "REJECT_CLAIM"
)

// Claim is a formal dispute record against a listing.
type Claim struct {
	ID         string      `json:"id"`
	ListingID  string      `json:"listing_id"`
	ClaimantID string      `json:"claimant_id"`
	Type       ClaimType   `json:"type"`
	Status     ClaimStatus `json:"status"`
	Evidence   string      `json:"evidence,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	Resolution Resolution  `json:"resolution,omitempty"`
}

// Payload carries the entity snapshots an event refers to. Creation and
// deletion events set Listing; updates set Current and Previous; claim
// events set Claim (with Claim.Resolution populated on resolution).
type Payload struct {
	Listing  *Listing `json:"listing,omitempty"`
	Current  *Listing `json:"current,omitempty"`
	Previous *Listing `json:"previous,omitempty"`
	Claim    *Claim   `json:"claim,omitempty"`
}

// Event is the immutable unit of work the engine evaluates. Identity is ID.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	SourceID  string    `json:"source_id,omitempty"`
	Payload   Payload   `json:"payload"`
}

// Subject returns the listing snapshot the event proposes: Current for
// updates, Listing otherwise.
func (e *Event) Subject() *Listing {
	if e.Payload.Current != nil {
		return e.Payload.Current
	}
	return e.Payload.Listing
}

// PreviousListing returns the pre-change snapshot, if the caller supplied one.
func (e *Event) PreviousListing() *Listing {
	return e.Payload.Previous
}

// User is the acting principal an event is evaluated on behalf of. The
// engine never authenticates; it only authorizes against this struct.
type User struct {
	ID       string   `json:"id"`
	Roles    []string `json:"roles"`
	BrokerID string   `json:"broker_id,omitempty"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Privileged reports whether the user bypasses ownership checks.
func (u *User) Privileged() bool {
	return u.HasRole("ADMIN") || u.HasRole("SYSTEM")
}

// Severity grades a rule result.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Blocking reports whether the severity is ERROR or worse.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// ActionType classifies the follow-on action a failed rule requires.
type ActionType string

const (
	ActionBlock          ActionType = "BLOCK"
	ActionFlag           ActionType = "FLAG"
	ActionAutoCorrect    ActionType = "AUTO_CORRECT"
	ActionDowngradeTrust ActionType = "DOWNGRADE_TRUST"
	ActionCreateClaim    ActionType = "CREATE_CLAIM"
	ActionMutatePayload  ActionType = "MUTATE_PAYLOAD"
	ActionNone           ActionType = "NONE"
)

// Detail keys used in Action.Details.
const (
	DetailTargetID        = "target_id"
	DetailField           = "field"
	DetailNewValue        = "new_value"
	DetailClaimType       = "claim_type"
	DetailTargetListingID = "target_listing_id"
	DetailClaimantID      = "claimant_id"
	DetailEvidence        = "evidence"
)

// Action describes a side effect a failed rule requires. Details are
// action-specific; see the Detail* keys.
type Action struct {
	Type    ActionType             `json:"type"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// DetailString returns the named detail as a string, or "" when absent.
func (a *Action) DetailString(key string) string {
	if a == nil || a.Details == nil {
		return ""
	}
	if v, ok := a.Details[key].(string); ok {
		return v
	}
	if v, ok := a.Details[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// Block builds a BLOCK action.
func Block() *Action {
	return &Action{Type: ActionBlock}
}

// Flag builds a FLAG action with optional details.
func Flag(details map[string]interface{}) *Action {
	return &Action{Type: ActionFlag, Details: details}
}

// AutoCorrectStatus builds an AUTO_CORRECT action that rewrites the
// status of the target listing.
func AutoCorrectStatus(targetID string, status ListingStatus) *Action {
	return &Action{
		Type: ActionAutoCorrect,
		Details: map[string]interface{}{
			DetailTargetID: targetID,
			DetailField:    "status",
			DetailNewValue: string(status),
		},
	}
}

// CreateClaim builds a CREATE_CLAIM action against the target listing.
// ClaimantID defaults to SYSTEM at execution time when left empty.
func CreateClaim(claimType ClaimType, targetListingID, evidence string) *Action {
	return &Action{
		Type: ActionCreateClaim,
		Details: map[string]interface{}{
			DetailClaimType:       string(claimType),
			DetailTargetListingID: targetListingID,
			DetailEvidence:        evidence,
		},
	}
}

// RuleResult is the verdict of one rule for one event. Passed == false
// means the rule found a violation or has work to do; it does not stop
// the evaluation pass. A non-nil, non-NONE Action implies Passed == false.
type RuleResult struct {
	RuleID   string   `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Reasons  []string `json:"reasons"`
	Action   *Action  `json:"action_required,omitempty"`
}

// Actionable reports whether the result carries an executable action.
func (r *RuleResult) Actionable() bool {
	return !r.Passed && r.Action != nil && r.Action.Type != ActionNone
}

// RuleStatus is the operational state of a rule.
type RuleStatus string

const (
	RuleStatusActive     RuleStatus = "ACTIVE"
	RuleStatusInactive   RuleStatus = "INACTIVE"
	RuleStatusDeprecated RuleStatus = "DEPRECATED"
)

// ValidRuleStatus reports whether s is an accepted rule status value.
func ValidRuleStatus(s RuleStatus) bool {
	switch s {
	case RuleStatusActive, RuleStatusInactive, RuleStatusDeprecated:
		return true
	}
	return false
}

// TrustScorer maps a data source, plus an optional specific source
// identity, to a 0-100 trust score.
type TrustScorer interface {
	Score(source Source, sourceID string) int
}

// ListingStore is the slice of the listing persistence layer the engine
// consumes. Update snapshots arrive in event payloads; the store is only
// queried for duplicate lookups and mutated during action execution.
type ListingStore interface {
	FindActiveByPropertyID(ctx context.Context, propertyID string) (string, error)
	GetByID(ctx context.Context, id string) (*Listing, error)
	UpdateField(ctx context.Context, id, field, value string) error
}

// ClaimStore persists claims created by rule actions.
type ClaimStore interface {
	Create(ctx context.Context, claim *Claim) error
}

// Notifier delivers owner-facing notifications. Calls are fire-and-forget:
// failures are logged by the caller, never propagated.
type Notifier interface {
	OwnerClaimFiled(ctx context.Context, ownerID, listingID string, claimType ClaimType) error
	ListingSuspended(ctx context.Context, ownerID, listingID, reason string) error
}

// Recorder receives the full result set of every evaluation pass.
// Implementations must never fail the decision path.
type Recorder interface {
	Record(ctx context.Context, event *Event, results []*RuleResult)
}

// EvalContext is the shared, read-only context one evaluation pass hands
// to every rule it runs. Rules must stay pure: all state they need comes
// through here or the event itself.
type EvalContext struct {
	Now      time.Time
	Actor    *User
	Listings ListingStore
	Trust    TrustScorer
}

// Rule is a named, versioned governance policy. Implementations are
// stateless values registered once at startup; their operational status
// may be overridden at runtime through the catalog without a redeploy.
type Rule interface {
	ID() string
	Name() string
	Description() string
	Triggers() []EventType
	Priority() int
	Status() RuleStatus
	Version() string
	Evaluate(ctx context.Context, event *Event, ec *EvalContext) (*RuleResult, error)
}
