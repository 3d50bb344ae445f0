package governance

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// StatusStore holds the per-rule enable/disable overrides, keyed by rule
// ID. Overrides live independently of the rule's declared status so
// operators can disable a rule without redeploying code.
type StatusStore interface {
	Set(ctx context.Context, ruleID string, status RuleStatus) error
	All(ctx context.Context) (map[string]RuleStatus, error)
}

// MemoryStatusStore is a process-local StatusStore.
type MemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[string]RuleStatus
}

// NewMemoryStatusStore creates an empty in-memory status store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{statuses: make(map[string]RuleStatus)}
}

// Set records an override for the given rule.
func (s *MemoryStatusStore) Set(_ context.Context, ruleID string, status RuleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[ruleID] = status
	return nil
}

// All returns a copy of every recorded override.
func (s *MemoryStatusStore) All(_ context.Context) (map[string]RuleStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]RuleStatus, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out, nil
}

// Catalog holds every registered rule, indexed by trigger event type and
// sorted by descending priority (ties broken by registration order).
type Catalog struct {
	logger   *zap.Logger
	statuses StatusStore

	mu      sync.RWMutex
	rules   map[string]Rule
	seq     map[string]int
	byEvent map[EventType][]Rule
	nextSeq int
}

// NewCatalog creates a catalog backed by the given override store.
func NewCatalog(statuses StatusStore, logger *zap.Logger) *Catalog {
	return &Catalog{
		logger:   logger,
		statuses: statuses,
		rules:    make(map[string]Rule),
		seq:      make(map[string]int),
		byEvent:  make(map[EventType][]Rule),
	}
}

// Register adds a rule to the catalog. Registration is idempotent by rule
// ID: re-registering overwrites the previous definition with a warning
// and keeps the rule's original position for priority tie-breaks.
func (c *Catalog) Register(rule Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.rules[rule.ID()]; exists {
		c.logger.Warn("Overwriting already-registered rule",
			zap.String("rule_id", rule.ID()),
			zap.String("rule_name", rule.Name()),
		)
	} else {
		c.seq[rule.ID()] = c.nextSeq
		c.nextSeq++
	}
	c.rules[rule.ID()] = rule
	c.reindex()

	c.logger.Debug("Rule registered",
		zap.String("rule_id", rule.ID()),
		zap.Int("priority", rule.Priority()),
		zap.Int("triggers", len(rule.Triggers())),
	)
}

// reindex rebuilds the per-event indexes. Caller holds the write lock.
func (c *Catalog) reindex() {
	c.byEvent = make(map[EventType][]Rule)
	ordered := c.orderedLocked()
	for _, rule := range ordered {
		for _, t := range rule.Triggers() {
			c.byEvent[t] = append(c.byEvent[t], rule)
		}
	}
}

// orderedLocked returns every rule sorted by priority descending, then
// registration order. Caller holds at least the read lock.
func (c *Catalog) orderedLocked() []Rule {
	ordered := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		ordered = append(ordered, r)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority() != ordered[j].Priority() {
			return ordered[i].Priority() > ordered[j].Priority()
		}
		return c.seq[ordered[i].ID()] < c.seq[ordered[j].ID()]
	})
	return ordered
}

// RulesForEvent returns the rules triggered by the given event type whose
// current override status is ACTIVE, in evaluation order. The override
// table is read once, so one lookup sees a consistent snapshot.
func (c *Catalog) RulesForEvent(ctx context.Context, t EventType) []Rule {
	overrides := c.snapshotOverrides(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()

	indexed := c.byEvent[t]
	active := make([]Rule, 0, len(indexed))
	for _, rule := range indexed {
		if effectiveStatus(rule, overrides) == RuleStatusActive {
			active = append(active, rule)
		}
	}
	return active
}

// SetStatus records an override for the given rule. Returns false when no
// rule with that ID is registered.
func (c *Catalog) SetStatus(ctx context.Context, ruleID string, status RuleStatus) bool {
	c.mu.RLock()
	_, exists := c.rules[ruleID]
	c.mu.RUnlock()
	if !exists {
		return false
	}

	if err := c.statuses.Set(ctx, ruleID, status); err != nil {
		c.logger.Error("Failed to persist rule status override",
			zap.String("rule_id", ruleID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return false
	}

	c.logger.Info("Rule status override set",
		zap.String("rule_id", ruleID),
		zap.String("status", string(status)),
	)
	return true
}

// StatusOf returns the rule's current effective status: the override when
// one exists, ACTIVE otherwise.
func (c *Catalog) StatusOf(ctx context.Context, ruleID string) RuleStatus {
	overrides := c.snapshotOverrides(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	rule, exists := c.rules[ruleID]
	if !exists {
		return ""
	}
	return effectiveStatus(rule, overrides)
}

// All returns every registered rule in evaluation order, regardless of
// override status.
func (c *Catalog) All() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orderedLocked()
}

// snapshotOverrides reads the override table, degrading to no overrides
// on store failure so evaluation never stalls on the override backend.
func (c *Catalog) snapshotOverrides(ctx context.Context) map[string]RuleStatus {
	overrides, err := c.statuses.All(ctx)
	if err != nil {
		c.logger.Warn("Failed to read rule status overrides, using defaults", zap.Error(err))
		return nil
	}
	return overrides
}

// effectiveStatus resolves a rule's live status. A rule never toggled
// defaults to ACTIVE.
func effectiveStatus(rule Rule, overrides map[string]RuleStatus) RuleStatus {
	if status, ok := overrides[rule.ID()]; ok {
		return status
	}
	return RuleStatusActive
}
