package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// ruleStatusKey is the redis hash holding rule status overrides, keyed by
// rule ID. Keeping the overrides in redis means a toggle on one instance
// is visible to every instance without a redeploy.
const ruleStatusKey = "governance:rule-status"

// RuleStatusStore is a redis-backed rule status override store.
type RuleStatusStore struct {
	client *redis.Client
}

// NewRuleStatusStore creates a status store on the given redis client.
func NewRuleStatusStore(client *redis.Client) *RuleStatusStore {
	return &RuleStatusStore{client: client}
}

// Set records an override for the given rule.
func (s *RuleStatusStore) Set(ctx context.Context, ruleID string, status governance.RuleStatus) error {
	if err := s.client.HSet(ctx, ruleStatusKey, ruleID, string(status)).Err(); err != nil {
		return fmt.Errorf("storing status override for rule %s: %w", ruleID, err)
	}
	return nil
}

// All returns every recorded override.
func (s *RuleStatusStore) All(ctx context.Context) (map[string]governance.RuleStatus, error) {
	raw, err := s.client.HGetAll(ctx, ruleStatusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("reading rule status overrides: %w", err)
	}
	out := make(map[string]governance.RuleStatus, len(raw))
	for ruleID, status := range raw {
		out[ruleID] = governance.RuleStatus(status)
	}
	return out, nil
}
