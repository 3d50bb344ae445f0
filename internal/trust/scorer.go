package trust

import (
	"sync"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// Trust score tiers. A source's score decides whether it may overwrite
// data asserted by another source.
const (
	ScoreVerified   = 100
	ScoreTrusted    = 80
	ScoreConfirmed  = 60
	ScoreUnverified = 40
	ScoreScraped    = 20
)

// baseScores is the fixed source hierarchy. Unknown sources resolve to
// ScoreUnverified.
var baseScores = map[governance.Source]int{
	governance.SourceMLSFeed: ScoreTrusted,
	governance.SourceManual:  ScoreConfirmed,
	governance.SourceScraper: ScoreScraped,
}

// Scorer maps a (source, sourceID) pair to a 0-100 trust score. Specific
// source identities may be pinned above their source's base score, e.g. a
// named broker feed pinned to ScoreVerified.
type Scorer struct {
	mu        sync.RWMutex
	overrides map[string]int
}

// NewScorer creates a scorer with the given per-identity overrides.
// Override scores are clamped to 0-100.
func NewScorer(overrides map[string]int) *Scorer {
	s := &Scorer{overrides: make(map[string]int, len(overrides))}
	for id, score := range overrides {
		s.overrides[id] = clamp(score)
	}
	return s
}

// Score resolves the trust score for the source, preferring a pinned
// per-identity override when sourceID names one. Lookup is a direct map;
// there is no fallback chain beyond source to default.
func (s *Scorer) Score(source governance.Source, sourceID string) int {
	if sourceID != "" {
		s.mu.RLock()
		score, ok := s.overrides[sourceID]
		s.mu.RUnlock()
		if ok {
			return score
		}
	}
	if score, ok := baseScores[source]; ok {
		return score
	}
	return ScoreUnverified
}

// SetOverride pins a specific source identity to a score.
func (s *Scorer) SetOverride(sourceID string, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[sourceID] = clamp(score)
}

// Overrides returns a copy of the current per-identity overrides.
func (s *Scorer) Overrides() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
