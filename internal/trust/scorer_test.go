package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/propertymesh/listing-governance/internal/governance"
)

func TestScorerBaseScores(t *testing.T) {
	scorer := NewScorer(nil)

	assert.Equal(t, ScoreTrusted, scorer.Score(governance.SourceMLSFeed, ""))
	assert.Equal(t, ScoreConfirmed, scorer.Score(governance.SourceManual, ""))
	assert.Equal(t, ScoreScraped, scorer.Score(governance.SourceScraper, ""))
}

func TestScorerUnknownSourceDefaultsToUnverified(t *testing.T) {
	scorer := NewScorer(nil)

	assert.Equal(t, ScoreUnverified, scorer.Score("PARTNER_API", ""))
	assert.Equal(t, ScoreUnverified, scorer.Score("", ""))
}

func TestScorerOverrideWinsOverBaseScore(t *testing.T) {
	scorer := NewScorer(map[string]int{"mls-region-9": ScoreVerified})

	assert.Equal(t, ScoreVerified, scorer.Score(governance.SourceMLSFeed, "mls-region-9"))
	// Other identities on the same source keep the base score.
	assert.Equal(t, ScoreTrusted, scorer.Score(governance.SourceMLSFeed, "mls-region-2"))
}

func TestScorerOverrideAppliesRegardlessOfSource(t *testing.T) {
	scorer := NewScorer(map[string]int{"curated-scraper": 75})

	assert.Equal(t, 75, scorer.Score(governance.SourceScraper, "curated-scraper"))
}

func TestScorerSetOverrideClamps(t *testing.T) {
	scorer := NewScorer(nil)

	scorer.SetOverride("too-high", 150)
	scorer.SetOverride("too-low", -10)

	assert.Equal(t, 100, scorer.Score(governance.SourceManual, "too-high"))
	assert.Equal(t, 0, scorer.Score(governance.SourceManual, "too-low"))
}

func TestScorerOverridesReturnsCopy(t *testing.T) {
	scorer := NewScorer(map[string]int{"feed-a": 90})

	overrides := scorer.Overrides()
	overrides["feed-a"] = 10

	assert.Equal(t, 90, scorer.Score(governance.SourceMLSFeed, "feed-a"))
}
