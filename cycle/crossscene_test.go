package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drivemind-labs/sceneloop/core"
)

func TestMatchesFiltersGlobs(t *testing.T) {
	metadata := map[string]string{
		"environment_type":  "highway_merge",
		"weather_condition": "light_rain",
		"maneuver_type":     "lane_change_left",
	}

	assert.True(t, matchesFilters(metadata, core.ScenarioFilters{}))
	assert.True(t, matchesFilters(metadata, core.ScenarioFilters{Environments: []string{"highway*"}}))
	assert.True(t, matchesFilters(metadata, core.ScenarioFilters{Maneuvers: []string{"lane_change*", "overtake*"}}))
	assert.False(t, matchesFilters(metadata, core.ScenarioFilters{Environments: []string{"urban*"}}))
	assert.False(t, matchesFilters(metadata, core.ScenarioFilters{Weather: []string{"snow", "fog"}}))
}

func TestMatchesFiltersMissingMetadataPasses(t *testing.T) {
	// Index entries that predate the metadata fields are never filtered out
	// by them.
	assert.True(t, matchesFilters(nil, core.ScenarioFilters{
		Environments:  []string{"highway*"},
		RiskThreshold: 0.8,
	}))
}

func TestMatchesFiltersRiskThreshold(t *testing.T) {
	low := map[string]string{"risk_score": "0.3"}
	high := map[string]string{"risk_score": "0.9"}
	garbled := map[string]string{"risk_score": "n/a"}

	f := core.ScenarioFilters{RiskThreshold: 0.8}
	assert.False(t, matchesFilters(low, f))
	assert.True(t, matchesFilters(high, f))
	assert.True(t, matchesFilters(garbled, f))
}
