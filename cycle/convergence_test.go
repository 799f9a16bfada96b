package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drivemind-labs/sceneloop/core"
)

func TestWordSetSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"identical", []string{"dense traffic ahead"}, []string{"dense traffic ahead"}, 1.0},
		{"reordered words", []string{"traffic dense, ahead!"}, []string{"ahead dense traffic"}, 1.0},
		{"case insensitive", []string{"Dense Traffic"}, []string{"dense traffic"}, 1.0},
		{"disjoint", []string{"glare washes camera"}, []string{"truck blocks lidar"}, 0.0},
		{"half overlap", []string{"dense traffic"}, []string{"dense fog"}, 1.0 / 3.0},
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"dense traffic"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, wordSetSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestConvergenceScoreWeighting(t *testing.T) {
	prev := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeCoordinator: {Insights: []string{"dense traffic"}, Recommendations: []string{"reduce speed"}},
	}
	curr := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeCoordinator: {Insights: []string{"dense traffic"}, Recommendations: []string{"widen gap"}},
	}

	// Identical insights, disjoint recommendations.
	score := convergenceScore(prev, curr, DefaultInsightWeight, DefaultRecommendationWeight)
	assert.InDelta(t, 0.6, score, 1e-9)
}

func TestConvergenceScoreAveragesAcrossAgents(t *testing.T) {
	prev := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeCoordinator:        {Insights: []string{"dense traffic"}},
		core.AgentTypeSceneUnderstanding: {Insights: []string{"occluded pedestrian"}},
	}
	curr := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeCoordinator:        {Insights: []string{"dense traffic"}},
		core.AgentTypeSceneUnderstanding: {Insights: []string{"fresh snowfall"}},
		core.AgentTypeSimilaritySearch:   {Insights: []string{"only in current"}},
	}

	// Coordinator scores 1.0, scene understanding 0.4 (disjoint insights,
	// empty recs count as identical), similarity search is ignored.
	score := convergenceScore(prev, curr, DefaultInsightWeight, DefaultRecommendationWeight)
	assert.InDelta(t, 0.7, score, 1e-9)
}

func TestConvergenceScoreNoSharedAgents(t *testing.T) {
	prev := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeCoordinator: {Insights: []string{"dense traffic"}},
	}
	curr := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeSimilaritySearch: {Insights: []string{"dense traffic"}},
	}

	assert.Zero(t, convergenceScore(prev, curr, DefaultInsightWeight, DefaultRecommendationWeight))
}

func TestHasNewInsights(t *testing.T) {
	prev := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeCoordinator: {Insights: []string{"dense traffic"}},
	}

	same := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeSceneUnderstanding: {Insights: []string{"dense traffic"}},
	}
	assert.False(t, hasNewInsights(prev, same))

	fresh := map[core.AgentType]*core.AgentResponse{
		core.AgentTypeCoordinator: {Insights: []string{"dense traffic", "black ice patch"}},
	}
	assert.True(t, hasNewInsights(prev, fresh))
}
