package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphOrder(t *testing.T) {
	order := GraphOrder()

	assert.Equal(t, []AgentType{
		AgentTypeCoordinator,
		AgentTypeSceneUnderstanding,
		AgentTypeAnomalyDetection,
		AgentTypeSimilaritySearch,
	}, order)

	// Mutating the returned slice must not affect subsequent calls.
	order[0] = AgentTypeSimilaritySearch
	assert.Equal(t, AgentTypeCoordinator, GraphOrder()[0])
}

func TestScene_PrimaryEmbedding(t *testing.T) {
	scene := &Scene{
		ID: "scene-0001",
		Embeddings: map[string][]float32{
			"video":  {0.1, 0.2},
			"fusion": {0.3, 0.4},
			"lidar":  {0.5, 0.6},
		},
	}
	assert.Equal(t, []float32{0.3, 0.4}, scene.PrimaryEmbedding())

	delete(scene.Embeddings, "fusion")
	// Deterministic key order: "lidar" < "video".
	assert.Equal(t, []float32{0.5, 0.6}, scene.PrimaryEmbedding())

	empty := &Scene{ID: "scene-0002"}
	assert.Nil(t, empty.PrimaryEmbedding())
}

func TestExecutionState_AppendOnly(t *testing.T) {
	scene := &Scene{ID: "scene-0001", Embeddings: map[string][]float32{"fusion": {0.1}}}
	state := NewExecutionState(scene, NewID())

	first := &AgentResponse{AgentType: AgentTypeCoordinator, SceneID: scene.ID, Status: StatusSuccess}
	require.NoError(t, state.SetAgentResult(AgentTypeCoordinator, first))

	// Overwriting a recorded result violates the append-only invariant.
	err := state.SetAgentResult(AgentTypeCoordinator, &AgentResponse{})
	assert.Error(t, err)

	got, ok := state.AgentResult(AgentTypeCoordinator)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, []AgentType{AgentTypeCoordinator}, state.CompletedAgents())
}

func TestAgentResponse_Validate(t *testing.T) {
	resp := &AgentResponse{AgentType: AgentTypeSceneUnderstanding, SceneID: "scene-0001", Status: StatusSuccess}
	assert.NoError(t, resp.Validate())

	resp.SceneID = ""
	assert.Error(t, resp.Validate())

	resp.SceneID = SentinelSceneID
	assert.Error(t, resp.Validate())

	resp.SceneID = "scene-0001"
	bad := 1.5
	resp.Analysis.Confidence = &bad
	assert.Error(t, resp.Validate())
}

func TestEmptyResponse(t *testing.T) {
	resp := EmptyResponse(AgentTypeSimilaritySearch, "scene-0042", "agent returned empty body")

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "scene-0042", resp.SceneID)
	assert.Empty(t, resp.Insights)
	assert.Equal(t, 1, resp.Validation.IssueCount)
	assert.Contains(t, resp.Validation.Issues[0], "empty body")
	assert.NoError(t, resp.Validate())
}

func TestWorkflowParams_ApplyDefaults(t *testing.T) {
	p := &WorkflowParams{Objective: "night_driving_safety"}
	p.ApplyDefaults()

	assert.Equal(t, DefaultMaxCycles, p.MaxCycles)
	assert.Equal(t, DefaultConvergenceThreshold, p.ConvergenceThreshold)

	p2 := &WorkflowParams{MaxCycles: 7, ConvergenceThreshold: 0.5}
	p2.ApplyDefaults()
	assert.Equal(t, 7, p2.MaxCycles)
	assert.Equal(t, 0.5, p2.ConvergenceThreshold)
}

func TestCallLimiter(t *testing.T) {
	l := NewCallLimiter(2)

	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))
	assert.Equal(t, 2, l.InFlight())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Acquire(ctx))

	l.Release()
	assert.Equal(t, 1, l.InFlight())

	unbounded := NewCallLimiter(0)
	assert.NoError(t, unbounded.Acquire(ctx)) // cancelled ctx ignored when unbounded
	assert.Equal(t, 0, unbounded.InFlight())
}

func TestNewRunID_Sortable(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.Len(t, a, 26)
	assert.LessOrEqual(t, a, b)
}
