package sceneloop

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/index/inmem"
	"github.com/drivemind-labs/sceneloop/invoke"
	"github.com/drivemind-labs/sceneloop/model"
	"github.com/drivemind-labs/sceneloop/workflow"
)

func agentDoc(agentType core.AgentType, sceneID string) []byte {
	doc := map[string]any{
		"scene_id": sceneID,
		"analysis": map[string]any{
			"summary":      "analysis from " + string(agentType),
			"key_findings": []string{"finding from " + string(agentType)},
		},
		"insights":        []string{"insight from " + string(agentType)},
		"recommendations": []string{"recommendation from " + string(agentType)},
	}
	b, _ := json.Marshal(doc)
	return b
}

func newTestInvoker(sceneID string) *invoke.MockInvoker {
	inv := invoke.NewMockInvoker()
	for _, at := range core.GraphOrder() {
		inv.SetResponse(string(at), agentDoc(at, sceneID))
	}
	return inv
}

func TestExecuteReportsSuccess(t *testing.T) {
	inv := newTestInvoker("scene-0042")
	reporter := workflow.NewInMemoryReporter()

	index := inmem.New("scene-reference", 2)
	require.NoError(t, index.Upsert(inmem.Record{ID: "ref-1", Embedding: []float32{1, 0}}))

	o, err := New(inv, func(opts *Options) {
		opts.Index = index
		opts.Reporter = reporter
	})
	require.NoError(t, err)

	scene := &core.Scene{ID: "scene-0042", Embeddings: map[string][]float32{"fusion": {1, 0}}}
	params := &core.WorkflowParams{Objective: "assess risk", MaxCycles: 2}

	agg, err := o.Execute(context.Background(), Task{
		TaskToken:      "token-1",
		Scene:          scene,
		Params:         params,
		OutputLocation: "s3://results/scene-0042.json",
	})

	require.NoError(t, err)
	// Identical agent output in both cycles converges at cycle 2.
	assert.Equal(t, core.TerminationConvergence, agg.TerminationReason)
	assert.Equal(t, 2, agg.CyclesRun)

	outcome, ok := reporter.Outcome("token-1")
	require.True(t, ok)
	require.NotNil(t, outcome.Success)
	assert.Equal(t, "s3://results/scene-0042.json", outcome.Success.OutputLocation)
	assert.Contains(t, outcome.Success.Summary, "convergence_achieved")
}

func TestExecuteReportsCycleFailure(t *testing.T) {
	inv := newTestInvoker("scene-0042")
	inv.SetError("coordinator", errors.New("invocation service down"))
	reporter := workflow.NewInMemoryReporter()

	o, err := New(inv, func(opts *Options) { opts.Reporter = reporter })
	require.NoError(t, err)

	scene := &core.Scene{ID: "scene-0042", Embeddings: map[string][]float32{"fusion": {1, 0}}}
	_, err = o.Execute(context.Background(), Task{
		TaskToken: "token-2",
		Scene:     scene,
		Params:    &core.WorkflowParams{Objective: "assess risk", MaxCycles: 1},
	})

	require.Error(t, err)
	outcome, ok := reporter.Outcome("token-2")
	require.True(t, ok)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, workflow.ErrorKindCycle, outcome.Failure.ErrorKind)
	assert.Contains(t, outcome.Failure.Cause, "invocation service down")
}

func TestExecuteRejectsSentinelScene(t *testing.T) {
	reporter := workflow.NewInMemoryReporter()
	o, err := New(invoke.NewMockInvoker(), func(opts *Options) { opts.Reporter = reporter })
	require.NoError(t, err)

	_, err = o.Execute(context.Background(), Task{
		TaskToken: "token-3",
		Scene:     &core.Scene{ID: core.SentinelSceneID},
		Params:    &core.WorkflowParams{Objective: "assess risk"},
	})

	require.Error(t, err)
	outcome, ok := reporter.Outcome("token-3")
	require.True(t, ok)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, workflow.ErrorKindScene, outcome.Failure.ErrorKind)
}

func TestExecuteInterpretsObjectiveWhenParamsMissing(t *testing.T) {
	inv := newTestInvoker("scene-0042")
	reporter := workflow.NewInMemoryReporter()

	gen := model.NewMockGenerator("mock")
	gen.QueueResponses(`{
		"objective": "assess lane change risk",
		"scenario_filters": {"maneuver_types": ["lane_change*"]},
		"required_analyses": ["scene_understanding"],
		"target_metrics": ["min_ttc"],
		"max_cycles": 1
	}`)

	o, err := New(inv, func(opts *Options) {
		opts.Generator = gen
		opts.Reporter = reporter
	})
	require.NoError(t, err)

	scene := &core.Scene{ID: "scene-0042", Embeddings: map[string][]float32{"fusion": {1, 0}}}
	agg, err := o.Execute(context.Background(), Task{
		TaskToken: "token-4",
		Scene:     scene,
		Objective: "assess lane change risk",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, agg.CyclesRun)
	assert.Equal(t, core.TerminationMaxCycles, agg.TerminationReason)

	outcome, ok := reporter.Outcome("token-4")
	require.True(t, ok)
	assert.NotNil(t, outcome.Success)
}

// capturingLogger implements logging.Logger and records message text.
type capturingLogger struct {
	messages []string
}

func (c *capturingLogger) Debug(msg string, _ ...any) { c.messages = append(c.messages, msg) }
func (c *capturingLogger) Info(msg string, _ ...any)  { c.messages = append(c.messages, msg) }
func (c *capturingLogger) Warn(msg string, _ ...any)  { c.messages = append(c.messages, msg) }
func (c *capturingLogger) Error(msg string, _ ...any) { c.messages = append(c.messages, msg) }

func TestOrchestratorLogsReachSuppliedLogger(t *testing.T) {
	inv := newTestInvoker("scene-0042")
	logger := &capturingLogger{}

	o, err := New(inv, func(opts *Options) { opts.Logger = logger })
	require.NoError(t, err)

	scene := &core.Scene{ID: "scene-0042", Embeddings: map[string][]float32{"fusion": {1, 0}}}
	_, err = o.ProcessScene(context.Background(), scene, &core.WorkflowParams{Objective: "assess risk", MaxCycles: 1})
	require.NoError(t, err)

	joined := strings.Join(logger.messages, "\n")
	assert.Contains(t, joined, "anomaly verdict")
	assert.Contains(t, joined, "Performance metrics")
}

func TestInterpretObjectiveRequiresGenerator(t *testing.T) {
	o, err := New(invoke.NewMockInvoker())
	require.NoError(t, err)

	_, err = o.InterpretObjective(context.Background(), "assess risk", "")
	assert.Error(t, err)
}

func TestProcessSceneColdStartAnomalousByDefault(t *testing.T) {
	// The default index is empty, so every scene is trivially novel.
	inv := newTestInvoker("scene-0042")
	o, err := New(inv)
	require.NoError(t, err)

	scene := &core.Scene{ID: "scene-0042", Embeddings: map[string][]float32{"fusion": {1, 0}}}
	agg, err := o.ProcessScene(context.Background(), scene, &core.WorkflowParams{Objective: "assess risk", MaxCycles: 1})

	require.NoError(t, err)
	require.NotNil(t, agg)

	coord := agg.FinalResults[core.AgentTypeCoordinator]
	require.NotNil(t, coord)

	// The cold-start verdict reached the entry node's payload.
	calls := inv.Calls()
	require.NotEmpty(t, calls)
	var payload struct {
		Anomaly *core.AnomalyContext `json:"anomaly_context"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Payload, &payload))
	require.NotNil(t, payload.Anomaly)
	assert.True(t, payload.Anomaly.IsAnomaly)
	assert.Equal(t, 1.0, payload.Anomaly.Score)
}
