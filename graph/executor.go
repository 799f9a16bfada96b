// Package graph runs the fixed sequential agent graph over a shared
// execution state.
//
// The four nodes run strictly in order: Coordinator, SceneUnderstanding,
// AnomalyDetection, SimilaritySearch. Each node builds its request payload
// from the state plus every previously completed result, invokes its agent,
// normalizes the raw output and dual-writes the result to the durable
// side-store and the in-memory state. Nodes may run in independent
// invocation contexts, so the side-store is the fallback read path when
// in-memory propagation is lost.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/logging"
	"github.com/drivemind-labs/sceneloop/normalize"
	"github.com/drivemind-labs/sceneloop/store"
)

// Terminal states of one graph run.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ErrNodeFailed wraps every node-level failure returned by Execute so
// callers can classify graph failures with errors.Is.
var ErrNodeFailed = errors.New("graph node failed")

// Default execution deadlines. A timed-out node is a node failure, which
// fails the whole run; the outer workflow layer decides whether to retry.
const (
	DefaultNodeTimeout  = 5 * time.Minute
	DefaultGraphTimeout = 15 * time.Minute
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Store is the durable side-channel for agent-to-agent data.
	Store core.ResultStore
	// Normalizer turns raw agent output into canonical responses.
	Normalizer *normalize.Normalizer
	// AgentRefs maps agent types to invocation references. Missing entries
	// default to the agent type string itself.
	AgentRefs map[core.AgentType]string
	// NodeTimeout bounds one agent invocation.
	NodeTimeout time.Duration
	// GraphTimeout bounds the whole run.
	GraphTimeout time.Duration

	Logger logging.Logger
}

// Result summarizes one graph run.
type Result struct {
	Status         string
	NodesCompleted int
	Duration       time.Duration
}

// Executor runs the agent graph. It holds no per-run state and is safe for
// concurrent use across independent scenes.
type Executor struct {
	invoker      core.AgentInvoker
	store        core.ResultStore
	normalizer   *normalize.Normalizer
	agentRefs    map[core.AgentType]string
	nodeTimeout  time.Duration
	graphTimeout time.Duration
	logger       logging.Logger
}

// New constructs an Executor with optional overrides.
func New(invoker core.AgentInvoker, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Store:        store.NewInMemoryStore(),
		Normalizer:   normalize.New(),
		NodeTimeout:  DefaultNodeTimeout,
		GraphTimeout: DefaultGraphTimeout,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	refs := make(map[core.AgentType]string, len(core.GraphOrder()))
	for _, at := range core.GraphOrder() {
		refs[at] = string(at)
	}
	for at, ref := range opts.AgentRefs {
		refs[at] = ref
	}

	return &Executor{
		invoker:      invoker,
		store:        opts.Store,
		normalizer:   opts.Normalizer,
		agentRefs:    refs,
		nodeTimeout:  opts.NodeTimeout,
		graphTimeout: opts.GraphTimeout,
		logger:       opts.Logger,
	}
}

// nodePayload is the JSON object each agent receives. The entry node gets
// the original task; later nodes get the accumulated prior results instead.
type nodePayload struct {
	AgentType    core.AgentType                         `json:"agent_type"`
	SceneID      string                                 `json:"scene_id"`
	SessionID    string                                 `json:"session_id"`
	Task         string                                 `json:"task,omitempty"`
	Embeddings   map[string][]float32                   `json:"embeddings,omitempty"`
	Metrics      map[string]float64                     `json:"metrics,omitempty"`
	Anomaly      *core.AnomalyContext                   `json:"anomaly_context,omitempty"`
	Enhanced     *core.EnhancedIntelligence             `json:"enhanced_intelligence,omitempty"`
	PriorResults map[core.AgentType]*core.AgentResponse `json:"prior_results,omitempty"`
}

// Execute runs all nodes in order against the state. The task is handed to
// the entry node only. A node failure stops the run; later nodes never
// execute and the partial results written so far remain in place.
func (e *Executor) Execute(ctx context.Context, state *core.ExecutionState, task string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.graphTimeout)
	defer cancel()

	start := time.Now()
	completed := 0

	for i, agentType := range core.GraphOrder() {
		if err := e.runNode(ctx, state, agentType, task, i == 0); err != nil {
			return &Result{
				Status:         StatusFailed,
				NodesCompleted: completed,
				Duration:       time.Since(start),
			}, fmt.Errorf("%w: %s: %w", ErrNodeFailed, agentType, err)
		}
		completed++
	}

	return &Result{
		Status:         StatusCompleted,
		NodesCompleted: completed,
		Duration:       time.Since(start),
	}, nil
}

func (e *Executor) runNode(ctx context.Context, state *core.ExecutionState, agentType core.AgentType, task string, entry bool) error {
	payload, err := e.buildPayload(ctx, state, agentType, task, entry)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	ref := e.agentRefs[agentType]
	start := time.Now()

	nodeCtx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	raw, err := e.invoker.Invoke(nodeCtx, ref, state.SessionID, payload)
	cancel()
	if err != nil {
		// Infrastructure errors are never swallowed here; the outer workflow
		// layer owns the retry decision.
		e.logger.Error("node invocation failed", "node", string(agentType), "scene_id", state.SceneID, "error", err)
		return fmt.Errorf("invoke: %w", err)
	}

	var resp *core.AgentResponse
	if len(bytes.TrimSpace(raw)) == 0 {
		e.logger.Warn("agent returned empty response, substituting empty result", "node", string(agentType), "scene_id", state.SceneID)
		resp = core.EmptyResponse(agentType, state.SceneID, "agent returned empty response body")
	} else {
		resp, err = e.normalizer.Normalize(agentType, state.SceneID, raw)
		if err != nil {
			// Only schema violations reach here; garbled output was already
			// recovered by the normalizer's fallback chain.
			return fmt.Errorf("normalize: %w", err)
		}
	}

	resp.Execution = core.ExecutionMeta{
		AgentRef:  ref,
		StartedAt: start.UTC(),
		Duration:  time.Since(start),
	}

	e.writeResult(ctx, state, agentType, resp)

	e.logger.Info("node completed",
		"node", string(agentType),
		"scene_id", state.SceneID,
		"duration_ms", time.Since(start).Milliseconds(),
		"validation_issues", resp.Validation.IssueCount,
	)

	return nil
}

// writeResult dual-writes the normalized result. The side-store write lands
// first so the result is durably visible before the next node starts; each
// write survives failure of the other.
func (e *Executor) writeResult(ctx context.Context, state *core.ExecutionState, agentType core.AgentType, resp *core.AgentResponse) {
	if err := e.store.Save(ctx, state.SceneID, agentType, resp); err != nil {
		e.logger.Error("side-store write failed, continuing with in-memory state only",
			"node", string(agentType), "scene_id", state.SceneID, "error", err)
	}

	if err := state.SetAgentResult(agentType, resp); err != nil {
		e.logger.Error("state append failed, side-store copy remains authoritative",
			"node", string(agentType), "scene_id", state.SceneID, "error", err)
	}
}

// buildPayload assembles the node's request. Prior results come from the
// in-memory state, falling back to the side-store when an expected entry is
// missing there.
func (e *Executor) buildPayload(ctx context.Context, state *core.ExecutionState, agentType core.AgentType, task string, entry bool) ([]byte, error) {
	p := nodePayload{
		AgentType:  agentType,
		SceneID:    state.SceneID,
		SessionID:  state.SessionID,
		Embeddings: state.Embeddings,
		Metrics:    state.Metrics,
		Anomaly:    state.Anomaly,
		Enhanced:   state.Enhanced,
	}

	if entry {
		p.Task = task
	} else {
		p.PriorResults = map[core.AgentType]*core.AgentResponse{}
		for _, prior := range core.GraphOrder() {
			if prior == agentType {
				break
			}
			if r, ok := state.AgentResult(prior); ok {
				p.PriorResults[prior] = r
				continue
			}
			r, err := e.store.Get(ctx, state.SceneID, prior)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					e.logger.Warn("side-store fallback read failed",
						"node", string(agentType), "missing", string(prior), "scene_id", state.SceneID, "error", err)
				}
				continue
			}
			e.logger.Debug("recovered prior result from side-store",
				"node", string(agentType), "missing", string(prior), "scene_id", state.SceneID)
			p.PriorResults[prior] = r
		}
	}

	return json.Marshal(p)
}
