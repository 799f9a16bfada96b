// Package cycle re-runs the agent graph over one scene until results
// stabilize or the cycle budget runs out.
//
// Each cycle seeds a fresh execution state with the anomaly verdict, the
// cross-scene context gathered after the previous cycle and a rolling
// summary of recent insights, then runs the graph once. From the second
// cycle onward the controller evaluates convergence and early-termination
// conditions against the previous cycle's results.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/graph"
	"github.com/drivemind-labs/sceneloop/logging"
	"github.com/drivemind-labs/sceneloop/model"
)

// History and payload growth bounds.
const (
	// MaxCycleHistory bounds the retained cycle results; the oldest entry is
	// evicted beyond this.
	MaxCycleHistory = 10
	// MaxRollingPerAgent bounds how many recent insights and recommendations
	// per agent flow into the next cycle's summary.
	MaxRollingPerAgent = 5
)

// ErrCycleFailed wraps cycle-loop failures returned by Run so callers can
// classify them with errors.Is.
var ErrCycleFailed = errors.New("cycle failed")

// GraphRunner runs one graph pass over a state. *graph.Executor is the
// production implementation.
type GraphRunner interface {
	Execute(ctx context.Context, state *core.ExecutionState, task string) (*graph.Result, error)
}

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Embedder derives a query vector from the objective text for scenes
	// that carry no embeddings. Optional.
	Embedder model.Embedder
	// CrossSceneIndex is the named index queried for similar scenes.
	CrossSceneIndex string
	// SimilarityCutoff discards cross-scene hits below this similarity.
	SimilarityCutoff float64
	// MaxSimilarScenes bounds the hits kept per enrichment query.
	MaxSimilarScenes int
	// InsightWeight and RecommendationWeight combine the two per-agent
	// similarity components of the convergence score.
	InsightWeight        float64
	RecommendationWeight float64

	Logger logging.Logger
}

// Controller drives the cycle loop for one scene at a time. It holds no
// per-run state and is safe for concurrent use across independent scenes.
type Controller struct {
	runner   GraphRunner
	index    core.VectorIndex
	embedder model.Embedder
	opts     Options
	logger   logging.Logger
}

// New constructs a Controller with optional overrides.
func New(runner GraphRunner, index core.VectorIndex, optFns ...func(o *Options)) *Controller {
	opts := Options{
		CrossSceneIndex:      DefaultCrossSceneIndex,
		SimilarityCutoff:     DefaultSimilarityCutoff,
		MaxSimilarScenes:     DefaultMaxSimilarScenes,
		InsightWeight:        DefaultInsightWeight,
		RecommendationWeight: DefaultRecommendationWeight,
		Logger:               logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxSimilarScenes <= 0 {
		opts.MaxSimilarScenes = DefaultMaxSimilarScenes
	}

	return &Controller{
		runner:   runner,
		index:    index,
		embedder: opts.Embedder,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Run executes up to params.MaxCycles graph passes over the scene and
// aggregates the outcome. The anomaly verdict is computed once per scene by
// the caller and injected into every cycle's state.
//
// A failed cycle is skipped unless it is the final allowed cycle, in which
// case the error propagates together with the partial aggregate, so
// completed cycles are never lost.
func (c *Controller) Run(ctx context.Context, scene *core.Scene, params *core.WorkflowParams, anomaly *core.AnomalyContext) (*core.AggregatedResult, error) {
	// The caller's parameters are read-only; defaults apply to a local copy.
	p := *params
	p.ApplyDefaults()
	params = &p
	sessionID := core.NewID()

	var (
		history    []core.CycleResult
		crossCtx   *core.CrossSceneContext
		lastScore  float64
		terminated string
	)

	for cycleNum := 1; cycleNum <= params.MaxCycles; cycleNum++ {
		state := core.NewExecutionState(scene, sessionID)
		state.Anomaly = anomaly
		state.Enhanced = c.buildEnhanced(crossCtx, history)

		task := c.buildTask(params, history)

		started := time.Now()
		res, err := c.runner.Execute(ctx, state, task)
		if err != nil {
			c.logger.Warn("cycle failed", "scene_id", scene.ID, "cycle", cycleNum, "error", err)
			if cycleNum == params.MaxCycles {
				if len(history) == 0 {
					return nil, fmt.Errorf("%w: no cycle completed: %w", ErrCycleFailed, err)
				}
				return c.aggregate(scene.ID, history, terminated, lastScore),
					fmt.Errorf("%w: cycle %d of %d: %w", ErrCycleFailed, cycleNum, params.MaxCycles, err)
			}
			continue
		}

		history = appendBounded(history, core.CycleResult{
			Cycle:          cycleNum,
			Timestamp:      started.UTC(),
			AgentResults:   state.AgentResults,
			ExecutionOrder: state.CompletedAgents(),
			Duration:       res.Duration,
			NodesCompleted: res.NodesCompleted,
			ContextSize:    crossCtx.Size(),
		})

		c.logger.Info("cycle completed",
			"scene_id", scene.ID, "cycle", cycleNum, "nodes", res.NodesCompleted,
			"duration_ms", res.Duration.Milliseconds())

		if len(history) >= 2 {
			prev := history[len(history)-2].AgentResults
			curr := history[len(history)-1].AgentResults

			lastScore = convergenceScore(prev, curr, c.opts.InsightWeight, c.opts.RecommendationWeight)
			if lastScore >= params.ConvergenceThreshold {
				terminated = core.TerminationConvergence
				c.logger.Info("convergence achieved", "scene_id", scene.ID, "cycle", cycleNum, "score", lastScore)
				break
			}
			if !hasNewInsights(prev, curr) {
				terminated = core.TerminationNoNewInsights
				c.logger.Info("no new insights, terminating early", "scene_id", scene.ID, "cycle", cycleNum)
				break
			}
		}

		if cycleNum < params.MaxCycles {
			crossCtx = c.enrichCrossScene(ctx, scene, params, cycleNum+1)
		}
	}

	if terminated == "" {
		terminated = core.TerminationMaxCycles
	}

	return c.aggregate(scene.ID, history, terminated, lastScore), nil
}

// buildEnhanced folds the pending cross-scene context and a rolling summary
// of the previous cycle into the enrichment record injected into the next
// state.
func (c *Controller) buildEnhanced(crossCtx *core.CrossSceneContext, history []core.CycleResult) *core.EnhancedIntelligence {
	if crossCtx == nil && len(history) == 0 {
		return nil
	}

	enhanced := &core.EnhancedIntelligence{}
	if crossCtx != nil {
		enhanced.SimilarScenes = crossCtx.SimilarScenes
		enhanced.CrossReference = strings.Join(crossCtx.PatternInsights, "; ")
	}
	if len(history) > 0 {
		summary := rollingSummary(history[len(history)-1])
		if summary != "" {
			if enhanced.CrossReference != "" {
				enhanced.CrossReference += "\n"
			}
			enhanced.CrossReference += summary
		}
	}
	return enhanced
}

// buildTask frames the entry node's task: the objective plus a pointer to
// the refinement round underway.
func (c *Controller) buildTask(params *core.WorkflowParams, history []core.CycleResult) string {
	if len(history) == 0 {
		return params.Objective
	}
	return fmt.Sprintf("%s\n\nRefinement cycle %d: deepen or correct the prior findings summarized in the enhanced intelligence context.",
		params.Objective, history[len(history)-1].Cycle+1)
}

// rollingSummary condenses one cycle's output, keeping the most recent
// entries per agent to bound payload growth across cycles.
func rollingSummary(last core.CycleResult) string {
	var b strings.Builder
	for _, agentType := range last.ExecutionOrder {
		resp, ok := last.AgentResults[agentType]
		if !ok {
			continue
		}
		insights := tail(resp.Insights, MaxRollingPerAgent)
		recs := tail(resp.Recommendations, MaxRollingPerAgent)
		if len(insights) == 0 && len(recs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "[%s cycle %d]", agentType, last.Cycle)
		if len(insights) > 0 {
			fmt.Fprintf(&b, " insights: %s.", strings.Join(insights, "; "))
		}
		if len(recs) > 0 {
			fmt.Fprintf(&b, " recommendations: %s.", strings.Join(recs, "; "))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func tail(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func appendBounded(history []core.CycleResult, r core.CycleResult) []core.CycleResult {
	history = append(history, r)
	if len(history) > MaxCycleHistory {
		history = history[1:]
	}
	return history
}

// aggregate folds the retained cycle history into the final result. The
// last completed cycle's agent results are authoritative; the all-time
// unions exist for observability only.
func (c *Controller) aggregate(sceneID string, history []core.CycleResult, reason string, score float64) *core.AggregatedResult {
	agg := &core.AggregatedResult{
		SceneID:            sceneID,
		TerminationReason:  reason,
		ConvergenceScore:   score,
		AllInsights:        []string{},
		AllRecommendations: []string{},
	}
	if len(history) == 0 {
		return agg
	}

	final := history[len(history)-1]
	agg.CyclesRun = final.Cycle
	agg.FinalResults = final.AgentResults

	seenInsight := map[string]struct{}{}
	seenRec := map[string]struct{}{}
	for _, cr := range history {
		summary := core.CycleSummary{
			Cycle:      cr.Cycle,
			AgentCount: len(cr.AgentResults),
			Duration:   cr.Duration,
		}
		for _, agentType := range cr.ExecutionOrder {
			resp, ok := cr.AgentResults[agentType]
			if !ok {
				continue
			}
			if summary.FirstFinding == "" && len(resp.Analysis.KeyFindings) > 0 {
				summary.FirstFinding = snippet(resp.Analysis.KeyFindings[0], 80)
			}
			for _, in := range resp.Insights {
				if _, ok := seenInsight[in]; !ok {
					seenInsight[in] = struct{}{}
					agg.AllInsights = append(agg.AllInsights, in)
				}
			}
			for _, rec := range resp.Recommendations {
				if _, ok := seenRec[rec]; !ok {
					seenRec[rec] = struct{}{}
					agg.AllRecommendations = append(agg.AllRecommendations, rec)
				}
			}
		}
		agg.Progression = append(agg.Progression, summary)
	}

	return agg
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
