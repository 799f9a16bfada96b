// Package sceneloop provides a high-level façade over the orchestration
// engine: objective interpretation, anomaly detection, the agent graph and
// the cycle controller. Most applications interact with this package by:
//  1. Creating an Orchestrator via New() (optionally overriding default
//     in-memory services)
//  2. Interpreting a business objective into workflow parameters
//  3. Executing one task per scene on behalf of the outer workflow engine
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable result store, a populated vector
// index and a structured logger.
package sceneloop

import (
	"context"
	"fmt"
	"time"

	"github.com/drivemind-labs/sceneloop/anomaly"
	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/cycle"
	"github.com/drivemind-labs/sceneloop/graph"
	"github.com/drivemind-labs/sceneloop/index/inmem"
	"github.com/drivemind-labs/sceneloop/logging"
	"github.com/drivemind-labs/sceneloop/model"
	"github.com/drivemind-labs/sceneloop/normalize"
	"github.com/drivemind-labs/sceneloop/objective"
	"github.com/drivemind-labs/sceneloop/store"
	"github.com/drivemind-labs/sceneloop/workflow"
)

// Options configures the Orchestrator.
type Options struct {
	// Generator backs the objective interpreter. Optional; without it
	// InterpretObjective is unavailable and tasks must carry explicit
	// parameters.
	Generator model.Generator

	// Embedder derives query vectors for scenes without embeddings. Optional.
	Embedder model.Embedder

	// Index is the vector index used for anomaly detection and cross-scene
	// enrichment. Defaults to an empty in-memory index.
	Index core.VectorIndex

	// Store is the durable side-channel for agent-to-agent data. Defaults
	// to an in-memory implementation.
	Store core.ResultStore

	// Reporter delivers task outcomes to the workflow engine. Defaults to
	// an in-memory implementation.
	Reporter workflow.Reporter

	// IndexName is the named reference index for both detection and
	// enrichment queries.
	IndexName string

	// AnomalyThreshold is the similarity cutoff for the anomaly verdict.
	AnomalyThreshold float64

	// MaxConcurrentScenes bounds concurrent Execute calls. This prevents
	// resource exhaustion and provides backpressure on the vector index and
	// invocation services. Set to 0 for unlimited (not recommended).
	MaxConcurrentScenes int

	// Logger (defaults to NoOp logger if nil). Pass a *logging.SceneLogger
	// to get per-scene contextual fields on orchestrator log lines.
	Logger logging.Logger
}

// Task is one workflow-engine execution request: analyze one scene under
// one objective and resolve the task token with the outcome.
type Task struct {
	TaskToken      string
	Scene          *core.Scene
	Objective      string
	Params         *core.WorkflowParams // optional, skips interpretation
	OutputLocation string
}

// Orchestrator aggregates the engine components behind one entry point.
type Orchestrator struct {
	detector    *anomaly.Detector
	controller  *cycle.Controller
	interpreter *objective.Interpreter
	reporter    workflow.Reporter
	limiter     *core.CallLimiter
	threshold   float64
	logger      *logging.SceneLogger
}

// New creates an Orchestrator with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(invoker core.AgentInvoker, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		IndexName:           "scene-reference",
		AnomalyThreshold:    anomaly.DefaultThreshold,
		MaxConcurrentScenes: 10,
		Store:               store.NewInMemoryStore(),
		Reporter:            workflow.NewInMemoryReporter(),
		Logger:              logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Index == nil {
		opts.Index = inmem.New(opts.IndexName, 0)
	}

	sceneLogger := logging.NewSceneLoggerFrom(opts.Logger)

	detector := anomaly.NewDetector(opts.Index, func(o *anomaly.Options) {
		o.IndexName = opts.IndexName
		o.Logger = opts.Logger
	})

	executor := graph.New(invoker, func(o *graph.Options) {
		o.Store = opts.Store
		o.Normalizer = normalize.New(func(n *normalize.Options) { n.Logger = opts.Logger })
		o.Logger = opts.Logger
	})

	controller := cycle.New(executor, opts.Index, func(o *cycle.Options) {
		o.Embedder = opts.Embedder
		o.CrossSceneIndex = opts.IndexName
		o.Logger = opts.Logger
	})

	var interpreter *objective.Interpreter
	if opts.Generator != nil {
		var err error
		interpreter, err = objective.NewInterpreter(opts.Generator, func(o *objective.Options) {
			o.Logger = opts.Logger
		})
		if err != nil {
			return nil, err
		}
	}

	return &Orchestrator{
		detector:    detector,
		controller:  controller,
		interpreter: interpreter,
		reporter:    opts.Reporter,
		limiter:     core.NewCallLimiter(opts.MaxConcurrentScenes),
		threshold:   opts.AnomalyThreshold,
		logger:      sceneLogger.WithComponent("orchestrator"),
	}, nil
}

// InterpretObjective derives workflow parameters from free-form objective
// text.
func (o *Orchestrator) InterpretObjective(ctx context.Context, objectiveText, sceneContext string) (*core.WorkflowParams, error) {
	if o.interpreter == nil {
		return nil, fmt.Errorf("sceneloop: no generator configured for objective interpretation")
	}
	return o.interpreter.Interpret(ctx, objectiveText, sceneContext)
}

// ProcessScene runs the full cycle loop for one scene: anomaly verdict
// first, then up to params.MaxCycles graph passes.
func (o *Orchestrator) ProcessScene(ctx context.Context, scene *core.Scene, params *core.WorkflowParams) (*core.AggregatedResult, error) {
	if scene == nil || scene.ID == "" || scene.ID == core.SentinelSceneID {
		return nil, fmt.Errorf("sceneloop: scene id missing or sentinel")
	}

	if err := o.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("sceneloop: acquire scene slot: %w", err)
	}
	defer o.limiter.Release()

	runID := core.NewRunID()
	logger := o.logger.WithScene(scene.ID, runID)
	stop := logger.StartTimer("process_scene")
	defer stop()

	verdict := o.detector.Detect(ctx, scene.PrimaryEmbedding(), o.threshold)
	logger.Info("anomaly verdict", "is_anomaly", verdict.IsAnomaly, "score", verdict.Score)

	started := time.Now()
	agg, err := o.controller.Run(ctx, scene, params, &verdict)
	if err != nil {
		logger.ErrorWithStack(err, "cycle loop failed")
		return agg, err
	}

	logger.LogPerformance("cycle_loop", time.Since(started), map[string]interface{}{
		"cycles_run":         agg.CyclesRun,
		"termination_reason": agg.TerminationReason,
		"convergence_score":  agg.ConvergenceScore,
	})
	return agg, nil
}

// Execute runs one workflow-engine task end to end and resolves its task
// token: success with the output location and a run summary, or failure
// naming the failing phase. The aggregate (possibly partial on failure) is
// returned alongside for callers that persist it.
func (o *Orchestrator) Execute(ctx context.Context, task Task) (*core.AggregatedResult, error) {
	if task.Scene == nil || task.Scene.ID == "" || task.Scene.ID == core.SentinelSceneID {
		err := fmt.Errorf("sceneloop: task scene id missing or sentinel")
		o.reportFailure(ctx, task.TaskToken, workflow.ErrorKindScene, err)
		return nil, err
	}

	params := task.Params
	if params == nil {
		var err error
		params, err = o.InterpretObjective(ctx, task.Objective, "")
		if err != nil {
			o.reportFailure(ctx, task.TaskToken, workflow.ErrorKindInterpretation, err)
			return nil, err
		}
	}

	agg, err := o.ProcessScene(ctx, task.Scene, params)
	if err != nil {
		o.reportFailure(ctx, task.TaskToken, workflow.ErrorKindCycle, err)
		return agg, err
	}

	summary := fmt.Sprintf("%d cycles, %s, %d insights, %d recommendations",
		agg.CyclesRun, agg.TerminationReason, len(agg.AllInsights), len(agg.AllRecommendations))
	if reportErr := o.reporter.ReportSuccess(ctx, task.TaskToken, workflow.SuccessPayload{
		OutputLocation: task.OutputLocation,
		Summary:        summary,
	}); reportErr != nil {
		o.logger.Error("success report failed", "task_token", task.TaskToken, "error", reportErr)
	}

	return agg, nil
}

func (o *Orchestrator) reportFailure(ctx context.Context, taskToken, kind string, cause error) {
	if err := o.reporter.ReportFailure(ctx, taskToken, workflow.FailurePayload{
		ErrorKind: kind,
		Cause:     cause.Error(),
	}); err != nil {
		o.logger.Error("failure report failed", "task_token", taskToken, "error", err)
	}
}
