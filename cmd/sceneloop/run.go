package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/drivemind-labs/sceneloop"
	"github.com/drivemind-labs/sceneloop/config"
	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/index/inmem"
	"github.com/drivemind-labs/sceneloop/invoke"
	"github.com/drivemind-labs/sceneloop/logging"
	"github.com/drivemind-labs/sceneloop/model"
	anthropicmodel "github.com/drivemind-labs/sceneloop/model/anthropic"
	openaimodel "github.com/drivemind-labs/sceneloop/model/openai"
	"github.com/drivemind-labs/sceneloop/store"
	redisstore "github.com/drivemind-labs/sceneloop/store/redis"
)

var (
	scenePath      string
	objectiveText  string
	paramsPath     string
	taskToken      string
	outputLocation string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze one scene end to end",
	Long: `Run the full orchestration for a single scene: interpret the objective
into workflow parameters (unless --params supplies them), compute the
anomaly verdict and iterate the agent graph until convergence, early
termination or the cycle budget. The aggregated result is written to
--output, or stdout when unset.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&scenePath, "scene", "", "path to the scene JSON file (required)")
	runCmd.Flags().StringVar(&objectiveText, "objective", "", "business objective to interpret")
	runCmd.Flags().StringVar(&paramsPath, "params", "", "path to workflow parameters JSON, skips interpretation")
	runCmd.Flags().StringVar(&taskToken, "task-token", "", "workflow engine task token")
	runCmd.Flags().StringVar(&outputLocation, "output", "", "path for the aggregated result JSON")
	_ = runCmd.MarkFlagRequired("scene")
}

// agentPrompts frame each graph node's role when agents run on a plain text
// generator instead of a managed invocation service.
var agentPrompts = map[core.AgentType]string{
	core.AgentTypeCoordinator: `You are the coordination agent of an automotive scene analysis pipeline.
Frame the task for the downstream specialists. Respond with a JSON object
containing "scene_id", "analysis" ({"summary", "key_findings"}), "insights"
and "recommendations".`,
	core.AgentTypeSceneUnderstanding: `You are the scene understanding agent. Interpret the scene's embeddings,
metrics and prior agent results semantically. Respond with the same JSON
object shape as your input results.`,
	core.AgentTypeAnomalyDetection: `You are the anomaly reasoning agent. Explain the anomaly context verdict in
the payload against the scene's metrics and prior results. Respond with the
standard JSON result object.`,
	core.AgentTypeSimilaritySearch: `You are the similarity analysis agent. Relate the scene to the similar
scenes listed in the enhanced intelligence context. Respond with the
standard JSON result object.`,
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.LogLevel()), cfg.LogFormat(), false)

	scene, err := loadScene(scenePath)
	if err != nil {
		return err
	}

	gen, embedder, err := buildModel(cfg)
	if err != nil {
		return err
	}

	resultStore, err := buildStore(cfg)
	if err != nil {
		return err
	}

	index, err := buildIndex(cfg)
	if err != nil {
		return err
	}

	invoker := invoke.NewModelInvoker(func(o *invoke.Options) { o.Logger = logger })
	for agentType, prompt := range agentPrompts {
		invoker.Register(string(agentType), gen, prompt)
	}

	orch, err := sceneloop.New(invoker, func(o *sceneloop.Options) {
		o.Generator = gen
		o.Embedder = embedder
		o.Index = index
		o.Store = resultStore
		o.IndexName = cfg.IndexName()
		if cfg.Analysis.AnomalyThreshold > 0 {
			o.AnomalyThreshold = cfg.Analysis.AnomalyThreshold
		}
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	params, err := loadParams(cfg)
	if err != nil {
		return err
	}

	agg, err := orch.Execute(cmd.Context(), sceneloop.Task{
		TaskToken:      taskToken,
		Scene:          scene,
		Objective:      objectiveText,
		Params:         params,
		OutputLocation: outputLocation,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return err
	}
	if outputLocation != "" {
		return os.WriteFile(outputLocation, out, 0o644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func loadScene(path string) (*core.Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var scene core.Scene
	if err := json.Unmarshal(b, &scene); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return &scene, nil
}

// loadParams returns explicit workflow parameters when --params is set, with
// config defaults applied; otherwise nil so the objective gets interpreted.
func loadParams(cfg *config.WorkerConfig) (*core.WorkflowParams, error) {
	if paramsPath == "" {
		if objectiveText == "" {
			return nil, fmt.Errorf("either --objective or --params is required")
		}
		return nil, nil
	}
	b, err := os.ReadFile(paramsPath)
	if err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}
	var params core.WorkflowParams
	if err := json.Unmarshal(b, &params); err != nil {
		return nil, fmt.Errorf("parse params %s: %w", paramsPath, err)
	}
	if params.MaxCycles == 0 && cfg.Analysis.MaxCycles > 0 {
		params.MaxCycles = cfg.Analysis.MaxCycles
	}
	if params.ConvergenceThreshold == 0 && cfg.Analysis.ConvergenceThreshold > 0 {
		params.ConvergenceThreshold = cfg.Analysis.ConvergenceThreshold
	}
	params.ApplyDefaults()
	return &params, nil
}

func buildModel(cfg *config.WorkerConfig) (model.Generator, model.Embedder, error) {
	switch cfg.Model.Provider {
	case "openai":
		client := openaisdk.NewClient(option.WithAPIKey(cfg.APIKey()))
		gen := openaimodel.NewGeneratorFromClient(&client, func(o *openaimodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			if cfg.Model.EmbeddingModel != "" {
				o.EmbeddingModel = cfg.Model.EmbeddingModel
			}
		})
		return gen, gen, nil
	case "anthropic", "":
		gen := anthropicmodel.NewGenerator(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.APIKey()
			if cfg.Model.Name != "" {
				o.Model = anthropic.Model(cfg.Model.Name)
			}
		})
		return gen, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func buildStore(cfg *config.WorkerConfig) (core.ResultStore, error) {
	switch cfg.Store.Backend {
	case "redis":
		ttl, err := cfg.StoreTTL()
		if err != nil {
			return nil, err
		}
		s, err := redisstore.NewFromURL(cfg.Store.RedisURL, func(o *redisstore.Options) {
			if ttl > 0 {
				o.TTL = ttl
			}
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory", "":
		return store.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildIndex loads the reference index snapshot when one is configured and
// present; a missing snapshot starts empty, which makes every scene a
// cold-start anomaly until references are ingested.
func buildIndex(cfg *config.WorkerConfig) (core.VectorIndex, error) {
	if cfg.Index.SnapshotPath != "" {
		if _, err := os.Stat(cfg.Index.SnapshotPath); err == nil {
			ix, err := inmem.Load(cfg.Index.SnapshotPath)
			if err != nil {
				return nil, err
			}
			return ix, nil
		}
	}
	return inmem.New(cfg.IndexName(), cfg.Index.Dimensions), nil
}
