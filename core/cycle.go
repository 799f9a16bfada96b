package core

import "time"

// Termination reasons reported by the cycle controller.
const (
	// TerminationConvergence indicates two consecutive cycles produced
	// sufficiently similar insights and recommendations.
	TerminationConvergence = "convergence_achieved"
	// TerminationNoNewInsights indicates no agent produced an insight absent
	// from the previous cycle.
	TerminationNoNewInsights = "early_termination_no_new_insights"
	// TerminationMaxCycles indicates the configured cycle budget ran out.
	TerminationMaxCycles = "max_cycles_reached"
)

// CycleResult captures one graph run plus its cycle metadata. Cycle history
// is retained as a bounded sliding window by the controller.
type CycleResult struct {
	Cycle          int                          `json:"cycle"`
	Timestamp      time.Time                    `json:"timestamp"`
	AgentResults   map[AgentType]*AgentResponse `json:"agent_results"`
	ExecutionOrder []AgentType                  `json:"execution_order"`
	Duration       time.Duration                `json:"duration"`
	NodesCompleted int                          `json:"nodes_completed"`
	ContextSize    int                          `json:"context_size"` // cross-scene hits injected into this cycle
}

// CycleSummary is one row of the per-cycle progression view produced for
// auditing.
type CycleSummary struct {
	Cycle        int           `json:"cycle"`
	AgentCount   int           `json:"agent_count"`
	FirstFinding string        `json:"first_finding,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// AggregatedResult is the final output of a cycle controller run. The final
// cycle's agent results are authoritative; AllInsights/AllRecommendations
// union every cycle's output as a secondary observability view.
type AggregatedResult struct {
	SceneID            string                       `json:"scene_id"`
	TerminationReason  string                       `json:"termination_reason"`
	CyclesRun          int                          `json:"cycles_run"`
	ConvergenceScore   float64                      `json:"convergence_score,omitempty"`
	FinalResults       map[AgentType]*AgentResponse `json:"final_results"`
	AllInsights        []string                     `json:"all_insights"`
	AllRecommendations []string                     `json:"all_recommendations"`
	Progression        []CycleSummary               `json:"progression"`
}
