package core

// ScenarioFilters narrows cross-scene similarity results to scenes matching
// the business objective. Environment, weather and maneuver entries may be
// glob patterns (e.g. "lane_change*"); they are applied as a post-filter in
// application code, never pushed into the index query, so indexes that
// predate these metadata fields remain usable.
type ScenarioFilters struct {
	Environments  []string `json:"environment_types,omitempty"`
	Weather       []string `json:"weather_conditions,omitempty"`
	RiskThreshold float64  `json:"risk_threshold,omitempty"`
	Maneuvers     []string `json:"maneuver_types,omitempty"`
}

// WorkflowParams is the structured contract returned by the objective
// interpreter. It is created once per business-objective request and
// read-only afterward.
type WorkflowParams struct {
	Objective            string          `json:"objective"`
	Filters              ScenarioFilters `json:"scenario_filters"`
	RequiredAnalyses     []string        `json:"required_analyses"`
	TargetMetrics        []string        `json:"target_metrics"`
	Priority             string          `json:"priority,omitempty"`
	MaxCycles            int             `json:"max_cycles"`
	ConvergenceThreshold float64         `json:"convergence_threshold"`
}

// Default workflow parameter values applied when the interpreter output
// omits optional fields.
const (
	DefaultMaxCycles            = 3
	DefaultConvergenceThreshold = 0.85
)

// ApplyDefaults fills unset optional fields with their defaults.
func (p *WorkflowParams) ApplyDefaults() {
	if p.MaxCycles <= 0 {
		p.MaxCycles = DefaultMaxCycles
	}
	if p.ConvergenceThreshold <= 0 {
		p.ConvergenceThreshold = DefaultConvergenceThreshold
	}
}
