package core

import (
	"fmt"
	"time"
)

// AgentType identifies one of the fixed analysis agents in the execution graph.
type AgentType string

const (
	// AgentTypeCoordinator is the entry node that frames the task for the
	// downstream specialists.
	AgentTypeCoordinator AgentType = "coordinator"
	// AgentTypeSceneUnderstanding performs semantic scene interpretation.
	AgentTypeSceneUnderstanding AgentType = "scene_understanding"
	// AgentTypeAnomalyDetection reasons over the vector-isolation context.
	AgentTypeAnomalyDetection AgentType = "anomaly_detection"
	// AgentTypeSimilaritySearch relates the scene to its nearest neighbors.
	AgentTypeSimilaritySearch AgentType = "similarity_search"
)

// GraphOrder returns the fixed sequential execution order of the agent graph.
// The slice is freshly allocated on each call and safe for caller mutation.
func GraphOrder() []AgentType {
	return []AgentType{
		AgentTypeCoordinator,
		AgentTypeSceneUnderstanding,
		AgentTypeAnomalyDetection,
		AgentTypeSimilaritySearch,
	}
}

// SentinelSceneID is the placeholder used upstream when a scene id could not
// be determined. It is never valid on a completed AgentResponse because
// cross-scene joins key on scene id.
const SentinelSceneID = "unknown"

// StatusSuccess is the status recorded on every normalized response,
// including responses recovered from unparseable agent output (the parse
// failure is surfaced as a validation issue instead).
const StatusSuccess = "success"

// Analysis is the structured analytical content of an agent response.
type Analysis struct {
	Summary     string             `json:"summary"`
	KeyFindings []string           `json:"key_findings"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	// Confidence is optional; when present it must be in [0, 1].
	Confidence *float64 `json:"confidence,omitempty"`
}

// ValidationReport records the sanitation and consistency checks applied to
// an agent response during normalization.
type ValidationReport struct {
	IssueCount    int       `json:"issue_count"`
	Issues        []string  `json:"issues,omitempty"`
	MentionsScene bool      `json:"mentions_scene"`
	Timestamp     time.Time `json:"timestamp"`
}

// ExecutionMeta captures timing and identity metadata for one agent invocation.
type ExecutionMeta struct {
	AgentRef  string        `json:"agent_ref,omitempty"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// AgentResponse is the canonical normalized output of one agent node. It is
// append-only once written into ExecutionState: later nodes read it but never
// mutate it.
type AgentResponse struct {
	AgentType       AgentType        `json:"agent_type"`
	SceneID         string           `json:"scene_id"`
	Status          string           `json:"status"`
	Analysis        Analysis         `json:"analysis"`
	Insights        []string         `json:"insights"`
	Recommendations []string         `json:"recommendations"`
	Validation      ValidationReport `json:"validation"`
	Execution       ExecutionMeta    `json:"execution,omitempty"`
}

// Validate enforces the schema constraints that make a response usable for
// downstream cross-scene joins. A sentinel or empty scene id is a hard
// failure, not a recoverable validation issue.
func (r *AgentResponse) Validate() error {
	if r.SceneID == "" {
		return fmt.Errorf("agent response for %s has empty scene id", r.AgentType)
	}
	if r.SceneID == SentinelSceneID {
		return fmt.Errorf("agent response for %s has sentinel scene id %q", r.AgentType, SentinelSceneID)
	}
	if r.Analysis.Confidence != nil && (*r.Analysis.Confidence < 0 || *r.Analysis.Confidence > 1) {
		return fmt.Errorf("agent response for %s has confidence %v outside [0,1]", r.AgentType, *r.Analysis.Confidence)
	}
	return nil
}

// EmptyResponse returns an empty-but-valid response substituted when an agent
// returns nothing usable. The reason is recorded as a validation issue so the
// substitution is never silent.
func EmptyResponse(agentType AgentType, sceneID, reason string) *AgentResponse {
	return &AgentResponse{
		AgentType:       agentType,
		SceneID:         sceneID,
		Status:          StatusSuccess,
		Analysis:        Analysis{Summary: "", KeyFindings: []string{}},
		Insights:        []string{},
		Recommendations: []string{},
		Validation: ValidationReport{
			IssueCount: 1,
			Issues:     []string{reason},
			Timestamp:  time.Now().UTC(),
		},
	}
}
