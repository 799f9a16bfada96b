package core

// SimilarScene is one cross-scene similarity hit used to enrich later cycles.
type SimilarScene struct {
	SceneID    string            `json:"scene_id"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// CrossSceneContext carries the similarity hits and textual pattern insights
// gathered after one cycle for injection into the next. The cycle controller
// keeps only the current cycle's context hot; older cycles are folded into
// the rolling summary.
type CrossSceneContext struct {
	Cycle           int            `json:"cycle"`
	SimilarScenes   []SimilarScene `json:"similar_scenes"`
	PatternInsights []string       `json:"pattern_insights,omitempty"`
}

// Size returns the number of similarity hits, recorded as cycle metadata.
func (c *CrossSceneContext) Size() int {
	if c == nil {
		return 0
	}
	return len(c.SimilarScenes)
}

// EnhancedIntelligence is the cross-cycle enrichment record on
// ExecutionState: free-form cross-reference text plus the similarity hits
// carried over from the previous cycle.
type EnhancedIntelligence struct {
	CrossReference string         `json:"cross_reference,omitempty"`
	SimilarScenes  []SimilarScene `json:"similar_scenes,omitempty"`
}
