package core

// AnomalyContext is the vector-isolation verdict for a scene. It is produced
// once before the graph runs and injected into ExecutionState for every node
// to read.
//
// Score is a distance metric: 0 means identical to the closest reference
// scene and larger values mean more isolated. It is NOT a similarity score.
type AnomalyContext struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Score     float64 `json:"anomaly_score"`
	// ClosestSimilarity is 1 - closest distance when neighbors were found;
	// nil on cold start or detector failure.
	ClosestSimilarity *float64 `json:"closest_similarity,omitempty"`
	Reason            string   `json:"reason"`
}
