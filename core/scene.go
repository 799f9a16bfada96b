package core

// Scene is the immutable per-scene input to one orchestrator run. It carries
// the per-modality embedding vectors produced by the upstream perception
// stage plus scalar behavioral metrics extracted from the same stage.
//
// A Scene must not be mutated once handed to the cycle controller; all
// per-run mutable state lives in ExecutionState.
type Scene struct {
	ID         string               `json:"scene_id"`
	Embeddings map[string][]float32 `json:"embeddings"` // modality -> vector
	Metrics    map[string]float64   `json:"metrics"`
	Metadata   map[string]string    `json:"metadata,omitempty"` // environment, weather, maneuver, ...
}

// PrimaryEmbedding returns the vector used for anomaly detection and
// cross-scene similarity queries. The "fusion" modality is preferred when
// present; otherwise the first modality in deterministic key order wins.
func (s *Scene) PrimaryEmbedding() []float32 {
	if v, ok := s.Embeddings["fusion"]; ok {
		return v
	}
	var best string
	for k := range s.Embeddings {
		if best == "" || k < best {
			best = k
		}
	}
	if best == "" {
		return nil
	}
	return s.Embeddings[best]
}
