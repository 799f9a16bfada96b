package core

import "context"

// VectorQuery describes one query-by-vector similarity search.
type VectorQuery struct {
	Index        string    // named index to search
	Vector       []float32 // query embedding
	TopK         int       // maximum neighbors to return
	WantDistance bool
	WantMetadata bool
}

// VectorMatch is one ranked neighbor returned by a vector index. Distance is
// in [0, ~2] with 0 meaning identical; callers convert to similarity as
// 1 - distance only when the metric is known to be normalized cosine distance.
type VectorMatch struct {
	ID       string
	Distance float64
	Metadata map[string]string
}

// VectorIndex is the similarity search service consumed by the anomaly
// detector and the cross-scene enrichment. Implementations return matches
// ranked by ascending distance.
type VectorIndex interface {
	Query(ctx context.Context, q VectorQuery) ([]VectorMatch, error)
}
