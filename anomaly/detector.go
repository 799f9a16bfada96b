// Package anomaly scores how isolated a scene's embedding is from a fixed
// reference population using a k-nearest-neighbor distance query.
//
// The detector only enriches downstream context. It therefore fails open: a
// query error yields a non-anomalous verdict carrying the error text instead
// of propagating the error and blocking the pipeline.
package anomaly

import (
	"context"
	"fmt"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/logging"
)

const (
	// DefaultThreshold is the similarity cutoff below which a scene is
	// flagged as anomalous.
	DefaultThreshold = 0.75

	// DefaultTopK is the number of nearest neighbors fetched per query.
	DefaultTopK = 5
)

// Options configures a Detector.
type Options struct {
	// IndexName is the named reference index queried for neighbors.
	IndexName string

	// TopK is the number of nearest neighbors requested.
	TopK int

	// Logger records verdicts and fail-open errors. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Detector scores scene isolation against a reference vector index.
type Detector struct {
	index core.VectorIndex
	opts  Options
}

// NewDetector creates a detector backed by the given vector index.
func NewDetector(index core.VectorIndex, optFns ...func(o *Options)) *Detector {
	opts := Options{
		IndexName: "scene-reference",
		TopK:      DefaultTopK,
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	return &Detector{index: index, opts: opts}
}

// Detect queries the reference index for the nearest neighbors of vector and
// derives an anomaly verdict from the closest distance.
//
// An empty index is a cold start: nothing to compare against makes the scene
// trivially novel, so the verdict is anomalous with score 1.0. The similarity
// is derived as 1 - distance, which assumes a normalized cosine-style
// distance in [0,1]; out-of-range distances are not re-normalized.
func (d *Detector) Detect(ctx context.Context, vector []float32, threshold float64) core.AnomalyContext {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	matches, err := d.index.Query(ctx, core.VectorQuery{
		Index:        d.opts.IndexName,
		Vector:       vector,
		TopK:         d.opts.TopK,
		WantDistance: true,
	})
	if err != nil {
		// Fail open. The detector must never block the pipeline.
		d.opts.Logger.Warn("anomaly query failed, failing open", "index", d.opts.IndexName, "error", err)

		return core.AnomalyContext{
			IsAnomaly: false,
			Score:     0.0,
			Reason:    fmt.Sprintf("detector error: %s", err),
		}
	}

	if len(matches) == 0 {
		d.opts.Logger.Info("reference index empty, cold start verdict", "index", d.opts.IndexName)

		return core.AnomalyContext{
			IsAnomaly: true,
			Score:     1.0,
			Reason:    "cold start: reference index has no scenes to compare against",
		}
	}

	closest := matches[0].Distance
	for _, m := range matches[1:] {
		if m.Distance < closest {
			closest = m.Distance
		}
	}

	similarity := 1 - closest
	isAnomaly := similarity < threshold

	reason := fmt.Sprintf("closest of %d neighbors at distance %.4f (similarity %.4f, threshold %.2f)",
		len(matches), closest, similarity, threshold)

	d.opts.Logger.Debug("anomaly verdict", "is_anomaly", isAnomaly, "score", closest, "neighbors", len(matches))

	return core.AnomalyContext{
		IsAnomaly:         isAnomaly,
		Score:             closest,
		ClosestSimilarity: &similarity,
		Reason:            reason,
	}
}
