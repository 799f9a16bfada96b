package cycle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/drivemind-labs/sceneloop/core"
)

// Cross-scene enrichment defaults. Hits below the similarity cutoff are
// noise for pattern analysis and get discarded.
const (
	DefaultSimilarityCutoff = 0.7
	DefaultMaxSimilarScenes = 10
	DefaultCrossSceneIndex  = "scene-reference"
)

// enrichCrossScene queries the vector index for scenes similar to the one
// under analysis and applies the objective's scenario filters as an
// application-side post-filter. Filters are never pushed into the index
// query, so indexes that predate the metadata fields remain usable. A query
// failure yields an empty context rather than failing the cycle.
func (c *Controller) enrichCrossScene(ctx context.Context, scene *core.Scene, params *core.WorkflowParams, cycleNum int) *core.CrossSceneContext {
	vector := scene.PrimaryEmbedding()
	if len(vector) == 0 && c.embedder != nil {
		// Scenes ingested before embedding extraction carry no vectors;
		// embed the objective text as a stand-in query.
		v, err := c.embedder.Embed(ctx, params.Objective)
		if err != nil {
			c.logger.Warn("objective embedding failed, skipping cross-scene enrichment", "scene_id", scene.ID, "error", err)
			return &core.CrossSceneContext{Cycle: cycleNum}
		}
		vector = v
	}
	if len(vector) == 0 {
		return &core.CrossSceneContext{Cycle: cycleNum}
	}

	// Query beyond the result budget so the post-filter has room to discard.
	matches, err := c.index.Query(ctx, core.VectorQuery{
		Index:        c.opts.CrossSceneIndex,
		Vector:       vector,
		TopK:         c.opts.MaxSimilarScenes * 3,
		WantDistance: true,
		WantMetadata: true,
	})
	if err != nil {
		c.logger.Warn("cross-scene query failed, continuing without enrichment", "scene_id", scene.ID, "error", err)
		return &core.CrossSceneContext{Cycle: cycleNum}
	}

	var hits []core.SimilarScene
	for _, m := range matches {
		if m.ID == scene.ID {
			continue
		}
		similarity := 1 - m.Distance
		if similarity < c.opts.SimilarityCutoff {
			continue
		}
		if !matchesFilters(m.Metadata, params.Filters) {
			continue
		}
		hits = append(hits, core.SimilarScene{
			SceneID:    m.ID,
			Similarity: similarity,
			Metadata:   m.Metadata,
		})
		if len(hits) >= c.opts.MaxSimilarScenes {
			break
		}
	}

	cc := &core.CrossSceneContext{Cycle: cycleNum, SimilarScenes: hits}
	if len(hits) > 0 {
		cc.PatternInsights = []string{fmt.Sprintf(
			"%d reference scenes above %.2f similarity, closest %s at %.2f",
			len(hits), c.opts.SimilarityCutoff, hits[0].SceneID, hits[0].Similarity,
		)}
	}
	return cc
}

// matchesFilters applies the scenario post-filter to one hit's metadata.
// A metadata field absent from the hit passes, so older index entries are
// never filtered out by fields they predate.
func matchesFilters(metadata map[string]string, f core.ScenarioFilters) bool {
	if !matchAnyGlob(metadata["environment_type"], f.Environments) {
		return false
	}
	if !matchAnyGlob(metadata["weather_condition"], f.Weather) {
		return false
	}
	if !matchAnyGlob(metadata["maneuver_type"], f.Maneuvers) {
		return false
	}
	if f.RiskThreshold > 0 {
		if raw, ok := metadata["risk_score"]; ok {
			risk, err := strconv.ParseFloat(raw, 64)
			if err == nil && risk < f.RiskThreshold {
				return false
			}
		}
	}
	return true
}

// matchAnyGlob reports whether the value matches any of the glob patterns.
// An empty pattern list or an absent value always matches.
func matchAnyGlob(value string, patterns []string) bool {
	if len(patterns) == 0 || value == "" {
		return true
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, value); err == nil && ok {
			return true
		}
	}
	return false
}
