package cycle

import (
	"strings"
	"unicode"

	"github.com/drivemind-labs/sceneloop/core"
)

// Default weights for combining per-agent insight and recommendation
// similarity into one convergence score.
const (
	DefaultInsightWeight        = 0.6
	DefaultRecommendationWeight = 0.4
)

// convergenceScore compares two consecutive cycles. For each agent type
// present in both, it computes word-set overlap separately over insights and
// recommendations, combines them with the configured weights and averages
// across agents. Agents present in only one cycle are ignored; if no agent
// is shared the score is 0.
func convergenceScore(prev, curr map[core.AgentType]*core.AgentResponse, insightWeight, recWeight float64) float64 {
	var total float64
	var agents int

	for agentType, currResp := range curr {
		prevResp, ok := prev[agentType]
		if !ok {
			continue
		}
		insightSim := wordSetSimilarity(prevResp.Insights, currResp.Insights)
		recSim := wordSetSimilarity(prevResp.Recommendations, currResp.Recommendations)
		total += insightWeight*insightSim + recWeight*recSim
		agents++
	}

	if agents == 0 {
		return 0
	}
	return total / float64(agents)
}

// wordSetSimilarity is the Jaccard overlap of the word sets drawn from two
// string lists. Two empty lists are identical (similarity 1); one empty list
// against a non-empty one shares nothing (similarity 0).
func wordSetSimilarity(a, b []string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)

	if len(wa) == 0 && len(wb) == 0 {
		return 1.0
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			intersection++
		}
	}
	union := len(wa) + len(wb) - intersection

	return float64(intersection) / float64(union)
}

// wordSet lowercases and splits every string on non-letter, non-digit runs.
func wordSet(lines []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, line := range lines {
		words := strings.FieldsFunc(strings.ToLower(line), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			set[w] = struct{}{}
		}
	}
	return set
}

// hasNewInsights reports whether any agent produced an insight string absent
// from the previous cycle's insight set.
func hasNewInsights(prev, curr map[core.AgentType]*core.AgentResponse) bool {
	seen := map[string]struct{}{}
	for _, resp := range prev {
		for _, in := range resp.Insights {
			seen[in] = struct{}{}
		}
	}

	for _, resp := range curr {
		for _, in := range resp.Insights {
			if _, ok := seen[in]; !ok {
				return true
			}
		}
	}
	return false
}
