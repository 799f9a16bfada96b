package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivemind-labs/sceneloop/core"
)

func TestDetectVariant(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Variant
	}{
		{"plain object", `{"analysis": {"summary": "ok"}}`, VariantStructuredDirect},
		{"markdown fence", "```json\n{\"a\": 1}\n```", VariantMarkdownFencedJSON},
		{"double quoted", `"{\"a\": 1}"`, VariantStringEncodedJSON},
		{"single quoted", `{'analysis': {'summary': 'ok'}}`, VariantStringEncodedJSON},
		{"single quoted after whitespace", `{ 'analysis': {'summary': 'ok'}}`, VariantStringEncodedJSON},
		{"double quoted json with quoted colon in value", `{"summary": "driver yelled 'stop': hard braking"}`, VariantStructuredDirect},
		{"prose", "The scene shows heavy rain.", VariantFreeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectVariant(tt.in))
		})
	}
}

func TestNormalize_StructuredDirect(t *testing.T) {
	n := New()
	raw := `{
		"scene_id": "scene-0042",
		"analysis": {
			"summary": "Urban intersection in heavy rain.",
			"key_findings": ["reduced visibility", "wet road surface"],
			"metrics": {"risk_score": 0.62},
			"confidence": 0.9
		},
		"insights": ["pedestrian density is high"],
		"recommendations": ["reduce speed threshold"]
	}`

	resp, err := n.Normalize(core.AgentTypeSceneUnderstanding, "scene-0042", []byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "scene-0042", resp.SceneID)
	assert.Equal(t, core.StatusSuccess, resp.Status)
	assert.Equal(t, "Urban intersection in heavy rain.", resp.Analysis.Summary)
	assert.Equal(t, []string{"reduced visibility", "wet road surface"}, resp.Analysis.KeyFindings)
	assert.Equal(t, 0.62, resp.Analysis.Metrics["risk_score"])
	require.NotNil(t, resp.Analysis.Confidence)
	assert.Equal(t, 0.9, *resp.Analysis.Confidence)
	assert.Equal(t, []string{"pedestrian density is high"}, resp.Insights)
	assert.Equal(t, []string{"reduce speed threshold"}, resp.Recommendations)
	assert.Equal(t, 0, resp.Validation.IssueCount)
}

// Valid JSON whose string values quote single-quoted speech must parse
// structurally, not be routed through quote normalization.
func TestNormalize_SingleQuotesInsideValues(t *testing.T) {
	n := New()
	raw := `{"scene_id":"scene-0042","analysis":{"summary":"driver yelled 'stop': hard braking","key_findings":["hard braking event"]}}`

	resp, err := n.Normalize(core.AgentTypeSceneUnderstanding, "scene-0042", []byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "driver yelled 'stop': hard braking", resp.Analysis.Summary)
	assert.Equal(t, []string{"hard braking event"}, resp.Analysis.KeyFindings)
	assert.Equal(t, 0, resp.Validation.IssueCount)
}

func TestNormalize_EmbeddedSummaryVariants(t *testing.T) {
	inner := `{"summary": "Night highway scene.", "key_findings": ["glare from oncoming traffic"]}`

	tests := []struct {
		name    string
		summary string
	}{
		{"double quoted json", `"{\"summary\": \"Night highway scene.\", \"key_findings\": [\"glare from oncoming traffic\"]}"`},
		{"markdown fenced", "```json\n" + inner + "\n```"},
		{"single quoted literal", `{'summary': 'Night highway scene.', 'key_findings': ['glare from oncoming traffic']}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outer := map[string]any{
				"scene_id": "scene-0042",
				"analysis": map[string]any{"summary": tt.summary},
			}
			raw, err := json.Marshal(outer)
			require.NoError(t, err)

			n := New()
			resp, err := n.Normalize(core.AgentTypeSceneUnderstanding, "scene-0042", raw)
			require.NoError(t, err)

			assert.Equal(t, "Night highway scene.", resp.Analysis.Summary)
			assert.Equal(t, []string{"glare from oncoming traffic"}, resp.Analysis.KeyFindings)
		})
	}
}

// Normalization of a canonical response is idempotent: parsing the
// normalizer's own JSON output reproduces the same lists.
func TestNormalize_Idempotent(t *testing.T) {
	n := New()
	first, err := n.Normalize(core.AgentTypeAnomalyDetection, "scene-0042", []byte(`{
		"scene_id": "scene-0042",
		"analysis": {"summary": "Isolated maneuver pattern.", "key_findings": ["rare lane change geometry"]},
		"insights": ["maneuver unseen in reference set"],
		"recommendations": ["flag for review"]
	}`))
	require.NoError(t, err)

	canonical, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := n.Normalize(core.AgentTypeAnomalyDetection, "scene-0042", canonical)
	require.NoError(t, err)

	assert.Equal(t, first.Analysis.KeyFindings, second.Analysis.KeyFindings)
	assert.Equal(t, first.Insights, second.Insights)
	assert.Equal(t, first.Recommendations, second.Recommendations)
}

func TestNormalize_FreeTextExtraction(t *testing.T) {
	n := New()
	raw := `The scene shows a rural road at dusk.
- low ambient light
- unlit cyclist on shoulder
* narrow lane width
1. oncoming truck with high beams
You should increase following distance.
We recommend enabling the night vision profile.`

	resp, err := n.Normalize(core.AgentTypeCoordinator, "scene-0042", []byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "The scene shows a rural road at dusk.", resp.Analysis.Summary)
	assert.Equal(t, []string{
		"low ambient light",
		"unlit cyclist on shoulder",
		"narrow lane width",
		"oncoming truck with high beams",
	}, resp.Analysis.KeyFindings)
	assert.Equal(t, resp.Analysis.KeyFindings, resp.Insights)
	assert.Equal(t, []string{
		"You should increase following distance.",
		"We recommend enabling the night vision profile.",
	}, resp.Recommendations)
}

func TestNormalize_EmptyOutputRecoverable(t *testing.T) {
	n := New()
	resp, err := n.Normalize(core.AgentTypeSimilaritySearch, "scene-0042", nil)
	require.NoError(t, err)

	assert.Equal(t, core.StatusSuccess, resp.Status)
	assert.Empty(t, resp.Analysis.KeyFindings)
	require.Equal(t, 1, resp.Validation.IssueCount)
	assert.Contains(t, resp.Validation.Issues[0], "empty output")
}

func TestNormalize_GarbledJSONFallsBackToFreeText(t *testing.T) {
	n := New()
	resp, err := n.Normalize(core.AgentTypeCoordinator, "scene-0042", []byte(`{"analysis": {"summary": "truncated`))
	require.NoError(t, err)

	assert.Equal(t, core.StatusSuccess, resp.Status)
	assert.GreaterOrEqual(t, resp.Validation.IssueCount, 1)
}

func TestNormalize_SentinelSceneIDFails(t *testing.T) {
	n := New()

	_, err := n.Normalize(core.AgentTypeCoordinator, core.SentinelSceneID, []byte(`plain text`))
	assert.Error(t, err)

	_, err = n.Normalize(core.AgentTypeCoordinator, "", []byte(`plain text`))
	assert.Error(t, err)

	// A sentinel id inside the output overrides a valid caller id and fails.
	_, err = n.Normalize(core.AgentTypeCoordinator, "scene-0042", []byte(`{"scene_id": "unknown"}`))
	assert.Error(t, err)
}

func TestNormalize_MentionsScene(t *testing.T) {
	n := New()
	resp, err := n.Normalize(core.AgentTypeCoordinator, "scene-0042", []byte(`{
		"scene_id": "scene-0042",
		"analysis": {"summary": "Findings for scene-0042 follow."}
	}`))
	require.NoError(t, err)
	assert.True(t, resp.Validation.MentionsScene)

	resp, err = n.Normalize(core.AgentTypeCoordinator, "scene-0042", []byte(`{
		"scene_id": "scene-0042",
		"analysis": {"summary": "Generic findings."}
	}`))
	require.NoError(t, err)
	assert.False(t, resp.Validation.MentionsScene)
}
