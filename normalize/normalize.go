package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/logging"
)

// Variant identifies the detected shape of raw agent output.
type Variant int

const (
	// VariantStructuredDirect is a plain JSON object.
	VariantStructuredDirect Variant = iota
	// VariantStringEncodedJSON is a JSON object (or summary field) encoded
	// inside a string: double-quoted JSON, a single-quoted literal, or
	// nested escaped JSON.
	VariantStringEncodedJSON
	// VariantMarkdownFencedJSON is a JSON object wrapped in a ``` fence.
	VariantMarkdownFencedJSON
	// VariantFreeText is prose with optional bullet lines.
	VariantFreeText
)

// String returns a label for logging.
func (v Variant) String() string {
	switch v {
	case VariantStructuredDirect:
		return "structured_direct"
	case VariantStringEncodedJSON:
		return "string_encoded_json"
	case VariantMarkdownFencedJSON:
		return "markdown_fenced_json"
	default:
		return "free_text"
	}
}

// DetectVariant classifies a raw output string by its distinguishing
// prefix/suffix patterns. Detection is purely syntactic; the selected parser
// reports failure through its return value, never through a panic or an
// error used as control flow.
func DetectVariant(s string) Variant {
	t := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(t, "```"):
		return VariantMarkdownFencedJSON
	case strings.HasPrefix(t, `"{`) && strings.HasSuffix(t, `}"`):
		return VariantStringEncodedJSON
	case isSingleQuotedObject(t):
		return VariantStringEncodedJSON
	case strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}"):
		return VariantStructuredDirect
	default:
		return VariantFreeText
	}
}

// isSingleQuotedObject reports whether t opens as a single-quoted object
// literal ({'key': ...), allowing whitespace after the brace. The first key's
// quoting decides the variant, so double-quoted JSON whose string values
// contain single quotes is never misrouted into quote normalization.
func isSingleQuotedObject(t string) bool {
	if !strings.HasPrefix(t, "{") {
		return false
	}
	rest := strings.TrimLeft(t[1:], " \t\r\n")
	return strings.HasPrefix(rest, "'")
}

// structuredAnalysisFields are the field names whose presence marks an
// analysis object as already parsed (variant c in the fallback chain).
var structuredAnalysisFields = []string{"summary", "key_findings", "metrics", "confidence"}

// Options configures a Normalizer.
type Options struct {
	// Logger records fallback decisions. Defaults to NoOpLogger.
	Logger logging.Logger
	// Sanitizer redacts fabricated-looking content. Defaults to NewSanitizer().
	Sanitizer *Sanitizer
}

// Normalizer parses heterogeneous agent output into core.AgentResponse.
type Normalizer struct {
	opts Options
}

// New constructs a Normalizer.
func New(optFns ...func(o *Options)) *Normalizer {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = NewSanitizer()
	}
	return &Normalizer{opts: opts}
}

// Normalize parses raw agent output into the canonical response. agentType
// and sceneID identify the node that produced the output; a scene id present
// in the output takes precedence over the caller-provided one. The returned
// error is non-nil only for schema violations (empty or sentinel scene id);
// parse failures degrade to a free-text response with a validation issue.
func (n *Normalizer) Normalize(agentType core.AgentType, sceneID string, raw []byte) (*core.AgentResponse, error) {
	text := strings.TrimSpace(string(raw))

	resp := &core.AgentResponse{
		AgentType:       agentType,
		SceneID:         sceneID,
		Status:          core.StatusSuccess,
		Analysis:        core.Analysis{KeyFindings: []string{}},
		Insights:        []string{},
		Recommendations: []string{},
	}

	var issues []string

	if text == "" {
		issues = append(issues, "agent returned empty output")
	} else {
		variant := DetectVariant(text)
		doc, ok := parseVariant(variant, text)
		if !ok && variant != VariantFreeText {
			n.opts.Logger.Warn("structured parse failed, falling back to free text",
				"agent_type", agentType, "variant", variant.String())
			issues = append(issues, fmt.Sprintf("unparseable %s output, extracted as free text", variant))
			variant = VariantFreeText
		}
		if variant == VariantFreeText {
			n.extractFreeText(text, resp)
		} else {
			n.applyDocument(doc, resp, &issues)
		}
	}

	// Sanitation applies to every leaf string of the normalized tree.
	sanIssues, mentionsScene := n.opts.Sanitizer.SanitizeResponse(resp)
	issues = append(issues, sanIssues...)

	resp.Validation = core.ValidationReport{
		IssueCount:    len(issues),
		Issues:        issues,
		MentionsScene: mentionsScene,
		Timestamp:     time.Now().UTC(),
	}

	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return resp, nil
}

// parseVariant runs the parser for the detected variant. The boolean result
// reports parse success; failure is an expected outcome, not an error.
func parseVariant(v Variant, text string) (map[string]any, bool) {
	switch v {
	case VariantStructuredDirect:
		return parseJSONObject(text)
	case VariantMarkdownFencedJSON:
		return parseJSONObject(stripFence(text))
	case VariantStringEncodedJSON:
		return parseEncodedJSON(text)
	default:
		return nil, false
	}
}

// parseJSONObject strictly parses a JSON object.
func parseJSONObject(text string) (map[string]any, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// parseEncodedJSON handles string-encoded objects: a JSON-encoded string
// containing JSON (possibly nested twice) or a single-quoted literal. A
// quote-normalization pass runs before the strict parse.
func parseEncodedJSON(text string) (map[string]any, bool) {
	t := strings.TrimSpace(text)

	// JSON string wrapping an object: unwrap up to two escape layers.
	if strings.HasPrefix(t, `"`) {
		inner := t
		for range 2 {
			var s string
			if err := json.Unmarshal([]byte(inner), &s); err != nil {
				break
			}
			if doc, ok := parseJSONObject(s); ok {
				return doc, true
			}
			inner = s
		}
		return nil, false
	}

	// Single-quoted literal.
	if doc, ok := parseJSONObject(normalizeQuotes(t)); ok {
		return doc, true
	}
	return nil, false
}

// stripFence removes a leading ``` or ```json fence and the trailing fence.
func stripFence(text string) string {
	t := strings.TrimSpace(text)
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// normalizeQuotes converts a single-quoted object literal to double-quoted
// JSON. Existing double quotes inside values are escaped first so the swap
// cannot produce ambiguous delimiters.
func normalizeQuotes(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '\'':
			b.WriteRune('"')
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// applyDocument maps a parsed document onto the response, handling the
// summary-encodes-JSON and already-structured analysis cases.
func (n *Normalizer) applyDocument(doc map[string]any, resp *core.AgentResponse, issues *[]string) {
	if id, ok := doc["scene_id"].(string); ok && id != "" {
		resp.SceneID = id
	}

	analysis, _ := doc["analysis"].(map[string]any)
	if analysis != nil {
		// The summary may itself encode the real analysis object.
		if summary, ok := analysis["summary"].(string); ok {
			if inner := decodeEmbeddedSummary(summary); inner != nil {
				if innerAnalysis, ok := inner["analysis"].(map[string]any); ok {
					analysis = innerAnalysis
				} else if hasStructuredField(inner) {
					analysis = inner
				}
				// Insights/recommendations may ride along in the embedded object.
				mergeStringList(inner, "insights", &resp.Insights)
				mergeStringList(inner, "recommendations", &resp.Recommendations)
			}
		}
		n.applyAnalysis(analysis, resp)
	}

	mergeStringList(doc, "insights", &resp.Insights)
	mergeStringList(doc, "recommendations", &resp.Recommendations)

	if resp.Analysis.Summary == "" && len(resp.Analysis.KeyFindings) == 0 && analysis == nil {
		*issues = append(*issues, "structured output carried no analysis object")
	}
}

// decodeEmbeddedSummary returns the object encoded in a summary string, or
// nil when the summary is ordinary text.
func decodeEmbeddedSummary(summary string) map[string]any {
	switch DetectVariant(summary) {
	case VariantFreeText:
		return nil
	default:
		doc, ok := parseVariant(DetectVariant(summary), summary)
		if !ok {
			return nil
		}
		return doc
	}
}

// hasStructuredField reports whether the object carries one of the known
// analysis field names.
func hasStructuredField(doc map[string]any) bool {
	for _, f := range structuredAnalysisFields {
		if _, ok := doc[f]; ok {
			return true
		}
	}
	return false
}

// applyAnalysis copies a (possibly loose) analysis object into the response.
func (n *Normalizer) applyAnalysis(analysis map[string]any, resp *core.AgentResponse) {
	if analysis == nil {
		return
	}
	if s, ok := analysis["summary"].(string); ok {
		resp.Analysis.Summary = s
	}
	var findings []string
	mergeStringList(analysis, "key_findings", &findings)
	if len(findings) > 0 {
		resp.Analysis.KeyFindings = findings
	}
	if metrics, ok := analysis["metrics"].(map[string]any); ok {
		resp.Analysis.Metrics = map[string]float64{}
		for k, v := range metrics {
			if f, ok := v.(float64); ok {
				resp.Analysis.Metrics[k] = f
			}
		}
	}
	if c, ok := analysis["confidence"].(float64); ok {
		resp.Analysis.Confidence = &c
	}
}

// mergeStringList appends the string entries of doc[key] to dst, skipping
// duplicates already present.
func mergeStringList(doc map[string]any, key string, dst *[]string) {
	items, ok := doc[key].([]any)
	if !ok {
		return
	}
	seen := map[string]bool{}
	for _, s := range *dst {
		seen[s] = true
	}
	for _, item := range items {
		if s, ok := item.(string); ok && !seen[s] {
			*dst = append(*dst, s)
			seen[s] = true
		}
	}
}

// bulletPrefixes mark list-style lines in free-text output.
var bulletPrefixes = []string{"- ", "* ", "• ", "–"}

// extractFreeText heuristically extracts findings and recommendations from
// prose. Bullet lines and lines carrying recommendation language are kept;
// the first non-empty line becomes the summary.
func (n *Normalizer) extractFreeText(text string, resp *core.AgentResponse) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if resp.Analysis.Summary == "" {
			resp.Analysis.Summary = line
		}

		bullet := false
		stripped := line
		for _, p := range bulletPrefixes {
			if strings.HasPrefix(line, p) {
				bullet = true
				stripped = strings.TrimSpace(strings.TrimPrefix(line, p))
				break
			}
		}
		if !bullet {
			if len(line) > 2 && line[0] >= '1' && line[0] <= '9' && (line[1] == '.' || line[1] == ')') {
				bullet = true
				stripped = strings.TrimSpace(line[2:])
			}
		}

		lower := strings.ToLower(stripped)
		isRec := strings.Contains(lower, "recommend") || strings.Contains(lower, "should")
		switch {
		case isRec:
			resp.Recommendations = append(resp.Recommendations, stripped)
		case bullet:
			resp.Analysis.KeyFindings = append(resp.Analysis.KeyFindings, stripped)
			resp.Insights = append(resp.Insights, stripped)
		}
	}
}
