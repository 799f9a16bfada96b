package normalize

import (
	"regexp"
	"strings"

	"github.com/drivemind-labs/sceneloop/core"
)

// RedactionPlaceholder replaces fabricated-looking content in agent output.
const RedactionPlaceholder = "[REDACTED]"

// patternCategory is one class of suspicious content. Matches within a
// category are all redacted but produce a single validation issue.
type patternCategory struct {
	name  string
	issue string
	re    *regexp.Regexp
	// allow reports a match that must be kept (known external standards).
	allow func(token string) bool
}

var categories = []patternCategory{
	{
		name:  "corporate_tool_url",
		issue: "redacted corporate tool link(s) not derivable from scene data",
		re:    regexp.MustCompile(`(?i)https?://[^\s"'<>]*(?:jira|confluence|sharepoint|notion|quip|wiki)[^\s"'<>]*`),
	},
	{
		name:  "internal_domain_url",
		issue: "redacted internal domain link(s) not derivable from scene data",
		re:    regexp.MustCompile(`(?i)https?://[^\s"'<>]*(?:\.internal\.|\.corp\.|intranet)[^\s"'<>]*`),
	},
	{
		name:  "document_link",
		issue: "redacted document link(s) not derivable from scene data",
		re:    regexp.MustCompile(`(?i)https?://(?:docs|drive)\.google\.com[^\s"'<>]*`),
	},
	{
		name:  "ticket_id",
		issue: "redacted ticket-style identifier(s) not derivable from scene data",
		re:    regexp.MustCompile(`\b[A-Z]{2,10}-\d{1,6}\b`),
		allow: isExternalStandard,
	},
}

// standardPrefixes are external standards that look like ticket ids but are
// legitimate references in automotive analysis. "ECE-" covers both the bare
// and the UN-ECE compound form, whose leading "UN-" segment sits outside the
// regex match.
var standardPrefixes = []string{"ISO-", "FMVSS-", "ECE-"}

// isExternalStandard reports whether the token references a known standard.
func isExternalStandard(token string) bool {
	for _, p := range standardPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

// Sanitizer applies the anti-hallucination pass to normalized responses.
type Sanitizer struct {
	placeholder string
}

// NewSanitizer constructs a Sanitizer with the default placeholder.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{placeholder: RedactionPlaceholder}
}

// SanitizeResponse redacts suspicious content from every leaf string of the
// response, returning one issue per pattern category matched plus whether any
// leaf mentioned the response's scene id.
func (s *Sanitizer) SanitizeResponse(resp *core.AgentResponse) (issues []string, mentionsScene bool) {
	matched := map[string]string{} // category name -> issue text

	leaves := []*string{&resp.Analysis.Summary}
	for i := range resp.Analysis.KeyFindings {
		leaves = append(leaves, &resp.Analysis.KeyFindings[i])
	}
	for i := range resp.Insights {
		leaves = append(leaves, &resp.Insights[i])
	}
	for i := range resp.Recommendations {
		leaves = append(leaves, &resp.Recommendations[i])
	}

	for _, leaf := range leaves {
		if resp.SceneID != "" && strings.Contains(*leaf, resp.SceneID) {
			mentionsScene = true
		}
		for _, cat := range categories {
			out, hit := s.redact(cat, *leaf)
			if hit {
				matched[cat.name] = cat.issue
			}
			*leaf = out
		}
	}

	// One issue per category, in declaration order.
	for _, cat := range categories {
		if issue, ok := matched[cat.name]; ok {
			issues = append(issues, issue)
		}
	}
	return issues, mentionsScene
}

// redact replaces every disallowed match of the category in text.
func (s *Sanitizer) redact(cat patternCategory, text string) (string, bool) {
	hit := false
	out := cat.re.ReplaceAllStringFunc(text, func(token string) string {
		if cat.allow != nil && cat.allow(token) {
			return token
		}
		hit = true
		return s.placeholder
	})
	return out, hit
}
