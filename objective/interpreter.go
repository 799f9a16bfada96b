// Package objective turns a free-form business objective into structured
// workflow parameters via a text-generation service.
//
// The interpreter enforces the parameter schema deterministically: each
// attempt extracts the balanced JSON objects from the generated text and
// validates them, feeding any failure back into the next attempt's prompt
// so the generator sees its own mistake. Exhausting the attempt budget is a
// hard failure because a malformed objective would silently corrupt all
// downstream cycle filtering.
package objective

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/logging"
	"github.com/drivemind-labs/sceneloop/model"
)

// DefaultMaxAttempts is the schema-enforcement retry budget.
const DefaultMaxAttempts = 3

const systemPrompt = `You translate automotive scene analysis objectives into workflow parameters.
Respond with a single JSON object and nothing else. Required fields:
"objective" (string), "scenario_filters" (object with optional "environment_types",
"weather_conditions", "maneuver_types" string arrays and "risk_threshold" number),
"required_analyses" (string array), "target_metrics" (string array).
Optional fields: "priority" (string), "max_cycles" (integer), "convergence_threshold" (number).`

const paramsSchema = `{
	"type": "object",
	"required": ["objective", "scenario_filters", "required_analyses", "target_metrics"],
	"properties": {
		"objective": {"type": "string", "minLength": 1},
		"scenario_filters": {"type": "object"},
		"required_analyses": {"type": "array", "items": {"type": "string"}},
		"target_metrics": {"type": "array", "items": {"type": "string"}},
		"priority": {"type": "string"},
		"max_cycles": {"type": "integer", "minimum": 1},
		"convergence_threshold": {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
	}
}`

// Options holds configuration overrides passed to NewInterpreter().
type Options struct {
	// MaxAttempts bounds the generate-validate loop.
	MaxAttempts int

	Logger logging.Logger
}

// Interpreter derives core.WorkflowParams from objective text.
type Interpreter struct {
	gen    model.Generator
	schema *jsonschema.Schema
	opts   Options
}

// NewInterpreter constructs an Interpreter backed by the given generator.
func NewInterpreter(gen model.Generator, optFns ...func(o *Options)) (*Interpreter, error) {
	opts := Options{
		MaxAttempts: DefaultMaxAttempts,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", strings.NewReader(paramsSchema)); err != nil {
		return nil, fmt.Errorf("objective: add schema resource: %w", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("objective: compile schema: %w", err)
	}

	return &Interpreter{gen: gen, schema: schema, opts: opts}, nil
}

// Interpret derives workflow parameters from the objective text. The
// optional scene context is appended to the prompt to inform filter choice.
func (i *Interpreter) Interpret(ctx context.Context, objectiveText, sceneContext string) (*core.WorkflowParams, error) {
	var lastErr error

	for attempt := 1; attempt <= i.opts.MaxAttempts; attempt++ {
		user := buildUserPrompt(objectiveText, sceneContext, lastErr)

		resp, err := i.gen.Generate(ctx, model.Request{
			System:      systemPrompt,
			User:        user,
			Temperature: 0.1,
		})
		if err != nil {
			return nil, fmt.Errorf("objective: generate attempt %d: %w", attempt, err)
		}

		params, err := i.parseParams(resp.Text)
		if err != nil {
			lastErr = err
			i.opts.Logger.Warn("objective interpretation attempt failed",
				"attempt", attempt, "max_attempts", i.opts.MaxAttempts, "error", err)
			continue
		}

		params.ApplyDefaults()
		return params, nil
	}

	return nil, fmt.Errorf("objective: no valid workflow parameters after %d attempts: %w", i.opts.MaxAttempts, lastErr)
}

// parseParams extracts the balanced JSON objects from the generated text
// and returns the first one that passes schema validation. Generators
// sometimes emit a discarded draft object before the real one, so a later
// valid span must win over an earlier broken one.
func (i *Interpreter) parseParams(text string) (*core.WorkflowParams, error) {
	spans := extractJSONObjects(text)
	if len(spans) == 0 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var lastErr error
	for _, span := range spans {
		params, err := i.decodeSpan(span)
		if err != nil {
			lastErr = err
			continue
		}
		return params, nil
	}
	return nil, lastErr
}

func (i *Interpreter) decodeSpan(span string) (*core.WorkflowParams, error) {
	var doc any
	if err := json.Unmarshal([]byte(span), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if err := i.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("workflow parameters failed schema validation: %w", err)
	}

	var params core.WorkflowParams
	if err := json.Unmarshal([]byte(span), &params); err != nil {
		return nil, fmt.Errorf("decode workflow parameters: %w", err)
	}
	return &params, nil
}

func buildUserPrompt(objectiveText, sceneContext string, lastErr error) string {
	var b strings.Builder
	b.WriteString("Objective: ")
	b.WriteString(objectiveText)
	if sceneContext != "" {
		b.WriteString("\n\nScene context: ")
		b.WriteString(sceneContext)
	}
	if lastErr != nil {
		fmt.Fprintf(&b, "\n\nYour previous response was rejected: %s\nReturn a corrected JSON object.", lastErr)
	}
	return b.String()
}

// extractJSONObjects returns every balanced top-level {...} span of the
// text in order of appearance.
func extractJSONObjects(text string) []string {
	var spans []string
	off := 0
	for off < len(text) {
		rel := strings.IndexByte(text[off:], '{')
		if rel < 0 {
			break
		}
		start := off + rel
		end, ok := scanObject(text, start)
		if !ok {
			break
		}
		spans = append(spans, text[start:end+1])
		off = end + 1
	}
	return spans
}

// scanObject finds the closing brace matching the opener at start, tracking
// string literals so braces inside values do not unbalance the scan.
func scanObject(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for pos := start; pos < len(text); pos++ {
		ch := text[pos]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return pos, true
			}
		}
	}
	return 0, false
}
