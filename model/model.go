package model

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
)

// Request captures one single-turn generation call: a system prompt framing
// the task and a user prompt carrying the data. Low temperatures are used
// wherever deterministic structured output is required.
type Request struct {
	System      string  `json:"system,omitempty"`
	User        string  `json:"user"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed output of a generation call.
type Response struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a generator implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Generator is the minimal interface required to drive single-turn text
// generation.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the generator implementation.
	Info() Info
}

// Embedder converts text into an embedding vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MockGenerator is a lightweight in-memory Generator useful for tests &
// examples. Responses can be keyed on user-prompt substrings or queued in
// order for retry scenarios.
type MockGenerator struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	queue     []string
	calls     []Request
	err       error
}

// NewMockGenerator constructs a MockGenerator.
func NewMockGenerator(name string) *MockGenerator {
	return &MockGenerator{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion returned when the user prompt
// contains the given substring.
func (m *MockGenerator) AddResponse(substring, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[substring] = response
}

// QueueResponses registers completions returned in order regardless of the
// prompt. Queued responses take precedence over substring matches.
func (m *MockGenerator) QueueResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// SetError makes every subsequent Generate call fail with err.
func (m *MockGenerator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the requests seen so far.
func (m *MockGenerator) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		text := m.queue[0]
		m.queue = m.queue[1:]
		return &Response{Text: text}, nil
	}
	for substring, response := range m.responses {
		if strings.Contains(req.User, substring) {
			return &Response{Text: response}, nil
		}
	}
	return &Response{Text: fmt.Sprintf("Mock response to: %s", req.User)}, nil
}

// Info implements Generator.
func (m *MockGenerator) Info() Info { return m.info }

// MockEmbedder is a deterministic Embedder for tests: it hashes the input
// text into a fixed-dimension unit vector.
type MockEmbedder struct {
	Dims int
}

// Embed implements Embedder.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dims := m.Dims
	if dims <= 0 {
		dims = 8
	}
	vec := make([]float32, dims)
	for i, r := range text {
		vec[i%dims] += float32(r%13) / 13
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}
