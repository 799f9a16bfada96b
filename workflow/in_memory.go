package workflow

import (
	"context"
	"fmt"
	"sync"
)

// Outcome is one recorded report.
type Outcome struct {
	Success *SuccessPayload
	Failure *FailurePayload
}

// InMemoryReporter records outcomes per task token. It backs tests and
// single-process deployments; production deployments swap in a client for
// the engine's callback API behind the same interface.
type InMemoryReporter struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
}

// NewInMemoryReporter creates an empty reporter.
func NewInMemoryReporter() *InMemoryReporter {
	return &InMemoryReporter{outcomes: map[string]Outcome{}}
}

// ReportSuccess implements Reporter. Reporting twice on one token is a
// caller bug and rejected.
func (r *InMemoryReporter) ReportSuccess(_ context.Context, taskToken string, p SuccessPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.outcomes[taskToken]; exists {
		return fmt.Errorf("task token %q already resolved", taskToken)
	}
	r.outcomes[taskToken] = Outcome{Success: &p}
	return nil
}

// ReportFailure implements Reporter.
func (r *InMemoryReporter) ReportFailure(_ context.Context, taskToken string, p FailurePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.outcomes[taskToken]; exists {
		return fmt.Errorf("task token %q already resolved", taskToken)
	}
	r.outcomes[taskToken] = Outcome{Failure: &p}
	return nil
}

// Outcome returns the recorded outcome for a token, if any.
func (r *InMemoryReporter) Outcome(taskToken string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[taskToken]
	return o, ok
}
