// Package workflow is the contract with the outer workflow engine that
// schedules one orchestrator execution per scene.
//
// The engine hands the orchestrator a task token; the orchestrator reports
// back exactly once per token, either a structured success payload or a
// structured failure payload naming the failing phase. Retry of a whole
// execution is the engine's decision, parameterized by RetryPolicy.
package workflow

import (
	"context"
	"time"
)

// Failing phases named in failure payloads.
const (
	ErrorKindInterpretation = "ObjectiveInterpretationError"
	ErrorKindCycle          = "CycleExecutionError"
	ErrorKindScene          = "SceneInputError"
	ErrorKindInternal       = "InternalError"
)

// SuccessPayload is reported when an execution produced an aggregate result.
type SuccessPayload struct {
	OutputLocation string `json:"output_location"`
	Summary        string `json:"summary"`
}

// FailurePayload names the failing phase and the underlying cause.
type FailurePayload struct {
	ErrorKind string `json:"error_kind"`
	Cause     string `json:"cause"`
}

// Reporter delivers the terminal outcome of one execution to the workflow
// engine via its task token.
type Reporter interface {
	ReportSuccess(ctx context.Context, taskToken string, p SuccessPayload) error
	ReportFailure(ctx context.Context, taskToken string, p FailurePayload) error
}

// RetryPolicy describes the engine-side exponential backoff applied to a
// failed execution. The orchestrator never retries internally; the policy
// exists so callers and tests agree on the schedule.
type RetryPolicy struct {
	BaseInterval time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// DefaultRetryPolicy mirrors the engine configuration used in production.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseInterval: 30 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  10,
	}
}

// Backoff returns the wait before the given retry attempt (1-based). The
// first retry waits the base interval; each further retry multiplies it.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return p.BaseInterval
	}
	d := float64(p.BaseInterval)
	for n := 1; n < attempt; n++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// ShouldRetry reports whether another attempt remains after the given
// 1-based attempt number.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}
