package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyBackoff(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 30*time.Second, p.Backoff(1))
	assert.Equal(t, 60*time.Second, p.Backoff(2))
	assert.Equal(t, 120*time.Second, p.Backoff(3))
	assert.Equal(t, 30*time.Second*512, p.Backoff(10))
}

func TestRetryPolicyAttemptBudget(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.True(t, p.ShouldRetry(1))
	assert.True(t, p.ShouldRetry(9))
	assert.False(t, p.ShouldRetry(10))
}

func TestInMemoryReporterRecordsOnce(t *testing.T) {
	r := NewInMemoryReporter()
	ctx := context.Background()

	require.NoError(t, r.ReportSuccess(ctx, "token-1", SuccessPayload{
		OutputLocation: "s3://results/scene-0042.json",
		Summary:        "2 cycles, convergence_achieved",
	}))

	o, ok := r.Outcome("token-1")
	require.True(t, ok)
	require.NotNil(t, o.Success)
	assert.Equal(t, "s3://results/scene-0042.json", o.Success.OutputLocation)
	assert.Nil(t, o.Failure)

	// A resolved token cannot be resolved again.
	assert.Error(t, r.ReportFailure(ctx, "token-1", FailurePayload{ErrorKind: ErrorKindInternal, Cause: "late"}))
}

func TestInMemoryReporterFailure(t *testing.T) {
	r := NewInMemoryReporter()

	require.NoError(t, r.ReportFailure(context.Background(), "token-2", FailurePayload{
		ErrorKind: ErrorKindCycle,
		Cause:     "cycle 3 of 3: invocation timeout",
	}))

	o, ok := r.Outcome("token-2")
	require.True(t, ok)
	require.NotNil(t, o.Failure)
	assert.Equal(t, ErrorKindCycle, o.Failure.ErrorKind)

	_, ok = r.Outcome("missing")
	assert.False(t, ok)
}
