package invoke

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivemind-labs/sceneloop/core"
	"github.com/drivemind-labs/sceneloop/model"
)

// Interface compliance (compile-time assertions)
var (
	_ core.AgentInvoker = (*ModelInvoker)(nil)
	_ core.AgentInvoker = (*MockInvoker)(nil)
)

func TestModelInvoker_RoutesByAgentRef(t *testing.T) {
	gen := model.NewMockGenerator("scene-agent")
	gen.AddResponse("scene-0042", `{"analysis": {"summary": "wet intersection"}}`)

	inv := NewModelInvoker()
	inv.Register("scene-understanding-agent", gen, "You analyze driving scenes.")

	out, err := inv.Invoke(context.Background(), "scene-understanding-agent", core.NewID(), []byte(`{"scene_id": "scene-0042"}`))
	require.NoError(t, err)
	assert.Contains(t, string(out), "wet intersection")

	// System prompt must reach the generator.
	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "You analyze driving scenes.", calls[0].System)
}

func TestModelInvoker_UnknownAgentRef(t *testing.T) {
	inv := NewModelInvoker()
	_, err := inv.Invoke(context.Background(), "missing", "session", nil)
	assert.Error(t, err)
}

func TestModelInvoker_GeneratorError(t *testing.T) {
	gen := model.NewMockGenerator("failing")
	gen.SetError(assert.AnError)

	inv := NewModelInvoker()
	inv.Register("agent", gen, "")

	_, err := inv.Invoke(context.Background(), "agent", "session", []byte("{}"))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMockInvoker_RecordsCalls(t *testing.T) {
	inv := NewMockInvoker()
	inv.SetResponse("coordinator-agent", []byte("plain text reply"))

	out, err := inv.Invoke(context.Background(), "coordinator-agent", "session-1", []byte(`{"scene_id": "scene-0001"}`))
	require.NoError(t, err)
	assert.Equal(t, "plain text reply", string(out))

	// Unregistered refs return an absent (nil) body, not an error.
	out, err = inv.Invoke(context.Background(), "other-agent", "session-1", nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	calls := inv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "coordinator-agent", calls[0].AgentRef)
	assert.Equal(t, "session-1", calls[0].SessionID)
}
