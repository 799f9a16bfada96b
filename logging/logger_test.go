package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger captures every entry for assertions.
type recordingLogger struct {
	entries []logEntry
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.record("debug", msg, args) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.record("info", msg, args) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.record("warn", msg, args) }
func (r *recordingLogger) Error(msg string, args ...any) { r.record("error", msg, args) }

func (r *recordingLogger) record(level, msg string, args []any) {
	r.entries = append(r.entries, logEntry{level: level, msg: msg, args: args})
}

func TestNewSceneLoggerFromForwardsToLogger(t *testing.T) {
	rec := &recordingLogger{}
	sl := NewSceneLoggerFrom(rec).WithComponent("orchestrator").WithScene("scene-0042", "run-1")

	sl.Info("anomaly verdict", "is_anomaly", true)
	sl.Error("cycle loop failed")

	require.Len(t, rec.entries, 2)
	assert.Equal(t, "info", rec.entries[0].level)
	assert.Equal(t, "anomaly verdict", rec.entries[0].msg)
	assert.Contains(t, rec.entries[0].args, "component")
	assert.Contains(t, rec.entries[0].args, "orchestrator")
	assert.Contains(t, rec.entries[0].args, "scene-0042")
	assert.Contains(t, rec.entries[0].args, "run-1")
	assert.Contains(t, rec.entries[0].args, "is_anomaly")
	assert.Contains(t, rec.entries[0].args, true)
	assert.Equal(t, "error", rec.entries[1].level)
	assert.Equal(t, "cycle loop failed", rec.entries[1].msg)
}

func TestNewSceneLoggerFromPassesSceneLoggerThrough(t *testing.T) {
	sl := NewLogger(nil)
	assert.Same(t, sl, NewSceneLoggerFrom(sl))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel("ERROR"))
	assert.Equal(t, LogLevelInfo, ParseLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
}
