package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	return entry
}

func TestFieldHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).WithComponent("shp").WithPath("/tmp/a.shp").WithShapeID(7)

	l.Info("read")

	entry := decodeLine(t, &buf)
	require.Equal(t, "read", entry["msg"])
	require.Equal(t, "shp", entry[KeyComponent])
	require.Equal(t, "/tmp/a.shp", entry[KeyPath])
	require.EqualValues(t, 7, entry[KeyShapeID])
}

func TestLogIOError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.LogIOError("write", errors.New("disk full"))

	entry := decodeLine(t, &buf)
	require.Equal(t, "ERROR", entry["level"])
	require.Equal(t, "write", entry[KeyOp])
	require.Equal(t, "disk full", entry[KeyError])
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	require.False(t, l.Enabled(t.Context(), slog.LevelError))
}

func TestOrNoop(t *testing.T) {
	require.NotNil(t, OrNoop(nil))

	l := NewTextLogger(slog.LevelWarn)
	require.Same(t, l, OrNoop(l))
	require.True(t, l.Enabled(t.Context(), slog.LevelWarn))
	require.False(t, l.Enabled(t.Context(), slog.LevelInfo))
}

func TestNewLoggerNilHandler(t *testing.T) {
	l := NewLogger(nil)
	require.True(t, l.Enabled(t.Context(), slog.LevelInfo))

	j := NewJSONLogger(slog.LevelDebug)
	require.True(t, j.Enabled(t.Context(), slog.LevelDebug))
}
