package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejected struct{}

func (rejected) Error() string  { return "rejected" }
func (rejected) Expected() bool { return true }

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestRequestIDIsLogged(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "json")

	ctx := WithRequestID(context.Background(), "req-42")
	InfoContext(ctx, "Transition applied", "equipmentID", 7)

	entry := decode(t, &buf)
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, float64(7), entry["equipmentID"])
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
}

func TestExitMethodWithError_Level(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")

	ExitMethodWithError("svc.Do", rejected{})
	assert.Equal(t, "WARN", decode(t, &buf)["level"])

	buf.Reset()
	ExitMethodWithError("svc.Do", errors.New("connection reset"))
	assert.Equal(t, "ERROR", decode(t, &buf)["level"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "text")

	EnterMethod("svc.Do")
	assert.Zero(t, buf.Len())
}
