package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, "ERROR", LevelError.String())
}

func TestLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo, Format: FormatJSON})

	log.With(Component("test")).Info("pet fed", StudentID("S1"), Points(9), Err(errors.New("boom")))
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "pet fed", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "S1", entry["student_id"])
	assert.EqualValues(t, 9, entry["points"])
	assert.Equal(t, "boom", entry["error"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelError})

	log.Info("dropped")
	log.SetLevel(LevelDebug)
	log.Debug("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf}).WithRequestID("req-1")

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.NotNil(t, FromContext(context.Background()))
}
