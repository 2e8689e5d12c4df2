package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Init(Config{Level: "error", Output: &bytes.Buffer{}}) })

	LogMethod("f", 12, 3, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Method emitted", rec["msg"])
	assert.Equal(t, "f", rec["method"])
	assert.EqualValues(t, 3, rec["stack"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "warn", Output: &buf}))
	t.Cleanup(func() { _ = Init(Config{Level: "error", Output: &bytes.Buffer{}}) })

	LogPhase("codegen")
	assert.Empty(t, buf.String())
	Warn("careful")
	assert.Contains(t, buf.String(), "careful")
}

func TestInitRejectsUnknownSettings(t *testing.T) {
	assert.Error(t, Init(Config{Level: "loud"}))
	assert.Error(t, Init(Config{Format: "xml"}))
}
