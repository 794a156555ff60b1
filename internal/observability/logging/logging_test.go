package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSONCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{ServiceName: "identity", Environment: "prod", Level: "warn", Output: &buf})

	log.Info("dropped")
	log.Warn("kept", "user_id", "u1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "identity", rec["service"])
	assert.Equal(t, "prod", rec["env"])
	assert.Equal(t, "u1", rec["user_id"])
}

func TestNewLoggerDevIsPlainText(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{ServiceName: "identity", Environment: "dev", Output: &buf})
	log.Info("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
