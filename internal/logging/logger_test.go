package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestJSONLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "warn", JSONFormat: true, Component: "test"}, &buf)

	l.Info().Msg("dropped")
	l.Warn().Str("symbol", "DOGEUSDT").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "DOGEUSDT", entry["symbol"])
	assert.Contains(t, entry, "time")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info"}, &buf)
	l.Info().Str("symbol", "XRPUSDT").Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "symbol=XRPUSDT")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	l, closer, err := New(Config{Level: "info", Output: path, JSONFormat: true})
	require.NoError(t, err)

	l.Info().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
}

func TestTraceContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{JSONFormat: true}, &buf)

	ctx, l := WithTraceContext(context.Background(), base, "")
	id := TraceID(ctx)
	assert.Len(t, id, 32)

	FromContext(ctx).Info().Msg("traced")
	assert.Contains(t, buf.String(), `"trace_id":"`+id+`"`)
	_ = l

	ctx, _ = WithTraceContext(context.Background(), base, "fixed")
	assert.Equal(t, "fixed", TraceID(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	SetDefault(NewWithWriter(Config{JSONFormat: true}, &buf))
	FromContext(context.Background()).Info().Msg("default")
	api := WithComponent("api")
	api.Info().Msg("tagged")

	assert.Contains(t, buf.String(), `"message":"default"`)
	assert.Contains(t, buf.String(), `"component":"api"`)
}

func TestRedactParams(t *testing.T) {
	in := map[string]string{"symbol": "DOGEUSDT", "signature": "abc", "apiKey": "k"}
	out := RedactParams(in)
	assert.Equal(t, "DOGEUSDT", out["symbol"])
	assert.Equal(t, "***", out["signature"])
	assert.Equal(t, "***", out["apiKey"])
	assert.Equal(t, "abc", in["signature"])
}
