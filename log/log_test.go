package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBufferLogger(t *testing.T, lvl slog.Level) *bytes.Buffer {
	t.Helper()
	prev := Root()
	buf := new(bytes.Buffer)
	SetDefault(NewLogger(JSONHandlerWithLevel(buf, lvl)))
	t.Cleanup(func() { SetDefault(prev) })
	return buf
}

func lines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, LevelTrace, lvl)
	lvl, err = ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestInfoCarriesModule(t *testing.T) {
	buf := withBufferLogger(t, LevelInfo)
	Info(RPCMonitoring, "served", "method", "eth_chainId")

	recs := lines(buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "info", recs[0]["level"])
	assert.Equal(t, RPCMonitoring, recs[0]["module"])
	assert.Equal(t, "eth_chainId", recs[0]["method"])
}

func TestDebugGatedByModule(t *testing.T) {
	buf := withBufferLogger(t, LevelTrace)
	t.Cleanup(func() { DisableModule(CodecMonitoring) })

	Debug(CodecMonitoring, "hidden")
	assert.Empty(t, lines(buf))

	EnableModules(" codec_mod , ")
	Debug(CodecMonitoring, "shown")
	Trace(CodecMonitoring, "shown too")
	Debug(AddrMonitoring, "still hidden")
	assert.Len(t, lines(buf), 2)
}

func TestLevelFilter(t *testing.T) {
	buf := withBufferLogger(t, LevelWarn)
	Info(BridgeMonitoring, "dropped")
	Warn(BridgeMonitoring, "kept")
	Error(BridgeMonitoring, "kept")
	assert.Len(t, lines(buf), 2)
}

func TestDiscardHandler(t *testing.T) {
	l := NewLogger(DiscardHandler())
	assert.False(t, l.Enabled(context.Background(), LevelCrit))
	l.With("k", "v").Info(BridgeMonitoring, "nothing")
}

func TestTerminalHandlerNoColorOnBuffer(t *testing.T) {
	buf := new(bytes.Buffer)
	l := NewLogger(NewTerminalHandlerWithLevel(buf, LevelInfo, true))
	l.Warn(ConfigMonitoring, "check")
	assert.Contains(t, buf.String(), "level=\"WARN \"")
	assert.NotContains(t, buf.String(), "\x1b[")
}
