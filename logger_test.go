package interpose

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoCodeAlone/interpose/internal/testutil"
)

func TestDiagnosticLogger_RankPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDiagnosticLogger(&buf, func() (int, bool) { return 3, true }, slog.LevelInfo)

	logger.Info("Dispatching phase", "phase", "AppStartup")
	logger.Debug("hidden")
	logger.Warn("second line")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[3] "), "line %q", line)
	}
	assert.Contains(t, lines[0], "phase=AppStartup")
}

func TestDiagnosticLogger_NoRank(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDiagnosticLogger(&buf, func() (int, bool) { return 0, false }, slog.LevelDebug)

	logger.Debug("visible")
	assert.True(t, strings.HasPrefix(buf.String(), "time="))
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestEnvRank(t *testing.T) {
	testutil.Isolate(t)

	_, ok := EnvRank()
	assert.False(t, ok)

	t.Setenv("SLURM_PROCID", "9")
	rank, ok := EnvRank()
	assert.True(t, ok)
	assert.Equal(t, 9, rank)

	t.Setenv("PMI_RANK", "not-a-number")
	rank, ok = EnvRank()
	assert.True(t, ok, "unparsable values are skipped")
	assert.Equal(t, 9, rank)

	t.Setenv("INTERPOSE_RANK", " 2 ")
	rank, ok = EnvRank()
	assert.True(t, ok)
	assert.Equal(t, 2, rank, "INTERPOSE_RANK takes precedence")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
