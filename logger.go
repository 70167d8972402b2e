package interpose

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/golobby/cast"
)

// Logger defines the interface for runtime diagnostics.
// It uses key-value pairs, so *slog.Logger satisfies it directly:
//
//	logger.Info("Dispatching phase", "phase", "RegistrationPoint", "modules", 3)
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RankSource reports the rank of this process within the communication
// library's job, if it is known.
type RankSource func() (int, bool)

// RankEnvVars are consulted in order by EnvRank.
var RankEnvVars = []string{
	"INTERPOSE_RANK",
	"PMI_RANK",
	"PMIX_RANK",
	"OMPI_COMM_WORLD_RANK",
	"MV2_COMM_WORLD_RANK",
	"SLURM_PROCID",
}

// EnvRank reads the rank from the first variable in RankEnvVars that holds an
// integer.
func EnvRank() (int, bool) {
	for _, name := range RankEnvVars {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			continue
		}
		rank, err := cast.FromString(strings.TrimSpace(value), "int")
		if err != nil {
			continue
		}
		return rank.(int), true
	}
	return 0, false
}

// NewDiagnosticLogger returns a text logger writing to w. Every line is
// prefixed with "[rank] " when rank reports one. A nil w writes to stderr and
// a nil rank uses EnvRank.
func NewDiagnosticLogger(w io.Writer, rank RankSource, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if rank == nil {
		rank = EnvRank
	}
	return slog.New(slog.NewTextHandler(&rankWriter{w: w, rank: rank}, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// rankWriter prefixes each line written through it.
type rankWriter struct {
	mu   sync.Mutex
	w    io.Writer
	rank RankSource
}

func (rw *rankWriter) Write(p []byte) (int, error) {
	rank, ok := rw.rank()
	if !ok {
		return rw.w.Write(p)
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()

	prefix := fmt.Sprintf("[%d] ", rank)
	var buf bytes.Buffer
	for _, line := range bytes.SplitAfter(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		buf.WriteString(prefix)
		buf.Write(line)
	}
	if _, err := rw.w.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}
