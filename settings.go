package interpose

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/interpose/config"
	"github.com/GoCodeAlone/interpose/feeders"
)

// EnvPrefix is the prefix of every environment variable read by LoadSettings.
const EnvPrefix = "INTERPOSE"

// Settings are the process-level runtime settings.
type Settings struct {
	// ConfigPath is the stack file. An empty path yields an empty stack.
	ConfigPath string `env:"CONF"`
	// StrictHooks turns the unsupported-hook report into an error.
	StrictHooks bool `env:"STRICT_HOOKS"`
	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL"`
	// WatchConfig reports edits to the stack file while the process runs.
	WatchConfig bool `env:"WATCH_CONF"`
}

// LoadSettings reads Settings from INTERPOSE_* environment variables.
func LoadSettings() (Settings, error) {
	s := Settings{LogLevel: "info"}
	if err := feeders.NewEnvFeeder(EnvPrefix).Feed(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to read %s_* settings: %w", EnvPrefix, err)
	}
	return s, nil
}

// Bootstrap builds a runtime from settings: it loads the stack file and
// instantiates the configured modules from the default module registry.
// Options are applied after the ones derived from settings.
func Bootstrap(s Settings, opts ...Option) (*Runtime, error) {
	logger := NewDiagnosticLogger(nil, EnvRank, ParseLevel(s.LogLevel))

	cfg := &config.Stack{}
	if s.ConfigPath != "" {
		loaded, err := config.LoadFile(s.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load stack: %w", err)
		}
		cfg = loaded
	} else {
		logger.Warn("No stack file configured, running with an empty stack", "env", EnvPrefix+"_CONF")
	}

	stack, err := BuildStack(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stack: %w", err)
	}

	base := []Option{WithLogger(logger), WithStrictHooks(s.StrictHooks)}
	return NewRuntime(stack, append(base, opts...)...), nil
}

// WatchStackFile reports edits to the stack file through the runtime's
// logger until ctx is done. The stack itself is never rebuilt.
func (r *Runtime) WatchStackFile(ctx context.Context, path string) (*config.Watcher, error) {
	w, err := config.NewWatcher(path,
		func(path string, op fsnotify.Op) {
			r.logger.Warn("Stack file changed; the module stack is fixed for the life of the process, restart to apply",
				"path", path, "op", op.String())
		},
		func(err error) {
			r.logger.Error("Stack file watch error", "path", path, "error", err)
		})
	if err != nil {
		return nil, err
	}
	go w.Run(ctx)
	return w, nil
}

var (
	defaultMu      sync.Mutex
	defaultRuntime *Runtime
)

// SetDefault installs r as the process-wide runtime used by the package
// level trigger functions.
func SetDefault(r *Runtime) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRuntime = r
}

// Default returns the process-wide runtime, bootstrapping it from the
// environment on first use.
func Default() (*Runtime, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRuntime != nil {
		return defaultRuntime, nil
	}

	s, err := LoadSettings()
	if err != nil {
		return nil, err
	}
	r, err := Bootstrap(s)
	if err != nil {
		return nil, err
	}
	if s.WatchConfig && s.ConfigPath != "" {
		if _, err := r.WatchStackFile(context.Background(), s.ConfigPath); err != nil {
			r.logger.Warn("Cannot watch stack file", "path", s.ConfigPath, "error", err)
		}
	}
	defaultRuntime = r
	return r, nil
}

// Native fires the native trigger on the default runtime. Call it from an
// init function of the main package: Go runs that after the init functions
// of every imported package, so all modules are registered, and before main.
func Native(ctx context.Context) error {
	r, err := Default()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoDefaultRuntime, err)
	}
	return r.Native(ctx)
}

// Fallback fires the fallback trigger on the default runtime. The wrapped
// library's initialization entry point calls it.
func Fallback(ctx context.Context) error {
	r, err := Default()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoDefaultRuntime, err)
	}
	return r.Fallback(ctx)
}

// Shutdown dispatches AppShutdown on the default runtime. Call it when the
// application finishes normally, typically deferred in main.
func Shutdown(ctx context.Context) error {
	defaultMu.Lock()
	r := defaultRuntime
	defaultMu.Unlock()

	if r == nil {
		return nil
	}
	return r.Shutdown(ctx)
}
