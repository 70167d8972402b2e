// Package testutil holds helpers shared by the tests of several packages.
package testutil

import (
	"os"
	"testing"
)

// TrackedEnv lists the variables the runtime reads at bootstrap: its own
// settings and the rank variables set by job launchers.
var TrackedEnv = []string{
	"INTERPOSE_CONF",
	"INTERPOSE_STRICT_HOOKS",
	"INTERPOSE_LOG_LEVEL",
	"INTERPOSE_WATCH_CONF",
	"INTERPOSE_RANK",
	"PMI_RANK",
	"PMIX_RANK",
	"OMPI_COMM_WORLD_RANK",
	"MV2_COMM_WORLD_RANK",
	"SLURM_PROCID",
}

type envSnapshot map[string]*string

func snapshot(keys []string) envSnapshot {
	snap := envSnapshot{}
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			val := v
			snap[k] = &val
		} else {
			snap[k] = nil
		}
	}
	return snap
}

func (s envSnapshot) restore() {
	for k, v := range s {
		if v == nil {
			_ = os.Unsetenv(k)
		} else {
			_ = os.Setenv(k, *v)
		}
	}
}

func (s envSnapshot) clear() {
	for k := range s {
		_ = os.Unsetenv(k)
	}
}

// WithIsolatedEnv runs fn with the tracked variables, plus extra, unset and
// restores their previous values afterwards.
func WithIsolatedEnv(fn func(), extra ...string) {
	snap := snapshot(append(append([]string{}, TrackedEnv...), extra...))
	defer snap.restore()
	snap.clear()

	fn()
}

// Isolate is the *testing.T variant of WithIsolatedEnv. It unsets the
// tracked variables, plus extra, and registers a t.Cleanup that restores
// them. Unlike t.Setenv it leaves the test free to call t.Parallel, so the
// caller must not share the variables with parallel tests.
func Isolate(t *testing.T, extra ...string) {
	t.Helper()

	snap := snapshot(append(append([]string{}, TrackedEnv...), extra...))
	snap.clear()
	t.Cleanup(snap.restore)
}
