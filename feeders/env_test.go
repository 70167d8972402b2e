package feeders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Level string `env:"LOG_LEVEL"`
}

type settings struct {
	Path    string `env:"CONF"`
	Strict  bool   `env:"STRICT_HOOKS"`
	Retries int    `env:"RETRIES"`
	Ignored string
	Log     nested
}

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestEnvFeeder_Feed(t *testing.T) {
	f := NewEnvFeeder("interpose").WithLookup(mapLookup(map[string]string{
		"INTERPOSE_CONF":         "/etc/stack.yaml",
		"INTERPOSE_STRICT_HOOKS": "true",
		"INTERPOSE_RETRIES":      "3",
		"INTERPOSE_LOG_LEVEL":    "debug",
	}))

	var s settings
	require.NoError(t, f.Feed(&s))
	assert.Equal(t, settings{
		Path:    "/etc/stack.yaml",
		Strict:  true,
		Retries: 3,
		Log:     nested{Level: "debug"},
	}, s)
}

func TestEnvFeeder_UnsetLeavesDefaults(t *testing.T) {
	s := settings{Path: "default.yaml", Retries: 7}
	require.NoError(t, NewEnvFeeder("INTERPOSE").WithLookup(mapLookup(nil)).Feed(&s))
	assert.Equal(t, "default.yaml", s.Path)
	assert.Equal(t, 7, s.Retries)
}

func TestEnvFeeder_ProcessEnvironment(t *testing.T) {
	t.Setenv("FEEDTEST_CONF", "from-env.toml")

	var s settings
	require.NoError(t, NewEnvFeeder("FEEDTEST").Feed(&s))
	assert.Equal(t, "from-env.toml", s.Path)
}

func TestEnvFeeder_Errors(t *testing.T) {
	var s settings
	assert.ErrorIs(t, EnvFeeder{}.Feed(&s), ErrEnvEmptyPrefix)
	assert.ErrorIs(t, NewEnvFeeder("X").Feed(s), ErrEnvInvalidStructure)
	assert.ErrorIs(t, NewEnvFeeder("X").Feed((*settings)(nil)), ErrEnvInvalidStructure)

	bad := NewEnvFeeder("X").WithLookup(mapLookup(map[string]string{"X_RETRIES": "many"}))
	assert.Error(t, bad.Feed(&s))
}
