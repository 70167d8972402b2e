package interpose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/interpose/argv"
	"github.com/GoCodeAlone/interpose/config"
	"github.com/GoCodeAlone/interpose/lifecycle"
	"github.com/GoCodeAlone/interpose/registry"
)

func TestNewStack(t *testing.T) {
	args := []Argument{{Key: "a", Value: "1"}}
	stack, err := NewStack(
		StackEntry{Module: bare{name: "first"}, Arguments: args},
		StackEntry{Module: bare{name: "second"}, Name: "renamed", Pcontrol: config.SwitchOn},
	)
	require.NoError(t, err)
	require.Equal(t, 2, stack.Len())

	assert.Equal(t, "first", stack.Name(0))
	assert.Equal(t, "renamed", stack.Name(1))
	assert.Equal(t, "", stack.Name(2))

	args[0].Value = "changed"
	value, err := stack.GetArgument(0, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", value, "arguments are copied")

	d, err := stack.Descriptor(0)
	require.NoError(t, err)
	d.Arguments[0].Value = "mutated"
	value, _ = stack.GetArgument(0, "a")
	assert.Equal(t, "1", value, "descriptors are copies")

	_, err = stack.Descriptor(5)
	assert.ErrorIs(t, err, ErrModuleNotFound)

	_, err = NewStack(StackEntry{Module: bare{name: "ok"}}, StackEntry{})
	assert.ErrorIs(t, err, ErrModuleNil)
}

func TestHookSet(t *testing.T) {
	s := NewHookSet(lifecycle.PhaseAppShutdown, lifecycle.PhasePreInit)
	assert.True(t, s.Has(lifecycle.PhasePreInit))
	assert.True(t, s.Has(lifecycle.PhaseAppShutdown))
	assert.False(t, s.Has(lifecycle.PhaseAppStartup))
	assert.Equal(t, []lifecycle.Phase{lifecycle.PhasePreInit, lifecycle.PhaseAppShutdown}, s.Phases())
	assert.Equal(t, "{PreInit,AppShutdown}", s.String())
	assert.Equal(t, "{}", HookSet(0).String())
}

func TestExportedHooks(t *testing.T) {
	log := &callLog{}
	assert.Equal(t, HookSet(0), exportedHooks(bare{name: "b"}))
	assert.Equal(t,
		NewHookSet(lifecycle.PhaseRegistrationPoint, lifecycle.PhaseRegistrationComplete),
		exportedHooks(&registrar{name: "r", log: log}))
	assert.Equal(t, NewHookSet(lifecycle.Phases()...), exportedHooks(&spy{name: "p", log: log}))
}

func TestStack_Participants(t *testing.T) {
	log := &callLog{}
	stack, err := NewStack(
		StackEntry{Module: &spy{name: "a", log: log}},
		StackEntry{Module: bare{name: "b"}},
		StackEntry{Module: &spy{name: "c", log: log}},
		StackEntry{Module: &registrar{name: "d", log: log}},
	)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 3}, stack.Participants(lifecycle.PhaseRegistrationPoint))
	assert.Equal(t, []int{0, 2}, stack.Participants(lifecycle.PhaseAppStartup))
	assert.Equal(t, []int{2, 0}, stack.Participants(lifecycle.PhaseAppShutdown))
	assert.True(t, stack.HookActivated(lifecycle.PhaseAppShutdown))

	only, err := NewStack(StackEntry{Module: bare{name: "b"}})
	require.NoError(t, err)
	assert.False(t, only.HookActivated(lifecycle.PhasePreInit))
	assert.Empty(t, only.Participants(lifecycle.PhasePreInit))
}

func TestBuildStack(t *testing.T) {
	log := &callLog{}
	factories := registry.New[Factory]()
	require.NoError(t, factories.Register("spy", func() Module { return &spy{name: "spy", log: log} }))
	require.NoError(t, factories.Register("bare", func() Module { return bare{name: "bare"} }))
	require.NoError(t, factories.Register("broken", func() Module { return nil }))

	cfg := &config.Stack{Modules: []config.Module{
		{Name: "spy", Arguments: []config.Argument{{Key: "foo", Value: "bar"}}},
		{Name: "bare", Pcontrol: config.SwitchOff},
		{Name: "spy"},
	}}
	stack, err := BuildStack(cfg, factories)
	require.NoError(t, err)
	require.Equal(t, 3, stack.Len())

	value, err := stack.GetArgument(0, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", value)

	on, err := stack.GetPcontrol(1)
	require.NoError(t, err)
	assert.False(t, on)
	assert.NotSame(t, stack.module(0), stack.module(2), "each entry gets its own instance")

	_, err = BuildStack(&config.Stack{Modules: []config.Module{{Name: "unknown"}}}, factories)
	assert.ErrorIs(t, err, ErrModuleFactoryMissing)
	assert.ErrorIs(t, err, registry.ErrNotRegistered)

	_, err = BuildStack(&config.Stack{Modules: []config.Module{{Name: "broken"}}}, factories)
	assert.ErrorIs(t, err, ErrModuleNil)

	empty, err := BuildStack(nil, factories)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSymbolModule(t *testing.T) {
	var calls []string
	table := SymbolMap{
		"PreInit": func() { calls = append(calls, "PreInit") },
		"RegistrationPoint": func(hc *HookContext) error {
			id, err := hc.Self()
			if err != nil {
				return err
			}
			calls = append(calls, "RegistrationPoint:"+hc.Stack().(*Stack).Name(id))
			return nil
		},
		"AppStartup": func(args argv.Argv) {
			calls = append(calls, "AppStartup:"+args.Arg(0))
		},
		"AppShutdown": func(*HookContext) { calls = append(calls, "AppShutdown") },
	}

	m, err := NewSymbolModule("sym", table)
	require.NoError(t, err)
	assert.Equal(t, NewHookSet(
		lifecycle.PhasePreInit,
		lifecycle.PhaseRegistrationPoint,
		lifecycle.PhaseAppStartup,
		lifecycle.PhaseAppShutdown,
	), exportedHooks(m))

	stack, err := NewStack(StackEntry{Module: m})
	require.NoError(t, err)
	r := newTestRuntime(stack, &testLogger{})
	require.NoError(t, r.Native(context.Background()))
	require.NoError(t, r.Shutdown(context.Background()))

	assert.Equal(t, []string{"PreInit", "RegistrationPoint:sym", "AppStartup:prog", "AppShutdown"}, calls)
}

func TestSymbolModule_InvalidSymbol(t *testing.T) {
	_, err := NewSymbolModule("bad", SymbolMap{"PreInit": 42})
	assert.ErrorIs(t, err, ErrInvalidHookSymbol)

	_, err = NewSymbolModule("bad", SymbolMap{"AppShutdown": func(argv.Argv) {}})
	assert.ErrorIs(t, err, ErrInvalidHookSymbol, "only AppStartup takes the argument vector")

	m, err := NewSymbolModule("empty", SymbolMap{})
	require.NoError(t, err)
	assert.Equal(t, HookSet(0), m.ExportedHooks())
}
