package interpose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/interpose/config"
	"github.com/GoCodeAlone/interpose/lifecycle"
)

func argumentStack(t *testing.T) *Stack {
	t.Helper()
	stack, err := NewStack(
		StackEntry{
			Module:    bare{name: "tracer"},
			Arguments: []Argument{{Key: "foo", Value: "bar"}, {Key: "depth", Value: "4"}, {Key: "foo", Value: "shadowed"}},
		},
		StackEntry{
			Module:   bare{name: "sampler"},
			Pcontrol: config.SwitchOff,
			Arguments: []Argument{
				{Key: "rate", Value: "0.25"},
				{Key: "window", Value: "1500"},
				{Key: "verbose", Value: "yes"},
			},
		},
	)
	require.NoError(t, err)
	return stack
}

func TestGetArgument(t *testing.T) {
	stack := argumentStack(t)

	value, err := stack.GetArgument(0, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", value, "first matching key wins")

	_, err = stack.GetArgument(0, "baz")
	assert.ErrorIs(t, err, ErrArgumentNotFound)

	_, err = stack.GetArgument(999, "foo")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	_, err = stack.GetArgument(-1, "foo")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	value, err = stack.GetArgument(1, "rate")
	require.NoError(t, err)
	assert.Equal(t, "0.25", value, "siblings are visible")
}

func TestGetPcontrol(t *testing.T) {
	stack := argumentStack(t)

	on, err := stack.GetPcontrol(0)
	require.NoError(t, err)
	assert.True(t, on, "unset defaults to on")

	on, err = stack.GetPcontrol(1)
	require.NoError(t, err)
	assert.False(t, on)

	_, err = stack.GetPcontrol(999)
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestArgumentAs(t *testing.T) {
	stack := argumentStack(t)

	depth, err := ArgumentAs[int](stack, 0, "depth")
	require.NoError(t, err)
	assert.Equal(t, 4, depth)

	rate, err := ArgumentAs[float64](stack, 1, "rate")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, rate, 1e-9)

	window, err := ArgumentAs[int64](stack, 1, "window")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), window)

	name, err := ArgumentAs[string](stack, 0, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", name)

	_, err = ArgumentAs[int](stack, 0, "foo")
	assert.Error(t, err)

	_, err = ArgumentAs[int](stack, 0, "missing")
	assert.ErrorIs(t, err, ErrArgumentNotFound)
}

func TestGetModuleSelf_OutsideRegistration(t *testing.T) {
	stack := argumentStack(t)
	other := argumentStack(t)

	_, err := stack.GetModuleSelf(nil)
	assert.ErrorIs(t, err, ErrModuleContextUnavailable)

	unbound := newHookContext(context.Background(), stack, lifecycle.PhasePreInit, NoModule)
	_, err = stack.GetModuleSelf(unbound)
	assert.ErrorIs(t, err, ErrModuleContextUnavailable)

	bound := newHookContext(context.Background(), stack, lifecycle.PhaseRegistrationPoint, 1)
	id, err := stack.GetModuleSelf(bound)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = other.GetModuleSelf(bound)
	assert.ErrorIs(t, err, ErrModuleContextUnavailable, "context from another stack")

	bound.release()
	_, err = stack.GetModuleSelf(bound)
	assert.ErrorIs(t, err, ErrModuleContextUnavailable, "released context")

	var nilContext *HookContext
	_, err = nilContext.Self()
	assert.ErrorIs(t, err, ErrModuleContextUnavailable)
	_, err = nilContext.Argument(0, "foo")
	assert.ErrorIs(t, err, ErrModuleNotFound)
	_, err = nilContext.Stack().GetArgument(0, "foo")
	assert.ErrorIs(t, err, ErrModuleNotFound)
	_, err = nilContext.Stack().GetPcontrol(0)
	assert.ErrorIs(t, err, ErrModuleNotFound)
	_, err = nilContext.Stack().GetModuleSelf(nilContext)
	assert.ErrorIs(t, err, ErrModuleContextUnavailable)
}

// retained keeps its hook context past the call.
type retained struct {
	hc *HookContext
}

func (r *retained) Name() string { return "retained" }
func (r *retained) RegistrationPoint(hc *HookContext) error {
	r.hc = hc
	return nil
}

func TestHookContext_RetainedAfterCall(t *testing.T) {
	m := &retained{}
	stack, err := NewStack(StackEntry{Module: m, Arguments: []Argument{{Key: "k", Value: "v"}}})
	require.NoError(t, err)

	r := newTestRuntime(stack, &testLogger{})
	require.NoError(t, r.Native(context.Background()))

	require.NotNil(t, m.hc)
	_, err = m.hc.Self()
	assert.ErrorIs(t, err, ErrModuleContextUnavailable)

	value, err := m.hc.Argument(0, "k")
	require.NoError(t, err, "lookups by explicit id keep working")
	assert.Equal(t, "v", value)
	assert.Equal(t, lifecycle.PhaseRegistrationPoint, m.hc.Phase())
}

func TestStrerror(t *testing.T) {
	stack := argumentStack(t)
	_, notFound := stack.GetArgument(999, "foo")
	_, noArg := stack.GetArgument(0, "nope")
	_, noSelf := stack.GetModuleSelf(nil)

	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{notFound, "Module not found"},
		{noArg, "Argument not found"},
		{noSelf, "Module context unavailable"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Strerror(tt.err))
	}
}
