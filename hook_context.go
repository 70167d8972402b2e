package interpose

import (
	"context"

	"github.com/GoCodeAlone/interpose/lifecycle"
)

// NoModule is the module id of a hook context that is not bound to a module.
const NoModule = -1

// HookContext is handed to a module for the duration of one hook call. It
// records the phase being dispatched and, for RegistrationPoint, the id of
// the module being called. A context must not be kept after the hook
// returns; once released, Self fails with ErrModuleContextUnavailable.
type HookContext struct {
	ctx      context.Context
	stack    *Stack
	phase    lifecycle.Phase
	module   int
	released bool
}

func newHookContext(ctx context.Context, stack *Stack, phase lifecycle.Phase, module int) *HookContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &HookContext{ctx: ctx, stack: stack, phase: phase, module: module}
}

func (hc *HookContext) release() {
	hc.released = true
	hc.module = NoModule
}

// Context returns the context passed to the trigger that started dispatch,
// marked as coming from a hook. A hook that fires a trigger or Shutdown must
// pass this context; any other context waits for the dispatch in progress.
func (hc *HookContext) Context() context.Context {
	if hc == nil {
		return context.Background()
	}
	return hc.ctx
}

// Phase returns the phase being dispatched.
func (hc *HookContext) Phase() lifecycle.Phase {
	if hc == nil {
		return ""
	}
	return hc.phase
}

// Stack returns the query interface of the stack being dispatched. Without
// a stack every lookup fails with ErrModuleNotFound.
func (hc *HookContext) Stack() ServiceQuery {
	if hc == nil {
		return (*Stack)(nil)
	}
	return hc.stack
}

// Self returns the id of the module currently executing.
func (hc *HookContext) Self() (int, error) {
	if hc == nil || hc.stack == nil {
		return NoModule, ErrModuleContextUnavailable
	}
	return hc.stack.GetModuleSelf(hc)
}

// Argument looks up key in the arguments of module id.
func (hc *HookContext) Argument(id int, key string) (string, error) {
	if hc == nil || hc.stack == nil {
		return "", ErrModuleNotFound
	}
	return hc.stack.GetArgument(id, key)
}

// Pcontrol returns the activation flag of module id.
func (hc *HookContext) Pcontrol(id int) (bool, error) {
	if hc == nil || hc.stack == nil {
		return false, ErrModuleNotFound
	}
	return hc.stack.GetPcontrol(id)
}
