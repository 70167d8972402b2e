package interpose

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoCodeAlone/interpose/argv"
	"github.com/GoCodeAlone/interpose/lifecycle"
)

// dispatch runs phase across the stack once. Modules that do not export the
// hook are skipped. A failing hook is reported and the remaining modules are
// still called. With invoke false the phase is consumed and the state
// advanced without calling any module.
func (r *Runtime) dispatch(ctx context.Context, phase lifecycle.Phase, args argv.Argv, invoke bool) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	won, err := r.claim(phase)
	if err != nil {
		r.logger.Error("Phase cannot start in the current state", "phase", phase, "state", r.State(), "error", err)
		return err
	}
	if !won {
		r.logger.Debug("Phase already dispatched, skipping", "phase", phase)
		return nil
	}
	if err := r.transition(ctx, phase.Entering()); err != nil {
		r.unclaim(phase)
		return err
	}
	hookCtx := r.hookContext(ctx)

	var ids []int
	if invoke {
		ids = r.stack.Participants(phase)
	}
	r.logger.Debug("Dispatching phase", "phase", phase, "modules", ids)
	r.emit(ctx, EventTypePhaseStarted, map[string]any{"phase": string(phase), "modules": ids})

	var errs []error
	for _, id := range ids {
		bound := NoModule
		if phase.BindsModule() {
			bound = id
		}

		hc := newHookContext(hookCtx, r.stack, phase, bound)
		err := invokeHook(r.stack.module(id), phase, hc, args)
		hc.release()

		if err != nil {
			name := r.stack.Name(id)
			r.logger.Error("Hook failed", "phase", phase, "module", name, "id", id, "error", err)
			r.emit(ctx, EventTypeHookFailed, map[string]any{
				"phase": string(phase), "module": name, "id": id, "error": err.Error(),
			})
			errs = append(errs, fmt.Errorf("%w: %s in module %d (%s): %w", ErrHookFailed, phase, id, name, err))
		}
	}

	if err := r.transition(ctx, phase.Done()); err != nil {
		errs = append(errs, err)
	}
	r.emit(ctx, EventTypePhaseCompleted, map[string]any{"phase": string(phase), "failed": len(errs)})
	return errors.Join(errs...)
}
