package interpose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/interpose/argv"
	"github.com/GoCodeAlone/interpose/lifecycle"
)

// Trigger identifies what started process-wide initialization.
type Trigger int

const (
	// TriggerNative runs before main, from an init function.
	TriggerNative Trigger = iota + 1
	// TriggerFallback runs from the wrapped library's initialization entry
	// point when the native trigger has not been observed.
	TriggerFallback
)

func (t Trigger) String() string {
	switch t {
	case TriggerNative:
		return "native"
	case TriggerFallback:
		return "fallback"
	}
	return fmt.Sprintf("Trigger(%d)", int(t))
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the diagnostic logger.
func WithLogger(logger Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithArgvSource replaces argv.Recover as the source of process arguments.
func WithArgvSource(source argv.Source) Option {
	return func(r *Runtime) {
		if source != nil {
			r.argvSource = source
		}
	}
}

// WithExitFunc replaces os.Exit for fatal errors.
func WithExitFunc(exit func(code int)) Option {
	return func(r *Runtime) {
		if exit != nil {
			r.exit = exit
		}
	}
}

// WithStrictHooks makes the fallback trigger return ErrUnsupportedHook
// instead of only reporting it.
func WithStrictHooks(strict bool) Option {
	return func(r *Runtime) {
		r.strictHooks = strict
	}
}

// WithObserver registers an observer before any event is emitted.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(r *Runtime) {
		r.pendingObservers = append(r.pendingObservers, pendingObserver{observer, eventTypes})
	}
}

type pendingObserver struct {
	observer   Observer
	eventTypes []string
}

// Runtime owns the module stack and the initialization state of the process.
// Both triggers go through Advance; each phase is dispatched at most once no
// matter how often or in which order the triggers fire.
type Runtime struct {
	stack       *Stack
	logger      Logger
	argvSource  argv.Source
	exit        func(code int)
	strictHooks bool

	machine         lifecycle.Machine
	nativeRan       atomic.Bool
	fallbackRan     atomic.Bool
	startupDeferred atomic.Bool

	// advanceMu serializes trigger work and shutdown. Calls made from inside
	// a hook with the hook's context skip it.
	advanceMu sync.Mutex

	mu      sync.Mutex
	claimed map[lifecycle.Phase]bool
	args    argv.Argv

	observers        observerSet
	pendingObservers []pendingObserver
}

var _ Subject = (*Runtime)(nil)

// NewRuntime creates a runtime for stack. A nil stack is treated as empty.
func NewRuntime(stack *Stack, opts ...Option) *Runtime {
	if stack == nil {
		stack = &Stack{}
	}
	r := &Runtime{
		stack:      stack,
		logger:     NewDiagnosticLogger(os.Stderr, EnvRank, slog.LevelInfo),
		argvSource: argv.Recover,
		exit:       os.Exit,
		claimed:    make(map[lifecycle.Phase]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.observers.logger = r.logger
	for _, p := range r.pendingObservers {
		if err := r.observers.register(p.observer, p.eventTypes...); err != nil {
			r.logger.Error("Failed to register observer", "error", err)
		}
	}
	r.pendingObservers = nil
	return r
}

// Stack returns the module stack.
func (r *Runtime) Stack() *Stack {
	return r.stack
}

// State returns the current initialization state.
func (r *Runtime) State() lifecycle.State {
	return r.machine.Current()
}

// NativeRan reports whether the native trigger has fired.
func (r *Runtime) NativeRan() bool {
	return r.nativeRan.Load()
}

// Argv returns the recovered process arguments. It is empty until the
// native trigger has run.
func (r *Runtime) Argv() argv.Argv {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.args
}

// Advance performs the work of trigger. It is safe to call any number of
// times with either trigger.
func (r *Runtime) Advance(ctx context.Context, trigger Trigger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch trigger {
	case TriggerNative:
		return r.native(ctx)
	case TriggerFallback:
		return r.fallback(ctx)
	}
	return fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
}

// Native is shorthand for Advance(ctx, TriggerNative).
func (r *Runtime) Native(ctx context.Context) error {
	return r.Advance(ctx, TriggerNative)
}

// Fallback is shorthand for Advance(ctx, TriggerFallback).
func (r *Runtime) Fallback(ctx context.Context) error {
	return r.Advance(ctx, TriggerFallback)
}

// native runs the constructor phase, recovers the process arguments and
// dispatches AppStartup.
func (r *Runtime) native(ctx context.Context) error {
	if !r.nativeRan.CompareAndSwap(false, true) {
		r.logger.Debug("Native trigger already ran, skipping", "trigger", TriggerNative)
		return nil
	}
	if r.reentrant(ctx) {
		// A hook of the fallback's constructor phase fired the native
		// trigger; that dispatch runs startup once the constructors finish.
		r.startupDeferred.Store(true)
		r.logger.Debug("Native trigger fired during constructor dispatch, deferring startup", "trigger", TriggerNative)
		return nil
	}

	r.advanceMu.Lock()
	defer r.advanceMu.Unlock()
	r.logger.Debug("Initialization triggered", "trigger", TriggerNative, "state", r.State())

	var errs []error
	if err := r.runConstructors(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.startup(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// startup recovers the process arguments and dispatches AppStartup. It does
// nothing once shutdown has begun.
func (r *Runtime) startup(ctx context.Context) error {
	if r.machine.Reached(lifecycle.StateShuttingDown) {
		r.logger.Debug("Shutdown already began, skipping AppStartup", "state", r.State())
		return nil
	}

	args, err := r.recoverArgv()
	if err != nil {
		return err
	}
	return r.dispatch(ctx, lifecycle.PhaseAppStartup, args, true)
}

// fallback runs the constructor phase unless the native trigger already
// did, then reports modules whose startup or shutdown hooks will not run.
func (r *Runtime) fallback(ctx context.Context) error {
	if r.nativeRan.Load() {
		r.logger.Debug("Native trigger already ran, fallback is a no-op", "trigger", TriggerFallback)
		return nil
	}
	if !r.fallbackRan.CompareAndSwap(false, true) {
		return nil
	}

	r.advanceMu.Lock()
	defer r.advanceMu.Unlock()
	r.logger.Debug("Initialization triggered", "trigger", TriggerFallback, "state", r.State())

	var errs []error
	if err := r.runConstructors(ctx); err != nil {
		errs = append(errs, err)
	}

	switch {
	case r.startupDeferred.Load():
		if err := r.startup(ctx); err != nil {
			errs = append(errs, err)
		}
	case r.nativeRan.Load():
		// The native trigger is waiting for advanceMu and runs startup itself.
	default:
		if err := r.checkUnsupportedHooks(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown dispatches AppShutdown in descending id order. It does nothing
// before registration has completed and runs at most once. When AppStartup
// never completed, the state still advances but no AppShutdown hook is
// called.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !r.reentrant(ctx) {
		r.advanceMu.Lock()
		defer r.advanceMu.Unlock()
	}
	if !r.machine.Reached(lifecycle.StateRegistrationComplete) {
		r.logger.Debug("Shutdown before registration completed, nothing to tear down", "state", r.State())
		return nil
	}

	invoke := r.machine.Reached(lifecycle.StateAppRunning)
	if !invoke && r.stack.HookActivated(lifecycle.PhaseAppShutdown) {
		r.logger.Warn("Skipping AppShutdown hooks, AppStartup did not run")
	}
	return r.dispatch(ctx, lifecycle.PhaseAppShutdown, r.Argv(), invoke)
}

// dispatchKey marks the context handed to hooks with the dispatching runtime.
type dispatchKey struct{}

func (r *Runtime) hookContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, dispatchKey{}, r)
}

// reentrant reports whether ctx comes from a hook this runtime is calling.
func (r *Runtime) reentrant(ctx context.Context) bool {
	owner, _ := ctx.Value(dispatchKey{}).(*Runtime)
	return owner == r
}

func (r *Runtime) runConstructors(ctx context.Context) error {
	var errs []error
	for _, phase := range lifecycle.ConstructorPhases() {
		if err := r.dispatch(ctx, phase, argv.Argv{}, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) checkUnsupportedHooks(ctx context.Context) error {
	var nativeOnly []lifecycle.Phase
	for _, p := range lifecycle.Phases() {
		if p.NeedsArgv() {
			nativeOnly = append(nativeOnly, p)
		}
	}

	var offending []string
	for _, d := range r.stack.descriptors {
		for _, p := range nativeOnly {
			if d.Hooks.Has(p) {
				offending = append(offending, d.Name)
				break
			}
		}
	}
	if len(offending) == 0 {
		return nil
	}

	err := fmt.Errorf("%w: modules %v define AppStartup or AppShutdown, but only the fallback trigger ran; deactivate them or check your system",
		ErrUnsupportedHook, offending)
	r.logger.Error("Modules require hooks this environment does not support",
		"modules", offending, "hooks", nativeOnly)
	r.emit(ctx, EventTypeConfigError, map[string]any{"modules": offending, "error": err.Error()})

	if r.strictHooks {
		return err
	}
	return nil
}

// recoverArgv reads the process arguments. Failing to read them is fatal.
func (r *Runtime) recoverArgv() (argv.Argv, error) {
	args, err := r.argvSource()
	switch {
	case err == nil:
	case errors.Is(err, argv.ErrUnsupportedPlatform):
		r.logger.Warn("No mechanism to recover argc/argv on this platform, continuing with an empty vector")
		args = argv.Argv{}
	default:
		r.logger.Error("Could not recover process arguments", "error", err)
		r.exit(1)
		return argv.Argv{}, fmt.Errorf("%w: %w", ErrArgvUnavailable, err)
	}

	r.mu.Lock()
	r.args = args
	r.mu.Unlock()
	r.logger.Debug("Recovered process arguments", "argc", args.Argc())
	return args, nil
}

// claim marks phase as dispatched and reports whether the caller won it. A
// phase whose entering state the machine would refuse is not claimed.
func (r *Runtime) claim(phase lifecycle.Phase) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimed[phase] {
		return false, nil
	}
	if err := r.machine.Check(phase.Entering()); err != nil {
		return false, err
	}
	r.claimed[phase] = true
	return true, nil
}

func (r *Runtime) unclaim(phase lifecycle.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claimed, phase)
}

func (r *Runtime) transition(ctx context.Context, to lifecycle.State) error {
	from, err := r.machine.Transition(to)
	if err != nil {
		r.logger.Error("Rejected state transition", "from", from, "to", to, "error", err)
		return err
	}
	if from != to {
		r.logger.Debug("State changed", "from", from, "to", to)
		r.emit(ctx, EventTypeStateChanged, map[string]any{"from": from.String(), "to": to.String()})
	}
	return nil
}

func (r *Runtime) emit(ctx context.Context, eventType string, data map[string]any) {
	if err := r.observers.notify(ctx, NewCloudEvent(eventType, eventSource, data, nil)); err != nil {
		r.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}

// RegisterObserver implements Subject.
func (r *Runtime) RegisterObserver(observer Observer, eventTypes ...string) error {
	return r.observers.register(observer, eventTypes...)
}

// UnregisterObserver implements Subject.
func (r *Runtime) UnregisterObserver(observer Observer) error {
	r.observers.unregister(observer)
	return nil
}

// NotifyObservers implements Subject.
func (r *Runtime) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	return r.observers.notify(ctx, event)
}

// GetObservers implements Subject.
func (r *Runtime) GetObservers() []ObserverInfo {
	return r.observers.info()
}
