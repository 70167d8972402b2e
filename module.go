// Package interpose runs a stack of instrumentation modules around a
// message-passing communication library.
//
// Modules are configured as an ordered stack. The runtime drives every
// module through a fixed sequence of lifecycle hooks before the application
// starts and after it finishes, and lets modules query their identity,
// their configured arguments and their activation state while they run.
//
// Initialization is started by one of two triggers. The native trigger runs
// before main and performs the whole sequence:
//
//	func init() {
//		_ = interpose.Native(context.Background())
//	}
//
// The fallback trigger is called by the wrapped library's own
// initialization entry point and only runs the hooks that do not need the
// process arguments. Whichever fires, every hook runs at most once.
package interpose

import (
	"fmt"
	"strings"

	"github.com/GoCodeAlone/interpose/argv"
	"github.com/GoCodeAlone/interpose/lifecycle"
)

// Module is a configured instrumentation tool. A module takes part in a
// lifecycle phase by implementing the matching hook interface.
type Module interface {
	// Name returns the name the module is registered under.
	Name() string
}

// PreInitHook runs once for the whole stack during the constructor phase.
type PreInitHook interface {
	PreInit(hc *HookContext) error
}

// RegistrationPointHook runs once per module in ascending id order. It is
// the only hook during which HookContext.Self reports the caller's id.
type RegistrationPointHook interface {
	RegistrationPoint(hc *HookContext) error
}

// RegistrationCompleteHook runs once after every RegistrationPoint call.
type RegistrationCompleteHook interface {
	RegistrationComplete(hc *HookContext) error
}

// AppStartupHook runs before main with the recovered process arguments.
// It is only honored when the native trigger runs.
type AppStartupHook interface {
	AppStartup(hc *HookContext, args argv.Argv) error
}

// AppShutdownHook runs at normal process termination in descending id order.
type AppShutdownHook interface {
	AppShutdown(hc *HookContext) error
}

// HookExporter lets a module state which hooks it defines instead of having
// them derived from the interfaces it implements.
type HookExporter interface {
	ExportedHooks() HookSet
}

// HookSet is a set of lifecycle phases.
type HookSet uint8

// NewHookSet returns the set holding the given phases. Unknown phases are ignored.
func NewHookSet(phases ...lifecycle.Phase) HookSet {
	var s HookSet
	for _, p := range phases {
		s |= phaseBit(p)
	}
	return s
}

// Has reports whether p is in the set.
func (s HookSet) Has(p lifecycle.Phase) bool {
	bit := phaseBit(p)
	return bit != 0 && s&bit != 0
}

// Phases lists the members in execution order.
func (s HookSet) Phases() []lifecycle.Phase {
	var phases []lifecycle.Phase
	for _, p := range lifecycle.Phases() {
		if s.Has(p) {
			phases = append(phases, p)
		}
	}
	return phases
}

func (s HookSet) String() string {
	names := make([]string, 0, 5)
	for _, p := range s.Phases() {
		names = append(names, string(p))
	}
	return "{" + strings.Join(names, ",") + "}"
}

func phaseBit(p lifecycle.Phase) HookSet {
	for i, known := range lifecycle.Phases() {
		if known == p {
			return 1 << i
		}
	}
	return 0
}

// exportedHooks derives the hook set of a loaded module.
func exportedHooks(m Module) HookSet {
	if exporter, ok := m.(HookExporter); ok {
		return exporter.ExportedHooks()
	}

	var s HookSet
	if _, ok := m.(PreInitHook); ok {
		s |= phaseBit(lifecycle.PhasePreInit)
	}
	if _, ok := m.(RegistrationPointHook); ok {
		s |= phaseBit(lifecycle.PhaseRegistrationPoint)
	}
	if _, ok := m.(RegistrationCompleteHook); ok {
		s |= phaseBit(lifecycle.PhaseRegistrationComplete)
	}
	if _, ok := m.(AppStartupHook); ok {
		s |= phaseBit(lifecycle.PhaseAppStartup)
	}
	if _, ok := m.(AppShutdownHook); ok {
		s |= phaseBit(lifecycle.PhaseAppShutdown)
	}
	return s
}

// invokeHook calls the entry point of m for phase p.
func invokeHook(m Module, p lifecycle.Phase, hc *HookContext, args argv.Argv) error {
	switch p {
	case lifecycle.PhasePreInit:
		if h, ok := m.(PreInitHook); ok {
			return h.PreInit(hc)
		}
	case lifecycle.PhaseRegistrationPoint:
		if h, ok := m.(RegistrationPointHook); ok {
			return h.RegistrationPoint(hc)
		}
	case lifecycle.PhaseRegistrationComplete:
		if h, ok := m.(RegistrationCompleteHook); ok {
			return h.RegistrationComplete(hc)
		}
	case lifecycle.PhaseAppStartup:
		if h, ok := m.(AppStartupHook); ok {
			return h.AppStartup(hc, args)
		}
	case lifecycle.PhaseAppShutdown:
		if h, ok := m.(AppShutdownHook); ok {
			return h.AppShutdown(hc)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPhase, p)
	}
	return nil
}
