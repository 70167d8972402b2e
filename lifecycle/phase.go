// Package lifecycle defines the hook phases of a module stack and the
// process-wide initialization state machine that orders them.
package lifecycle

// Phase names a lifecycle hook entry point that modules may export.
type Phase string

const (
	PhasePreInit              Phase = "PreInit"
	PhaseRegistrationPoint    Phase = "RegistrationPoint"
	PhaseRegistrationComplete Phase = "RegistrationComplete"
	PhaseAppStartup           Phase = "AppStartup"
	PhaseAppShutdown          Phase = "AppShutdown"
)

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{
		PhasePreInit,
		PhaseRegistrationPoint,
		PhaseRegistrationComplete,
		PhaseAppStartup,
		PhaseAppShutdown,
	}
}

// ConstructorPhases returns the phases that run without the process
// argument vector. Both triggers may run them; they still run only once.
func ConstructorPhases() []Phase {
	return []Phase{PhasePreInit, PhaseRegistrationPoint, PhaseRegistrationComplete}
}

// Descending reports whether the phase visits modules from the highest id
// down. Shutdown unwinds the stack so the innermost wrapper tears down first.
func (p Phase) Descending() bool {
	return p == PhaseAppShutdown
}

// BindsModule reports whether the phase sets the current module in the hook
// context for each call.
func (p Phase) BindsModule() bool {
	return p == PhaseRegistrationPoint
}

// NeedsArgv reports whether the phase is only honored by the native trigger.
func (p Phase) NeedsArgv() bool {
	return p == PhaseAppStartup || p == PhaseAppShutdown
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhasePreInit, PhaseRegistrationPoint, PhaseRegistrationComplete, PhaseAppStartup, PhaseAppShutdown:
		return true
	}
	return false
}

func (p Phase) String() string { return string(p) }

// phaseStates maps a phase to the state entered when it begins and the state
// reached once every module has been visited.
var phaseStates = map[Phase]struct{ entering, done State }{
	PhasePreInit:              {entering: StateUninitialized, done: StateConstructorsRun},
	PhaseRegistrationPoint:    {entering: StateRegistrationInProgress, done: StateRegistrationInProgress},
	PhaseRegistrationComplete: {entering: StateRegistrationInProgress, done: StateRegistrationComplete},
	PhaseAppStartup:           {entering: StateRegistrationComplete, done: StateAppRunning},
	PhaseAppShutdown:          {entering: StateShuttingDown, done: StateShutdownComplete},
}

// Entering returns the state the machine moves to when p begins.
func (p Phase) Entering() State {
	return phaseStates[p].entering
}

// Done returns the state the machine moves to when p has finished.
func (p Phase) Done() State {
	return phaseStates[p].done
}
