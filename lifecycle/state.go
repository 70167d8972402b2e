package lifecycle

import (
	"errors"
	"fmt"
	"sync"
)

// Static errors for lifecycle package
var (
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// State is the progress of process-wide setup. It only moves forward.
type State int

const (
	StateUninitialized State = iota
	StateConstructorsRun
	StateRegistrationInProgress
	StateRegistrationComplete
	StateAppRunning
	StateShuttingDown
	StateShutdownComplete
)

var stateNames = [...]string{
	StateUninitialized:          "Uninitialized",
	StateConstructorsRun:        "ConstructorsRun",
	StateRegistrationInProgress: "RegistrationInProgress",
	StateRegistrationComplete:   "RegistrationComplete",
	StateAppRunning:             "AppRunning",
	StateShuttingDown:           "ShuttingDown",
	StateShutdownComplete:       "ShutdownComplete",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// transitions is the only authority on which moves are legal. Staying in the
// same state is always allowed and is a no-op.
var transitions = map[State][]State{
	StateUninitialized:          {StateConstructorsRun},
	StateConstructorsRun:        {StateRegistrationInProgress},
	StateRegistrationInProgress: {StateRegistrationComplete},
	StateRegistrationComplete:   {StateAppRunning, StateShuttingDown},
	StateAppRunning:             {StateShuttingDown},
	StateShuttingDown:           {StateShutdownComplete},
	StateShutdownComplete:       {},
}

// CanTransition reports whether the table permits moving from one state to another.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine holds the current State and enforces the transition table.
// The zero value starts in StateUninitialized.
type Machine struct {
	mu    sync.Mutex
	state State
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reached reports whether the machine is at or past s.
func (m *Machine) Reached(s State) bool {
	return m.Current() >= s
}

// Check reports, without moving, whether a transition to the given state
// would be accepted from the current one.
func (m *Machine) Check(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	return nil
}

// Transition moves the machine to the given state. It returns the previous
// state and ErrInvalidTransition if the move is not in the table.
func (m *Machine) Transition(to State) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = to
	return from, nil
}
