package interpose

import (
	"fmt"
	"slices"

	"github.com/GoCodeAlone/interpose/config"
	"github.com/GoCodeAlone/interpose/lifecycle"
	"github.com/GoCodeAlone/interpose/registry"
)

// Argument is one configured key/value pair of a module.
type Argument struct {
	Key   string
	Value string
}

// ModuleDescriptor is a snapshot of one entry in the stack. Descriptors
// returned by Stack are copies; changing them does not affect the stack.
type ModuleDescriptor struct {
	ID        int
	Name      string
	Arguments []Argument
	Pcontrol  bool
	Hooks     HookSet
}

// StackEntry describes a module to place in a stack.
type StackEntry struct {
	Module Module
	// Name overrides Module.Name() when set.
	Name      string
	Arguments []Argument
	// Pcontrol defaults to enabled when unset.
	Pcontrol config.Switch
}

// Stack is the ordered, immutable list of modules. Ids are the positions
// 0..Len()-1 and never change.
type Stack struct {
	descriptors []ModuleDescriptor
	modules     []Module
}

// NewStack builds a stack from entries in order. Arguments are copied.
func NewStack(entries ...StackEntry) (*Stack, error) {
	s := &Stack{
		descriptors: make([]ModuleDescriptor, 0, len(entries)),
		modules:     make([]Module, 0, len(entries)),
	}
	for i, entry := range entries {
		if entry.Module == nil {
			return nil, fmt.Errorf("%w: stack entry %d", ErrModuleNil, i)
		}
		name := entry.Name
		if name == "" {
			name = entry.Module.Name()
		}
		s.descriptors = append(s.descriptors, ModuleDescriptor{
			ID:        i,
			Name:      name,
			Arguments: slices.Clone(entry.Arguments),
			Pcontrol:  entry.Pcontrol.Enabled(),
			Hooks:     exportedHooks(entry.Module),
		})
		s.modules = append(s.modules, entry.Module)
	}
	return s, nil
}

// Factory creates a fresh instance of a registered module.
type Factory func() Module

var defaultModules = registry.New[Factory]()

// RegisterModule makes a module available to stack files under name. It is
// meant to be called from an init function and panics on duplicate names.
func RegisterModule(name string, factory Factory) {
	defaultModules.MustRegister(name, factory)
}

// RegisteredModules returns the names known to the default module registry.
func RegisteredModules() []string {
	return defaultModules.Names()
}

// BuildStack instantiates the configured modules through factories, or
// through the modules registered with RegisterModule when factories is nil.
func BuildStack(cfg *config.Stack, factories *registry.Registry[Factory]) (*Stack, error) {
	if factories == nil {
		factories = defaultModules
	}
	if cfg == nil {
		return NewStack()
	}

	entries := make([]StackEntry, 0, len(cfg.Modules))
	for i, m := range cfg.Modules {
		factory, err := factories.Lookup(m.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: module %d (%s): %w", ErrModuleFactoryMissing, i, m.Name, err)
		}
		module := factory()
		if module == nil {
			return nil, fmt.Errorf("%w: factory for %s returned nil", ErrModuleNil, m.Name)
		}

		args := make([]Argument, len(m.Arguments))
		for j, a := range m.Arguments {
			args[j] = Argument{Key: a.Key, Value: a.Value}
		}
		entries = append(entries, StackEntry{
			Module:    module,
			Name:      m.Name,
			Arguments: args,
			Pcontrol:  m.Pcontrol,
		})
	}
	return NewStack(entries...)
}

// Len returns the number of modules.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.descriptors)
}

// Descriptor returns a copy of the descriptor for id.
func (s *Stack) Descriptor(id int) (ModuleDescriptor, error) {
	if !s.valid(id) {
		return ModuleDescriptor{}, fmt.Errorf("%w: %d", ErrModuleNotFound, id)
	}
	d := s.descriptors[id]
	d.Arguments = slices.Clone(d.Arguments)
	return d, nil
}

// Name returns the configured name of module id, or "" if there is none.
func (s *Stack) Name(id int) string {
	if !s.valid(id) {
		return ""
	}
	return s.descriptors[id].Name
}

// Hooks returns the hooks module id exports.
func (s *Stack) Hooks(id int) (HookSet, error) {
	if !s.valid(id) {
		return 0, fmt.Errorf("%w: %d", ErrModuleNotFound, id)
	}
	return s.descriptors[id].Hooks, nil
}

// HookActivated reports whether any module exports the hook for p.
func (s *Stack) HookActivated(p lifecycle.Phase) bool {
	for _, d := range s.descriptors {
		if d.Hooks.Has(p) {
			return true
		}
	}
	return false
}

// Participants returns the ids of modules exporting the hook for p, in the
// order the phase visits them.
func (s *Stack) Participants(p lifecycle.Phase) []int {
	ids := make([]int, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		if d.Hooks.Has(p) {
			ids = append(ids, d.ID)
		}
	}
	if p.Descending() {
		slices.Reverse(ids)
	}
	return ids
}

func (s *Stack) valid(id int) bool {
	return s != nil && id >= 0 && id < len(s.descriptors)
}

func (s *Stack) module(id int) Module {
	return s.modules[id]
}
