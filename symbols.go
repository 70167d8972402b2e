package interpose

import (
	"fmt"

	"github.com/GoCodeAlone/interpose/argv"
	"github.com/GoCodeAlone/interpose/lifecycle"
)

// SymbolTable resolves exported symbols of a loaded module by name.
type SymbolTable interface {
	Lookup(symbol string) (any, error)
}

// SymbolMap is a SymbolTable backed by a map.
type SymbolMap map[string]any

// Lookup returns the symbol or an error if it is not defined.
func (m SymbolMap) Lookup(symbol string) (any, error) {
	v, ok := m[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return v, nil
}

type hookFunc func(hc *HookContext, args argv.Argv) error

// SymbolModule is a module whose hooks are found by looking up symbols named
// after the lifecycle phases. A symbol that does not resolve means the
// module does not define that hook.
//
// Hook symbols may have any of these types:
//
//	func()
//	func(*HookContext)
//	func(*HookContext) error
//
// AppStartup may additionally take the argument vector:
//
//	func(argv.Argv)
//	func(*HookContext, argv.Argv) error
type SymbolModule struct {
	name  string
	hooks map[lifecycle.Phase]hookFunc
}

// NewSymbolModule resolves the hook symbols of table once and returns the
// module. A resolved symbol of an unsupported type is an error.
func NewSymbolModule(name string, table SymbolTable) (*SymbolModule, error) {
	m := &SymbolModule{name: name, hooks: make(map[lifecycle.Phase]hookFunc)}
	for _, phase := range lifecycle.Phases() {
		sym, err := table.Lookup(string(phase))
		if err != nil || sym == nil {
			continue
		}
		fn, ok := adaptHookSymbol(phase, sym)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s is %T", ErrInvalidHookSymbol, name, phase, sym)
		}
		m.hooks[phase] = fn
	}
	return m, nil
}

func adaptHookSymbol(phase lifecycle.Phase, sym any) (hookFunc, bool) {
	switch fn := sym.(type) {
	case func():
		return func(*HookContext, argv.Argv) error { fn(); return nil }, true
	case func(*HookContext):
		return func(hc *HookContext, _ argv.Argv) error { fn(hc); return nil }, true
	case func(*HookContext) error:
		return func(hc *HookContext, _ argv.Argv) error { return fn(hc) }, true
	}

	if phase != lifecycle.PhaseAppStartup {
		return nil, false
	}
	switch fn := sym.(type) {
	case func(argv.Argv):
		return func(_ *HookContext, args argv.Argv) error { fn(args); return nil }, true
	case func(*HookContext, argv.Argv) error:
		return fn, true
	}
	return nil, false
}

// Name returns the module name.
func (m *SymbolModule) Name() string { return m.name }

// ExportedHooks returns the phases whose symbols resolved.
func (m *SymbolModule) ExportedHooks() HookSet {
	var s HookSet
	for phase := range m.hooks {
		s |= phaseBit(phase)
	}
	return s
}

func (m *SymbolModule) call(phase lifecycle.Phase, hc *HookContext, args argv.Argv) error {
	if fn, ok := m.hooks[phase]; ok {
		return fn(hc, args)
	}
	return nil
}

func (m *SymbolModule) PreInit(hc *HookContext) error {
	return m.call(lifecycle.PhasePreInit, hc, argv.Argv{})
}

func (m *SymbolModule) RegistrationPoint(hc *HookContext) error {
	return m.call(lifecycle.PhaseRegistrationPoint, hc, argv.Argv{})
}

func (m *SymbolModule) RegistrationComplete(hc *HookContext) error {
	return m.call(lifecycle.PhaseRegistrationComplete, hc, argv.Argv{})
}

func (m *SymbolModule) AppStartup(hc *HookContext, args argv.Argv) error {
	return m.call(lifecycle.PhaseAppStartup, hc, args)
}

func (m *SymbolModule) AppShutdown(hc *HookContext) error {
	return m.call(lifecycle.PhaseAppShutdown, hc, argv.Argv{})
}
