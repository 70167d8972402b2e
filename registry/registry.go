// Package registry provides name-keyed registration of module factories.
//
// Module implementations register a factory under the name a stack
// configuration uses for them, usually from an init function:
//
//	func init() {
//		interpose.RegisterModule("tracer", func() interpose.Module { return &Tracer{} })
//	}
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Static errors for registry package
var (
	ErrEmptyName         = errors.New("registration name is empty")
	ErrNilFactory        = errors.New("factory is nil")
	ErrAlreadyRegistered = errors.New("name already registered")
	ErrNotRegistered     = errors.New("name not registered")
)

// Registry maps names to values of type F. It is safe for concurrent use.
type Registry[F any] struct {
	mu      sync.RWMutex
	entries map[string]F
}

// New creates an empty registry.
func New[F any]() *Registry[F] {
	return &Registry[F]{entries: make(map[string]F)}
}

// Register adds f under name. Names are unique.
func (r *Registry[F]) Register(name string, f F) error {
	if name == "" {
		return ErrEmptyName
	}
	if isNil(f) {
		return fmt.Errorf("%w: %s", ErrNilFactory, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.entries[name] = f
	return nil
}

// MustRegister is like Register but panics on error. It is meant for init
// functions, where a duplicate name is a programming error.
func (r *Registry[F]) MustRegister(name string, f F) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Lookup returns the value registered under name.
func (r *Registry[F]) Lookup(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.entries[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return f, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry[F]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
