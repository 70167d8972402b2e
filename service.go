package interpose

import (
	"fmt"
	"reflect"

	"github.com/golobby/cast"
)

// ServiceQuery is the read-only view of the stack offered to modules.
// Any module may query any id, including its siblings.
type ServiceQuery interface {
	// GetModuleSelf returns the id of the module executing the hook that
	// received hc. It fails with ErrModuleContextUnavailable outside a
	// RegistrationPoint call.
	GetModuleSelf(hc *HookContext) (int, error)

	// GetArgument returns the value of the first argument of module id
	// whose key equals key, in configured order.
	GetArgument(id int, key string) (string, error)

	// GetPcontrol returns the configured activation flag of module id.
	GetPcontrol(id int) (bool, error)
}

var _ ServiceQuery = (*Stack)(nil)

// GetModuleSelf implements ServiceQuery.
func (s *Stack) GetModuleSelf(hc *HookContext) (int, error) {
	if hc == nil || hc.released || hc.stack != s || hc.module == NoModule {
		return NoModule, ErrModuleContextUnavailable
	}
	return hc.module, nil
}

// GetArgument implements ServiceQuery.
func (s *Stack) GetArgument(id int, key string) (string, error) {
	if !s.valid(id) {
		return "", fmt.Errorf("%w: %d", ErrModuleNotFound, id)
	}
	for _, arg := range s.descriptors[id].Arguments {
		if arg.Key == key {
			return arg.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s of module %d", ErrArgumentNotFound, key, id)
}

// GetPcontrol implements ServiceQuery.
func (s *Stack) GetPcontrol(id int) (bool, error) {
	if !s.valid(id) {
		return false, fmt.Errorf("%w: %d", ErrModuleNotFound, id)
	}
	return s.descriptors[id].Pcontrol, nil
}

// ArgumentAs looks up an argument and converts it to T.
//
//	depth, err := interpose.ArgumentAs[int](hc.Stack(), self, "depth")
func ArgumentAs[T any](q ServiceQuery, id int, key string) (T, error) {
	var zero T
	value, err := q.GetArgument(id, key)
	if err != nil {
		return zero, err
	}

	target := reflect.TypeOf(zero)
	converted, err := cast.FromType(value, target)
	if err != nil {
		return zero, fmt.Errorf("argument %s of module %d: cannot convert %q to %v: %w", key, id, value, target, err)
	}
	return reflect.ValueOf(converted).Convert(target).Interface().(T), nil
}
