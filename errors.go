package interpose

import (
	"errors"
)

// Service query errors. They are returned to the calling module and never
// terminate the process.
var (
	ErrModuleNotFound           = errors.New("module not found")
	ErrArgumentNotFound         = errors.New("argument not found")
	ErrModuleContextUnavailable = errors.New("module context unavailable")
)

// Runtime errors
var (
	// ErrUnsupportedHook is the configuration error reported when modules
	// export AppStartup or AppShutdown but only the fallback trigger ran.
	ErrUnsupportedHook = errors.New("module requires hooks this environment cannot honor")

	ErrArgvUnavailable  = errors.New("could not recover process arguments")
	ErrUnknownTrigger   = errors.New("unknown initialization trigger")
	ErrUnknownPhase     = errors.New("unknown lifecycle phase")
	ErrNoDefaultRuntime = errors.New("no default runtime configured")
	ErrRuntimeNil       = errors.New("runtime is nil")
)

// Stack construction errors
var (
	ErrModuleNil            = errors.New("module is nil")
	ErrModuleFactoryMissing = errors.New("no module registered under configured name")
	ErrInvalidHookSymbol    = errors.New("hook symbol has an unsupported type")
	ErrHookFailed           = errors.New("hook failed")
)

// Strerror returns the short message for a service query error, or the
// error's own message for anything else.
func Strerror(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrModuleNotFound):
		return "Module not found"
	case errors.Is(err, ErrArgumentNotFound):
		return "Argument not found"
	case errors.Is(err, ErrModuleContextUnavailable):
		return "Module context unavailable"
	}
	return err.Error()
}
