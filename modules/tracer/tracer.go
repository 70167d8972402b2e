// Package tracer provides a module that reports every lifecycle phase it
// sees. Importing the package registers it under the name "tracer":
//
//	import _ "github.com/GoCodeAlone/interpose/modules/tracer"
//
// Stack file arguments:
//
//	prefix   text printed before each line (default "tracer")
//	verbose  also report PreInit and RegistrationComplete
//
// Arguments are only known from RegistrationPoint on, so the PreInit line is
// written then, ahead of the RegistrationPoint line.
//
// A module whose pcontrol is off stays silent but still takes part in every
// phase.
package tracer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/GoCodeAlone/interpose"
	"github.com/GoCodeAlone/interpose/argv"
)

// Name is the name the module is registered under.
const Name = "tracer"

const defaultPrefix = "tracer"

func init() {
	interpose.RegisterModule(Name, func() interpose.Module { return New(os.Stderr) })
}

// Tracer writes one line per lifecycle hook to its output.
type Tracer struct {
	mu      sync.Mutex
	out     io.Writer
	id      int
	prefix  string
	verbose bool
	enabled bool
	preInit bool
	lines   []string
}

var (
	_ interpose.PreInitHook              = (*Tracer)(nil)
	_ interpose.RegistrationPointHook    = (*Tracer)(nil)
	_ interpose.RegistrationCompleteHook = (*Tracer)(nil)
	_ interpose.AppStartupHook           = (*Tracer)(nil)
	_ interpose.AppShutdownHook          = (*Tracer)(nil)
)

// New creates a tracer writing to out. A nil out only records lines.
func New(out io.Writer) *Tracer {
	return &Tracer{out: out, id: interpose.NoModule, prefix: defaultPrefix, enabled: true}
}

// Name implements interpose.Module.
func (t *Tracer) Name() string {
	return Name
}

// PreInit runs before the module knows its id or arguments.
func (t *Tracer) PreInit(hc *interpose.HookContext) error {
	t.mu.Lock()
	t.preInit = true
	t.mu.Unlock()
	return nil
}

// RegistrationPoint resolves the tracer's id and reads its arguments.
func (t *Tracer) RegistrationPoint(hc *interpose.HookContext) error {
	id, err := hc.Self()
	if err != nil {
		return fmt.Errorf("tracer cannot resolve its id: %w", err)
	}

	q := hc.Stack()
	prefix, err := q.GetArgument(id, "prefix")
	switch {
	case err == nil:
	case errors.Is(err, interpose.ErrArgumentNotFound):
		prefix = defaultPrefix
	default:
		return err
	}

	verbose, err := interpose.ArgumentAs[bool](q, id, "verbose")
	if err != nil && !errors.Is(err, interpose.ErrArgumentNotFound) {
		return err
	}

	enabled, err := q.GetPcontrol(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.id, t.prefix, t.verbose, t.enabled = id, prefix, verbose, enabled
	preInit := t.preInit
	t.mu.Unlock()

	if verbose && preInit {
		t.printf("PreInit")
	}
	t.printf("RegistrationPoint id=%d", id)
	return nil
}

// RegistrationComplete runs once every module has registered.
func (t *Tracer) RegistrationComplete(hc *interpose.HookContext) error {
	if t.verbose {
		t.printf("RegistrationComplete")
	}
	return nil
}

// AppStartup reports the recovered argument vector.
func (t *Tracer) AppStartup(hc *interpose.HookContext, args argv.Argv) error {
	t.printf("AppStartup argc=%d argv=%q", args.Argc(), args.Args())
	return nil
}

// AppShutdown runs when the application finishes.
func (t *Tracer) AppShutdown(hc *interpose.HookContext) error {
	t.printf("AppShutdown")
	return nil
}

// ID returns the id resolved during RegistrationPoint, or NoModule.
func (t *Tracer) ID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Lines returns what the tracer has reported so far.
func (t *Tracer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

func (t *Tracer) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return
	}
	line := t.prefix + ": " + fmt.Sprintf(format, args...)
	t.lines = append(t.lines, line)
	if t.out != nil {
		fmt.Fprintln(t.out, line)
	}
}
