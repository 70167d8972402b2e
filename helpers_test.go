package interpose

import (
	"fmt"
	"sync"

	"github.com/GoCodeAlone/interpose/argv"
	"github.com/GoCodeAlone/interpose/lifecycle"
)

// testLogger records log entries so tests can assert on diagnostics.
type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (l *testLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *testLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *testLogger) Error(msg string, args ...any) { l.add("error", msg, args) }
func (l *testLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *testLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }

func (l *testLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// callLog is shared by the spies of one stack.
type callLog struct {
	calls []string
}

func (c *callLog) add(phase lifecycle.Phase, name string) {
	c.calls = append(c.calls, fmt.Sprintf("%s:%s", phase, name))
}

func (c *callLog) of(phase lifecycle.Phase) []string {
	var out []string
	prefix := string(phase) + ":"
	for _, call := range c.calls {
		if len(call) > len(prefix) && call[:len(prefix)] == prefix {
			out = append(out, call[len(prefix):])
		}
	}
	return out
}

// spy implements every hook and records each call.
type spy struct {
	name string
	log  *callLog

	failOn      lifecycle.Phase
	selfSeen    []int
	selfErrs    []error
	startupArgs argv.Argv
	onHook      func(phase lifecycle.Phase, hc *HookContext)
}

func (p *spy) Name() string { return p.name }

func (p *spy) hit(phase lifecycle.Phase, hc *HookContext) error {
	p.log.add(phase, p.name)
	self, err := hc.Self()
	p.selfSeen = append(p.selfSeen, self)
	p.selfErrs = append(p.selfErrs, err)
	if p.onHook != nil {
		p.onHook(phase, hc)
	}
	if p.failOn == phase {
		return fmt.Errorf("%s refused %s", p.name, phase)
	}
	return nil
}

func (p *spy) PreInit(hc *HookContext) error { return p.hit(lifecycle.PhasePreInit, hc) }
func (p *spy) RegistrationPoint(hc *HookContext) error {
	return p.hit(lifecycle.PhaseRegistrationPoint, hc)
}
func (p *spy) RegistrationComplete(hc *HookContext) error {
	return p.hit(lifecycle.PhaseRegistrationComplete, hc)
}
func (p *spy) AppStartup(hc *HookContext, args argv.Argv) error {
	p.startupArgs = args
	return p.hit(lifecycle.PhaseAppStartup, hc)
}
func (p *spy) AppShutdown(hc *HookContext) error { return p.hit(lifecycle.PhaseAppShutdown, hc) }

// registrar only defines RegistrationPoint and RegistrationComplete.
type registrar struct {
	name string
	log  *callLog
	self int
	err  error
}

func (r *registrar) Name() string { return r.name }
func (r *registrar) RegistrationPoint(hc *HookContext) error {
	r.log.add(lifecycle.PhaseRegistrationPoint, r.name)
	r.self, r.err = hc.Self()
	return nil
}
func (r *registrar) RegistrationComplete(hc *HookContext) error {
	r.log.add(lifecycle.PhaseRegistrationComplete, r.name)
	return nil
}

// bare defines no hooks.
type bare struct{ name string }

func (b bare) Name() string { return b.name }

func spyStack(n int) (*Stack, []*spy, *callLog) {
	log := &callLog{}
	spies := make([]*spy, n)
	entries := make([]StackEntry, n)
	for i := range spies {
		spies[i] = &spy{name: fmt.Sprintf("m%d", i), log: log}
		entries[i] = StackEntry{Module: spies[i]}
	}
	stack, err := NewStack(entries...)
	if err != nil {
		panic(err)
	}
	return stack, spies, log
}

func fixedArgv(args ...string) argv.Source {
	return func() (argv.Argv, error) { return argv.New(args...), nil }
}

func newTestRuntime(stack *Stack, logger Logger, opts ...Option) *Runtime {
	base := []Option{
		WithLogger(logger),
		WithArgvSource(fixedArgv("prog", "-x", "val")),
		WithExitFunc(func(code int) { panic(fmt.Sprintf("unexpected exit(%d)", code)) }),
	}
	return NewRuntime(stack, append(base, opts...)...)
}
