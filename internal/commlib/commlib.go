// Package commlib stands in for the communication library a module stack
// wraps. Its Init is the library's initialization entry point, so it fires
// the fallback trigger the way an interposed init call would.
package commlib

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/interpose"
)

// Static errors for commlib package
var (
	ErrAlreadyInitialized = errors.New("commlib: already initialized")
	ErrNotInitialized     = errors.New("commlib: not initialized")
	ErrFinalized          = errors.New("commlib: already finalized")
)

// Trigger fires the fallback trigger of a runtime.
type Trigger interface {
	Fallback(ctx context.Context) error
}

type defaultTrigger struct{}

func (defaultTrigger) Fallback(ctx context.Context) error {
	return interpose.Fallback(ctx)
}

// Library is one instance of the communication library.
type Library struct {
	mu          sync.Mutex
	trigger     Trigger
	rank        interpose.RankSource
	initialized bool
	finalized   bool
	myRank      int
}

// New returns a library that fires the fallback trigger of the default
// runtime and reads its rank from the environment.
func New() *Library {
	return NewWithTrigger(defaultTrigger{}, interpose.EnvRank)
}

// NewWithTrigger returns a library bound to trigger. A nil rank source
// reports rank 0.
func NewWithTrigger(trigger Trigger, rank interpose.RankSource) *Library {
	if rank == nil {
		rank = func() (int, bool) { return 0, false }
	}
	return &Library{trigger: trigger, rank: rank}
}

// Init initializes the library. It may be called once.
func (l *Library) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.finalized:
		return ErrFinalized
	case l.initialized:
		return ErrAlreadyInitialized
	}

	// Modules must be set up before the library hands out any state.
	if err := l.trigger.Fallback(ctx); err != nil {
		return fmt.Errorf("commlib: module stack initialization failed: %w", err)
	}

	if rank, ok := l.rank(); ok {
		l.myRank = rank
	}
	l.initialized = true
	return nil
}

// Rank returns the rank of this process.
func (l *Library) Rank() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.initialized || l.finalized {
		return 0, ErrNotInitialized
	}
	return l.myRank, nil
}

// Finalize shuts the library down. AppShutdown hooks are not run here; they
// belong to the end of the application.
func (l *Library) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.finalized:
		return ErrFinalized
	case !l.initialized:
		return ErrNotInitialized
	}
	l.finalized = true
	return nil
}
