package interpose

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Observer is notified of runtime events. Events use the CloudEvents format.
type Observer interface {
	// OnEvent is called synchronously from the dispatching goroutine.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Subject is implemented by the runtime.
type Subject interface {
	// RegisterObserver adds an observer. With no eventTypes it receives
	// every event.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. It is idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers delivers event to interested observers in
	// registration order.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers describes the registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by the runtime.
const (
	EventTypePhaseStarted   = "com.interpose.phase.started"
	EventTypePhaseCompleted = "com.interpose.phase.completed"
	EventTypeStateChanged   = "com.interpose.state.changed"
	EventTypeHookFailed     = "com.interpose.hook.failed"
	EventTypeConfigError    = "com.interpose.config.error"
)

// eventSource is the CloudEvents source attribute of runtime events.
const eventSource = "interpose/runtime"

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that calls handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

// OnEvent implements Observer.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements Observer.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

// NewCloudEvent creates an event with a time-ordered id.
func NewCloudEvent(eventType, source string, data any, extensions map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	for key, value := range extensions {
		event.SetExtension(key, value)
	}
	return event
}

// generateEventID returns a UUIDv7, falling back to v4.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// observerSet keeps observers in registration order.
type observerSet struct {
	mu      sync.RWMutex
	entries []*observerRegistration
	logger  Logger
}

func (o *observerSet) register(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return fmt.Errorf("%w: observer", ErrModuleNil)
	}
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries = slices.DeleteFunc(o.entries, func(r *observerRegistration) bool {
		return r.observer.ObserverID() == observer.ObserverID()
	})
	o.entries = append(o.entries, &observerRegistration{
		observer:     observer,
		eventTypes:   types,
		registeredAt: time.Now(),
	})
	o.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

func (o *observerSet) unregister(observer Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries = slices.DeleteFunc(o.entries, func(r *observerRegistration) bool {
		return r.observer.ObserverID() == observer.ObserverID()
	})
}

func (o *observerSet) notify(ctx context.Context, event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid CloudEvent: %w", err)
	}

	o.mu.RLock()
	entries := slices.Clone(o.entries)
	o.mu.RUnlock()

	for _, r := range entries {
		if len(r.eventTypes) > 0 && !r.eventTypes[event.Type()] {
			continue
		}
		if err := r.observer.OnEvent(ctx, event); err != nil {
			o.logger.Error("Observer error", "observerID", r.observer.ObserverID(), "event", event.Type(), "error", err)
		}
	}
	return nil
}

func (o *observerSet) info() []ObserverInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()

	info := make([]ObserverInfo, 0, len(o.entries))
	for _, r := range o.entries {
		types := make([]string, 0, len(r.eventTypes))
		for t := range r.eventTypes {
			types = append(types, t)
		}
		slices.Sort(types)
		info = append(info, ObserverInfo{ID: r.observer.ObserverID(), EventTypes: types, RegisteredAt: r.registeredAt})
	}
	return info
}
