package event_bus

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type EventType string

// Event is what Publish hands to every subscriber. Data holds one of the payload
// structs from events.go.
type Event struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      any
}

func NewEvent(ctx context.Context, eventType EventType, data any) Event {
	return NewEventAt(ctx, eventType, data, time.Now())
}

// NewEventAt stamps the event with at instead of the wall clock.
func NewEventAt(ctx context.Context, eventType EventType, data any, at time.Time) Event {
	return Event{ctx: ctx, Type: eventType, Timestamp: at, Data: data}
}

func (e Event) Context() context.Context {
	return orBackground(e.ctx)
}

// EventT carries a payload already asserted to T.
type EventT[T any] struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      T
}

func (e EventT[T]) Context() context.Context {
	return orBackground(e.ctx)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type listener struct {
	seq    uint64
	handle func(Event) error
}

// EventBus delivers events synchronously. Listeners of a type are kept in
// registration order and Publish calls them one after another.
type EventBus struct {
	mu        sync.RWMutex
	listeners map[EventType][]listener
	seq       uint64
}

func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[EventType][]listener)}
}

// Subscribe adds h for eventType. Calling the returned func removes it again.
func (eb *EventBus) Subscribe(eventType EventType, h func(Event) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.seq++
	seq := eb.seq
	eb.listeners[eventType] = append(eb.listeners[eventType], listener{seq: seq, handle: h})
	eb.mu.Unlock()

	return func() { eb.remove(eventType, seq) }
}

func (eb *EventBus) remove(eventType EventType, seq uint64) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	remaining := slices.DeleteFunc(eb.listeners[eventType], func(l listener) bool { return l.seq == seq })
	if len(remaining) == 0 {
		delete(eb.listeners, eventType)
		return
	}
	eb.listeners[eventType] = remaining
}

// SubscribeTyped is Subscribe for handlers that only care about payloads of type T.
// A nil payload or one of a different type never reaches h.
//
//	event_bus.SubscribeTyped(bus, event_bus.DataClearedType,
//	    func(e event_bus.EventT[event_bus.DataCleared]) error {
//	        log.Infof("%d entries removed", e.Data.EntriesRemoved)
//	        return nil
//	    })
func SubscribeTyped[T any](eb *EventBus, eventType EventType, h func(EventT[T]) error) (unsubscribe func()) {
	return eb.Subscribe(eventType, func(e Event) error {
		payload, ok := e.Data.(T)
		if !ok {
			log.Debugf("event %s: payload %T does not match %T, skipped", eventType, e.Data, *new(T))
			return nil
		}
		return h(EventT[T]{ctx: e.ctx, Type: e.Type, Timestamp: e.Timestamp, Data: payload})
	})
}

// Publish delivers e to the listeners of its type. Every listener runs even when an
// earlier one fails or panics; the failures come back joined. Delivery stops once
// the event's context is done.
func (eb *EventBus) Publish(e Event) error {
	ctx := e.Context()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("event %s not published: %w", e.Type, err)
	}

	eb.mu.RLock()
	targets := slices.Clone(eb.listeners[e.Type])
	eb.mu.RUnlock()

	var failures []error
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			failures = append(failures, fmt.Errorf("delivery interrupted: %w", err))
			break
		}
		if err := deliver(target, e); err != nil {
			log.Errorf("event %s: listener %d failed: %v", e.Type, target.seq, err)
			failures = append(failures, err)
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("event %s: %d listener(s) failed: %w", e.Type, len(failures), errors.Join(failures...))
}

func deliver(target listener, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %d panicked on %s: %v", target.seq, e.Type, r)
		}
	}()
	return target.handle(e)
}
