package eventbus

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// Handler receives one published event.
type Handler func(ctx context.Context, event any) error

// EventBus routes events to subscribers by their Go type.
type EventBus interface {
	Publish(ctx context.Context, event any) error
	Subscribe(eventType reflect.Type, handler Handler)
}

var (
	// ErrNilEvent is returned when a nil event or nil pointer is published.
	ErrNilEvent = errors.New("eventbus: nil event")
	// ErrNilBus is returned when publishing on a topic without a bus.
	ErrNilBus = errors.New("eventbus: nil bus")
	// ErrEventTypeMismatch is returned when a typed handler receives another type.
	ErrEventTypeMismatch = errors.New("eventbus: event type mismatch")
)

// InMemoryBus delivers events synchronously on the publishing goroutine.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]Handler
}

// NewInMemoryBus constructs an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[reflect.Type][]Handler)}
}

// Publish runs every handler subscribed to the event's type, in subscription
// order. Pointer events are routed by their element type. Handler errors do
// not stop delivery; they are joined into the returned error.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	key := typeKey(event)
	if key == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[key]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers handler for events of eventType.
func (b *InMemoryBus) Subscribe(eventType reflect.Type, handler Handler) {
	if eventType == nil || handler == nil {
		return
	}
	for eventType.Kind() == reflect.Pointer {
		eventType = eventType.Elem()
	}

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
}

// Topic is the typed publish/subscribe view of a bus for one event type.
type Topic[T any] struct {
	bus EventBus
}

// NewTopic binds T to bus.
func NewTopic[T any](bus EventBus) Topic[T] {
	return Topic[T]{bus: bus}
}

// Publish sends event to the subscribers of T.
func (t Topic[T]) Publish(ctx context.Context, event T) error {
	if t.bus == nil {
		return ErrNilBus
	}
	return t.bus.Publish(ctx, event)
}

// Subscribe registers handler for T. Events published as *T are dereferenced.
func (t Topic[T]) Subscribe(handler func(ctx context.Context, event T) error) {
	if t.bus == nil || handler == nil {
		return
	}
	t.bus.Subscribe(reflect.TypeFor[T](), func(ctx context.Context, event any) error {
		switch typed := event.(type) {
		case T:
			return handler(ctx, typed)
		case *T:
			return handler(ctx, *typed)
		default:
			return ErrEventTypeMismatch
		}
	})
}

// SubscribeTyped is shorthand for NewTopic[T](bus).Subscribe(handler).
func SubscribeTyped[T any](bus EventBus, handler func(ctx context.Context, event T) error) {
	NewTopic[T](bus).Subscribe(handler)
}

func typeKey(event any) reflect.Type {
	if event == nil {
		return nil
	}
	v := reflect.ValueOf(event)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Type()
}
