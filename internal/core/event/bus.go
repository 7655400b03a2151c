package event

import (
	"reflect"
	"sync"
)

type queued struct {
	key reflect.Type
	ev  any
}

// Bus delivers node lifecycle and tick events one tick late. Emit appends to
// the back buffer; SwapBuffers at the start of a tick makes those events the
// front buffer, which DispatchAll hands to subscribers in emission order,
// across all event types.
type Bus struct {
	mu       sync.Mutex // handler registration only
	front    []queued
	back     []queued
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]func(any))}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues ev for the next tick.
func Emit[T any](b *Bus, ev T) {
	b.back = append(b.back, queued{key: keyOf[T](), ev: ev})
}

// Subscribe adds fn as a handler of events of type T. Handlers of one type
// run in subscription order.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := keyOf[T]()
	b.handlers[k] = append(b.handlers[k], func(ev any) { fn(ev.(T)) })
}

func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

func (b *Bus) DispatchAll() {
	for _, q := range b.front {
		for _, h := range b.handlers[q.key] {
			h(q.ev)
		}
	}
}

// Pending is the number of events waiting for the next swap.
func (b *Bus) Pending() int { return len(b.back) }
