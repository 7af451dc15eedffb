// Package emitter fans events out to listeners registered under typed keys.
//
// A [Key] binds an event name to its payload type, so listeners and emitters
// for the same key always agree on the data they exchange:
//
//	var DidShow = emitter.NewKey[Route]("didShow")
//
//	em := emitter.New()
//	l := emitter.On(em, DidShow, func(r Route) { ... })
//	emitter.Emit(em, DidShow, route)
//	emitter.RemoveListener(em, DidShow, l)
//
// Listeners run synchronously on the emitting goroutine, in the order they
// were added. A slow listener delays every listener after it.
package emitter

import (
	"sync"
	"sync/atomic"

	"github.com/go-drift/navview/pkg/errors"
)

// Key identifies an event and the payload type delivered with it.
// Keys with the same name but different payload types are distinct.
type Key[T any] struct {
	name string
}

// NewKey returns the key for the named event carrying payloads of type T.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the event name.
func (k Key[T]) Name() string {
	return k.name
}

// Listener is a registered callback. Listeners are matched by identity:
// adding the same Listener twice delivers each event to it twice, and
// removing it removes every occurrence.
type Listener[T any] struct {
	fn func(T)
}

// NewListener wraps fn in a Listener handle.
func NewListener[T any](fn func(T)) *Listener[T] {
	return &Listener[T]{fn: fn}
}

// Emitter holds the listeners for any number of keys.
// The zero value is ready to use. An Emitter is safe for concurrent use.
type Emitter struct {
	mu        sync.Mutex
	listeners map[any][]any // Key[T] -> []*Listener[T]
}

// New returns an empty emitter.
func New() *Emitter {
	return &Emitter{}
}

// AddListener appends l to the listeners for key.
func AddListener[T any](e *Emitter, key Key[T], l *Listener[T]) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[any][]any)
	}
	e.listeners[key] = append(e.listeners[key], l)
}

// On registers fn for key and returns its handle.
func On[T any](e *Emitter, key Key[T], fn func(T)) *Listener[T] {
	l := NewListener(fn)
	AddListener(e, key, l)
	return l
}

// Once registers fn to run for at most one emit of key. The returned handle
// removes the listener early if passed to RemoveListener.
func Once[T any](e *Emitter, key Key[T], fn func(T)) *Listener[T] {
	var (
		fired   atomic.Bool
		wrapper *Listener[T]
	)
	wrapper = NewListener(func(data T) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		RemoveListener(e, key, wrapper)
		fn(data)
	})
	AddListener(e, key, wrapper)
	return wrapper
}

// RemoveListener removes every occurrence of l from key.
// Removing from a key without listeners is a no-op.
func RemoveListener[T any](e *Emitter, key Key[T], l *Listener[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.listeners[key]
	if !ok {
		return
	}
	kept := make([]any, 0, len(current))
	for _, x := range current {
		if x != any(l) {
			kept = append(kept, x)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, key)
		return
	}
	e.listeners[key] = kept
}

// Emit calls every listener registered for key with data, in insertion order.
//
// The listener list is captured when Emit starts: listeners added during the
// emit first run on the next one, listeners removed during the emit still run
// this time. A panicking listener is reported and the remaining listeners
// still run.
func Emit[T any](e *Emitter, key Key[T], data T) {
	e.mu.Lock()
	snapshot := append([]any(nil), e.listeners[key]...)
	e.mu.Unlock()

	for _, x := range snapshot {
		invoke(key.name, x.(*Listener[T]), data)
	}
}

func invoke[T any](name string, l *Listener[T], data T) {
	defer errors.Recover("emitter.Emit(" + name + ")")
	l.fn(data)
}

// RemoveAllListeners discards every listener for every key.
func (e *Emitter) RemoveAllListeners() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}

// ListenerCount returns the number of listeners registered under the named
// event, across payload types.
func (e *Emitter) ListenerCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for k, ls := range e.listeners {
		if nk, ok := k.(interface{ Name() string }); ok && nk.Name() == name {
			n += len(ls)
		}
	}
	return n
}
