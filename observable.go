// Package loom is a library for declarative data-binding of observable
// values against DOM templates.
package loom

import "fmt"

// Change describes a value replacement on an Observable.
type Change[T any] struct {
	Old T
	New T
}

// watcher wraps a callback run after a change event occurred.
type watcher[T any] struct {
	fn func(T)
}

// watcherList holds subscribers in registration order. Removal is by
// identity so that two registrations of the same function stay independent.
type watcherList[T any] struct {
	list []*watcher[T]
}

func (l *watcherList[T]) add(w *watcher[T]) {
	l.list = append(l.list, w)
}

func (l *watcherList[T]) remove(w *watcher[T]) {
	index := -1
	for k, v := range l.list {
		if v != w {
			continue
		}
		index = k
		break
	}
	if index >= 0 {
		l.list = append(l.list[:index], l.list[index+1:]...)
	}
}

func (l *watcherList[T]) notify(evt T) {
	// snapshot: watchers registered during notification join the next
	// round; a watcher removed mid-round still receives this round's event
	snapshot := append([]*watcher[T](nil), l.list...)
	for _, w := range snapshot {
		w.fn(evt)
	}
}

// Observable is a single-value container that notifies subscribers
// synchronously on value replacement.
type Observable[T any] struct {
	value    T
	watchers watcherList[Change[T]]
}

func NewObservable[T any](value T) *Observable[T] {
	return &Observable[T]{value: value}
}

// Value returns the current value.
func (o *Observable[T]) Value() T {
	return o.value
}

// Set replaces the value and notifies every watcher in registration order
// before returning.
func (o *Observable[T]) Set(value T) {
	old := o.value
	o.value = value
	o.watchers.notify(Change[T]{Old: old, New: value})
}

// Watch subscribes fn to change events. The returned cancel func releases
// this subscription and nothing else; calling it more than once is a no-op.
func (o *Observable[T]) Watch(fn func(Change[T])) (cancel func()) {
	return watchList(&o.watchers, fn)
}

// DataContext is the data scope against which binding paths are resolved
// for a component or repeater item.
type DataContext = Observable[any]

// Property is the untyped view of an observable consumed by the binding
// engine.
type Property interface {
	// Get returns the current value.
	Get() any
	// Put replaces the value. It fails if v is not assignable to the
	// underlying observable's type.
	Put(v any) error
	// Watch subscribes fn to change events and returns its cancel func.
	Watch(fn func()) (cancel func())
}

// PropertySource is implemented by view-model types that expose named
// observable properties to the binding engine. Names are matched verbatim;
// since HTML attributes are lowercased by the parser, names referenced from
// markup should be lowercase.
type PropertySource interface {
	ObservableProperty(name string) (Property, bool)
}

type property[T any] struct {
	o *Observable[T]
}

func (p property[T]) Get() any { return p.o.Value() }

func (p property[T]) Put(v any) error {
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: cannot hold %T", ErrBadAssignment, v)
	}
	p.o.Set(t)
	return nil
}

func (p property[T]) Watch(fn func()) (cancel func()) {
	return p.o.Watch(func(Change[T]) { fn() })
}

// AsProperty exposes o through the untyped Property capability.
func AsProperty[T any](o *Observable[T]) Property {
	return property[T]{o}
}

// Properties is a ready-made PropertySource for view models assembled at
// runtime rather than declared as struct types.
type Properties map[string]Property

func (p Properties) ObservableProperty(name string) (Property, bool) {
	prop, ok := p[name]
	return prop, ok
}
