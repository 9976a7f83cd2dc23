package loom

// ArrayAdd is the event delivered when an item enters an ObservableArray.
type ArrayAdd[T any] struct {
	Item     T
	Position int
}

// ArrayRemove is the event delivered when an item leaves an ObservableArray.
type ArrayRemove struct {
	Position int
}

// ObservableArray is an indexed, mutable sequence emitting add/removed
// events with position metadata. One event is delivered synchronously per
// logical mutation, in mutation order.
type ObservableArray[T any] struct {
	items   []T
	added   watcherList[ArrayAdd[T]]
	removed watcherList[ArrayRemove]
}

func NewObservableArray[T any](items ...T) *ObservableArray[T] {
	return &ObservableArray[T]{items: append([]T(nil), items...)}
}

func (a *ObservableArray[T]) Len() int {
	return len(a.items)
}

func (a *ObservableArray[T]) At(i int) T {
	return a.items[i]
}

// Add appends v and notifies add watchers.
func (a *ObservableArray[T]) Add(v T) {
	a.Insert(len(a.items), v)
}

// Insert places v at position i, shifting later items up. It panics if i is
// out of [0, Len()], matching slice index semantics.
func (a *ObservableArray[T]) Insert(i int, v T) {
	a.items = splice(a.items, i, v)
	a.added.notify(ArrayAdd[T]{Item: v, Position: i})
}

// RemoveAt removes and returns the item at position i, shifting later items
// down.
func (a *ObservableArray[T]) RemoveAt(i int) T {
	v := a.items[i]
	a.items = spliceOut(a.items, i)
	a.removed.notify(ArrayRemove{Position: i})
	return v
}

// WatchAdd subscribes fn to item-added events.
func (a *ObservableArray[T]) WatchAdd(fn func(ArrayAdd[T])) (cancel func()) {
	return watchList(&a.added, fn)
}

// WatchRemove subscribes fn to item-removed events.
func (a *ObservableArray[T]) WatchRemove(fn func(ArrayRemove)) (cancel func()) {
	return watchList(&a.removed, fn)
}

func watchList[T any](l *watcherList[T], fn func(T)) (cancel func()) {
	w := &watcher[T]{fn}
	l.add(w)
	released := false
	return func() {
		if released {
			return
		}
		released = true
		l.remove(w)
	}
}

// ListSource is the observable-list capability a Repeater binds to.
type ListSource interface {
	Len() int
	Item(i int) any
	WatchAdd(fn func(item any, position int)) (cancel func())
	WatchRemove(fn func(position int)) (cancel func())
}

type listSource[T any] struct {
	a *ObservableArray[T]
}

func (s listSource[T]) Len() int         { return s.a.Len() }
func (s listSource[T]) Item(i int) any   { return s.a.At(i) }

func (s listSource[T]) WatchAdd(fn func(item any, position int)) (cancel func()) {
	return s.a.WatchAdd(func(evt ArrayAdd[T]) { fn(evt.Item, evt.Position) })
}

func (s listSource[T]) WatchRemove(fn func(position int)) (cancel func()) {
	return s.a.WatchRemove(func(evt ArrayRemove) { fn(evt.Position) })
}

// AsListSource exposes a through the untyped ListSource capability, for use
// as a repeater data context value.
func AsListSource[T any](a *ObservableArray[T]) ListSource {
	return listSource[T]{a}
}

// splice inserts v at index i, shifting the tail up by one.
func splice[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// spliceOut removes the element at index i, shifting the tail down by one.
func spliceOut[T any](s []T, i int) []T {
	return append(s[:i], s[i+1:]...)
}
