// Package loom binds observable values to DOM templates and keeps the two
// synchronized incrementally.
//
// The DOM is the *html.Node tree of golang.org/x/net/html. Templates are
// plain HTML fragments whose text content may carry {{path}} placeholder
// tokens; a path names an observable property reachable from the active
// scope, either a property registered on the owning Component or a field of
// its data context.
//
// Two pieces do the work:
//
//   - the Binder discovers placeholder sites under a root node, subscribes
//     to each referenced observable and patches the owning text node in
//     place whenever a value changes. The whole original text is
//     re-evaluated per change, so a node like "{{a}} and {{b}}" re-renders
//     both tokens whichever of the two fires.
//
//   - the Repeater projects an ObservableArray onto repeated clones of a
//     <template> element, applying each add/remove event of the array as an
//     incremental DOM splice. Cloned node groups, binding records and
//     per-item data contexts are held in three index-aligned sequences that
//     mutate together within one synchronous step.
//
// Components declare structure in markup: data-component marks an embedded
// subcomponent boundary, data-bind-<property> pushes a parent path into a
// child property, data-context selects the child's data context, and
// data-on-<event> binds item events on a repeater to named callbacks.
// Callbacks and properties are registered on the component by name; there
// is no reflection.
//
// Everything is single-goroutine and synchronous: observable notification,
// DOM splicing and bookkeeping all run on the caller's goroutine with no
// suspension points. The live subpackage streams applied text patches to
// browsers over websockets.
package loom
