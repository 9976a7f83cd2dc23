package loom

import "golang.org/x/net/html"

// Event is a DOM event travelling through the three browser phases:
// capture, at-target, bubbling.
type Event struct {
	typ           string
	target        *html.Node
	currentTarget *html.Node
	data          any

	phase            int
	bubbles          bool
	stopped          bool
	defaultPrevented bool
}

func NewEvent(typ string, bubbles bool, target *html.Node, data any) *Event {
	return &Event{typ: typ, target: target, currentTarget: target, bubbles: bubbles, data: data}
}

func (e *Event) Type() string              { return e.typ }
func (e *Event) Target() *html.Node        { return e.target }
func (e *Event) CurrentTarget() *html.Node { return e.currentTarget }
func (e *Event) Data() any                 { return e.data }
func (e *Event) Phase() int                { return e.phase }
func (e *Event) Bubbles() bool             { return e.bubbles }
func (e *Event) Stopped() bool             { return e.stopped }
func (e *Event) DefaultPrevented() bool    { return e.defaultPrevented }

func (e *Event) PreventDefault()  { e.defaultPrevented = true }
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation stops delivery within the current handler list
// as well; the phase is reset to 0.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.phase = 0
}

// EventHandler wraps a callback for a named event. Returning true from Fn
// marks handling as finished and stops dispatch.
type EventHandler struct {
	Fn      func(*Event) bool
	Capture bool // run during the capture phase instead of bubbling
	Once    bool // removed after its first invocation
}

func NewEventHandler(fn func(*Event) bool) *EventHandler {
	return &EventHandler{Fn: fn}
}

func (h *EventHandler) ForCapture() *EventHandler {
	h.Capture = true
	return h
}

func (h *EventHandler) TriggerOnce() *EventHandler {
	h.Once = true
	return h
}

type eventHandlers struct {
	list []*EventHandler
}

func (e *eventHandlers) add(h *EventHandler) {
	e.list = append(e.list, h)
}

func (e *eventHandlers) remove(h *EventHandler) {
	index := -1
	for k, v := range e.list {
		if v != h {
			continue
		}
		index = k
		break
	}
	if index >= 0 {
		e.list = append(e.list[:index], e.list[index+1:]...)
	}
}

// Dispatcher routes events to listeners registered per DOM node. Listener
// state lives here, owned by the application scope, never in shared
// document state.
type Dispatcher struct {
	listeners map[*html.Node]map[string]*eventHandlers
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[*html.Node]map[string]*eventHandlers)}
}

func (d *Dispatcher) AddEventListener(n *html.Node, typ string, h *EventHandler) {
	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string]*eventHandlers)
		d.listeners[n] = byType
	}
	hs, ok := byType[typ]
	if !ok {
		hs = &eventHandlers{}
		byType[typ] = hs
	}
	hs.add(h)
}

func (d *Dispatcher) RemoveEventListener(n *html.Node, typ string, h *EventHandler) {
	byType, ok := d.listeners[n]
	if !ok {
		return
	}
	if hs, ok := byType[typ]; ok {
		hs.remove(h)
	}
}

// DropNode discards every listener registered on n. Called when a node
// leaves the document for good, so the listener table does not outlive it.
func (d *Dispatcher) DropNode(n *html.Node) {
	delete(d.listeners, n)
}

// Fire dispatches a bubbling event of the given type at n.
func (d *Dispatcher) Fire(n *html.Node, typ string, data any) *Event {
	evt := NewEvent(typ, true, n, data)
	d.Dispatch(evt)
	return evt
}

// Dispatch propagates evt following the browser DOM model: capture phase
// down the ancestor chain, at-target, then bubbling up if allowed.
func (d *Dispatcher) Dispatch(evt *Event) {
	var path []*html.Node
	for p := evt.target.Parent; p != nil; p = p.Parent {
		path = append([]*html.Node{p}, path...)
	}

	evt.phase = 1
	for _, ancestor := range path {
		if d.handle(ancestor, evt) || evt.stopped {
			return
		}
	}

	evt.phase = 2
	if d.handle(evt.target, evt) {
		return
	}

	if !evt.bubbles || evt.stopped {
		return
	}
	evt.phase = 3
	for k := len(path) - 1; k >= 0; k-- {
		if d.handle(path[k], evt) || evt.stopped {
			return
		}
	}
}

func (d *Dispatcher) handle(n *html.Node, evt *Event) bool {
	byType, ok := d.listeners[n]
	if !ok {
		return false
	}
	hs, ok := byType[evt.typ]
	if !ok {
		return false
	}
	evt.currentTarget = n
	// iterate over a snapshot so Once removal does not skip handlers
	for _, h := range append([]*EventHandler(nil), hs.list...) {
		switch evt.phase {
		case 1:
			if !h.Capture {
				continue
			}
		case 3:
			if h.Capture {
				continue
			}
		}
		done := h.Fn(evt)
		if h.Once {
			hs.remove(h)
		}
		if done {
			return true
		}
		if evt.stopped && evt.phase == 0 {
			return true
		}
	}
	return false
}
