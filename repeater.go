package loom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// itemEventSpec is one data-on-<event>="callback" declaration on the
// repeater host, read once and applied to every clone.
type itemEventSpec struct {
	event    string
	callback string
}

// Repeater projects an observable list onto repeated clones of a template,
// keeping three index-aligned parallel sequences in lockstep with the
// backing list: the DOM node group, the binding records and the isolated
// data context of every item. Items render as siblings following the
// repeater host, in list order.
type Repeater struct {
	host     *html.Node
	owner    *Component
	binder   *Binder
	template *html.Node
	events   []itemEventSpec

	list         ListSource
	itemNodes    [][]*html.Node
	itemBindings [][]Binding
	itemContexts []*DataContext

	cancelAdd    func()
	cancelRemove func()
}

// NewRepeater creates a repeater for a host element whose sole relevant
// child is a <template>. A missing or empty template is a fatal
// construction error.
func NewRepeater(host *html.Node, owner *Component) (*Repeater, error) {
	template := templateChild(host)
	if template == nil {
		return nil, fmt.Errorf("%w (host <%s>)", ErrNoTemplate, host.Data)
	}
	if template.FirstChild == nil {
		return nil, fmt.Errorf("%w: template is empty (host <%s>)", ErrNoTemplate, host.Data)
	}
	r := &Repeater{
		host:     host,
		owner:    owner,
		binder:   owner.Binder(),
		template: template,
	}
	for _, a := range host.Attr {
		if strings.HasPrefix(a.Key, EventBindPrefix) {
			r.events = append(r.events, itemEventSpec{
				event:    strings.TrimPrefix(a.Key, EventBindPrefix),
				callback: a.Val,
			})
		}
	}
	return r, nil
}

// Len returns the number of rendered items.
func (r *Repeater) Len() int {
	return len(r.itemNodes)
}

// Context returns the isolated data context of the item at position i.
func (r *Repeater) Context(i int) *DataContext {
	return r.itemContexts[i]
}

// SetDataContext implements Child.
func (r *Repeater) SetDataContext(dc *DataContext) error {
	return r.Bind(dc)
}

// Bind attaches the repeater to the list held by dc. The context value must
// expose the ListSource capability, otherwise binding fails. Rebinding
// first removes every rendered item, its bindings and the previous list
// subscriptions, so no orphaned DOM nodes or live subscriptions survive.
func (r *Repeater) Bind(dc *DataContext) error {
	list, ok := dc.Value().(ListSource)
	if !ok {
		return fmt.Errorf("%w (%T)", ErrNotBindable, dc.Value())
	}
	r.teardown()
	r.list = list

	for i := 0; i < list.Len(); i++ {
		r.insertItem(i, list.Item(i), true)
	}
	// one resolve pass over the item records created above. The binder is
	// shared with the owning component, whose records must not re-enter
	// here: they include the context binding that may have triggered this
	// bind.
	for _, records := range r.itemBindings {
		r.binder.ResolveBindings(records)
	}

	r.cancelAdd = list.WatchAdd(func(item any, position int) {
		r.insertItem(position, item, false)
	})
	r.cancelRemove = list.WatchRemove(func(position int) {
		r.removeItem(position)
	})
	return nil
}

// insertItem builds one item entry: clone the template content, wrap the
// element in a fresh isolated data context, insert the clone's nodes at the
// position's DOM reference, discover bindings, and splice all three
// parallel structures at position within this same synchronous step.
func (r *Repeater) insertItem(position int, item any, deferResolve bool) {
	parent := r.host.Parent
	if parent == nil {
		Logger.Warnf("repeater host <%s> is detached; dropping item at %d", r.host.Data, position)
		return
	}

	// The DOM reference is captured before splicing the new entry in, so
	// an insertion at the current position cannot reference itself.
	var ref *html.Node
	switch {
	case len(r.itemNodes) == 0:
		ref = r.host.NextSibling
	case position < len(r.itemNodes):
		ref = r.itemNodes[position][0]
	default:
		group := r.itemNodes[len(r.itemNodes)-1]
		ref = group[len(group)-1].NextSibling
	}

	var nodes []*html.Node
	for c := r.template.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, CloneNode(c))
	}

	for _, n := range nodes {
		parent.InsertBefore(n, ref)
	}

	ctx := NewObservable[any](item)
	scope := NewDataScope(ctx)
	var records []Binding
	for _, n := range nodes {
		recs, boundaries := r.binder.ProcessBindings(n, scope)
		records = append(records, recs...)
		if len(boundaries) > 0 {
			Logger.Debugf("ignoring %d nested component boundaries inside repeater item", len(boundaries))
		}
	}
	r.attachItemEvents(nodes, ctx)

	r.itemNodes = splice(r.itemNodes, position, nodes)
	r.itemBindings = splice(r.itemBindings, position, records)
	r.itemContexts = splice(r.itemContexts, position, ctx)

	if !deferResolve {
		r.binder.ResolveBindings(records)
	}
}

// removeItem releases the entry's bindings, detaches its DOM nodes and
// splices the entry out of all three parallel structures. Entries beyond
// position shift down with their DOM and bindings untouched.
func (r *Repeater) removeItem(position int) {
	if position < 0 || position >= len(r.itemNodes) {
		Logger.Warnf("repeater: remove at %d outside [0,%d)", position, len(r.itemNodes))
		return
	}
	r.binder.ReleaseBindings(r.itemBindings[position])
	for _, n := range r.itemNodes[position] {
		r.owner.Dispatcher().DropNode(n)
		Detach(n)
	}
	r.itemNodes = spliceOut(r.itemNodes, position)
	r.itemBindings = spliceOut(r.itemBindings, position)
	r.itemContexts = spliceOut(r.itemContexts, position)
}

// attachItemEvents binds each declared item event on the clone's root
// element nodes to the named callback on the owning component, passing the
// item's isolated data context. A missing callback is a diagnostic, not a
// failure.
func (r *Repeater) attachItemEvents(nodes []*html.Node, ctx *DataContext) {
	dispatcher := r.owner.Dispatcher()
	for _, spec := range r.events {
		cb, ok := r.owner.CallbackNamed(spec.callback)
		if !ok {
			Logger.Warnf("component %q has no callback %q; skipping %s binding",
				r.owner.Name(), spec.callback, spec.event)
			continue
		}
		for _, n := range nodes {
			if n.Type != html.ElementNode {
				continue
			}
			dispatcher.AddEventListener(n, spec.event, NewEventHandler(func(evt *Event) bool {
				cb(ctx, evt)
				return false
			}))
		}
	}
}

func (r *Repeater) teardown() {
	if r.cancelAdd != nil {
		r.cancelAdd()
		r.cancelAdd = nil
	}
	if r.cancelRemove != nil {
		r.cancelRemove()
		r.cancelRemove = nil
	}
	for i := len(r.itemNodes) - 1; i >= 0; i-- {
		r.removeItem(i)
	}
	r.list = nil
}

// Release implements Child.
func (r *Repeater) Release() {
	r.teardown()
}
