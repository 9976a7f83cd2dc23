package loom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Child is the contract a mounted subcomponent fulfils towards its owner.
type Child interface {
	// SetDataContext delivers the data-context-changed notification.
	SetDataContext(dc *DataContext) error
	// Release tears down every binding and subscription exactly once.
	Release()
}

// Constructor builds the child for a boundary element. owner is the
// enclosing component, or nil at the tree root.
type Constructor func(host *html.Node, owner *Component) (Child, error)

// Registry maps component names (the data-component attribute value) to
// constructors. A fresh registry already knows "repeater".
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register("repeater", func(host *html.Node, owner *Component) (Child, error) {
		return NewRepeater(host, owner)
	})
	return r
}

func (r *Registry) Register(name string, fn Constructor) *Registry {
	r.constructors[name] = fn
	return r
}

func (r *Registry) constructor(name string) (Constructor, bool) {
	fn, ok := r.constructors[name]
	return fn, ok
}

// CallbackFunc is a named callback invokable from repeater item events. ctx
// is the isolated data context of the item the event fired on.
type CallbackFunc func(ctx *DataContext, evt *Event)

// Component is the base type for bound UI components. It owns a host DOM
// subtree, a binding engine, and explicit registries for named observable
// properties and named callbacks; markup refers to both by name, and the
// registries replace any runtime reflection over the component.
type Component struct {
	name       string
	host       *html.Node
	registry   *Registry
	dispatcher *Dispatcher
	binder     *Binder

	props     map[string]Property
	callbacks map[string]CallbackFunc

	dataContext *DataContext
	bindings    []Binding
	children    []Child
	mounted     bool
}

// ComponentOption configures a component at construction.
type ComponentOption func(*Component)

func WithRegistry(r *Registry) ComponentOption {
	return func(c *Component) { c.registry = r }
}

func WithDispatcher(d *Dispatcher) ComponentOption {
	return func(c *Component) { c.dispatcher = d }
}

func WithBinder(b *Binder) ComponentOption {
	return func(c *Component) { c.binder = b }
}

// NewComponent creates a component for the given host element. Without
// options it gets a fresh registry, dispatcher and binder; subcomponents
// created through NewChild share their owner's.
func NewComponent(name string, host *html.Node, options ...ComponentOption) *Component {
	c := &Component{
		name:      name,
		host:      host,
		props:     make(map[string]Property),
		callbacks: make(map[string]CallbackFunc),
	}
	for _, option := range options {
		option(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.dispatcher == nil {
		c.dispatcher = NewDispatcher()
	}
	if c.binder == nil {
		c.binder = NewBinder()
	}
	return c
}

// NewChild creates a component sharing this component's registry,
// dispatcher and binding engine, as subcomponent constructors should.
func (c *Component) NewChild(name string, host *html.Node) *Component {
	return NewComponent(name, host,
		WithRegistry(c.registry),
		WithDispatcher(c.dispatcher),
		WithBinder(c.binder),
	)
}

func (c *Component) Name() string            { return c.name }
func (c *Component) Host() *html.Node        { return c.host }
func (c *Component) Binder() *Binder         { return c.binder }
func (c *Component) Dispatcher() *Dispatcher { return c.dispatcher }
func (c *Component) Registry() *Registry     { return c.registry }

// Property registers a named observable property. Markup refers to it in
// {{name}} tokens and data-bind-<name> attributes; use lowercase names,
// attribute keys arrive lowercased.
func (c *Component) Property(name string, p Property) *Component {
	c.props[name] = p
	return c
}

// Callback registers a named callback for data-on-<event>="name" wiring.
func (c *Component) Callback(name string, fn CallbackFunc) *Component {
	c.callbacks[name] = fn
	return c
}

// ObservableProperty implements PropertySource over the property registry.
func (c *Component) ObservableProperty(name string) (Property, bool) {
	p, ok := c.props[name]
	return p, ok
}

// CallbackNamed returns the registered callback of that name.
func (c *Component) CallbackNamed(name string) (CallbackFunc, bool) {
	fn, ok := c.callbacks[name]
	return fn, ok
}

// ResolvePath implements Scope: the component's own properties are
// consulted first, then the data context value.
func (c *Component) ResolvePath(path string) (Property, error) {
	head, rest, _ := strings.Cut(path, ".")
	if p, ok := c.props[head]; ok {
		if rest == "" {
			return p, nil
		}
		return resolveSegments(p.Get(), rest)
	}
	if c.dataContext != nil {
		return resolveSegments(c.dataContext.Value(), path)
	}
	return nil, fmt.Errorf("%w: %q on component %q", ErrUnknownPath, path, c.name)
}

// Mount discovers and wires the component's bindings and instantiates
// subcomponents at boundary elements. Mounting an already-mounted component
// first tears the previous binding down completely, so remount leaves no
// orphaned subscriptions. A failing subcomponent constructor aborts the
// mount; an unregistered component name is only a diagnostic.
func (c *Component) Mount() error {
	if c.mounted {
		c.unmount()
	}
	records, boundaries := c.binder.ProcessBindings(c.host, c)
	c.bindings = records
	c.mounted = true

	for _, host := range boundaries {
		name, _ := Attr(host, ComponentAttr)
		ctor, ok := c.registry.constructor(name)
		if !ok {
			Logger.Warnf("%v: %q; element left unbound", ErrUnknownComponent, name)
			continue
		}
		child, err := ctor(host, c)
		if err != nil {
			return fmt.Errorf("mounting %q in %q: %w", name, c.name, err)
		}
		c.children = append(c.children, child)
		c.bindChildProperties(host, child)
		if err := c.bindChildContext(host, name, child); err != nil {
			return err
		}
	}
	return nil
}

// bindChildContext delivers the child's data context: the value at the
// data-context path when declared, the owner's own context otherwise. The
// initial delivery is fatal on failure (wrong capability, missing
// template); replacements triggered by later path changes only log.
func (c *Component) bindChildContext(host *html.Node, name string, child Child) error {
	if path, ok := Attr(host, ContextBindAttr); ok {
		source, err := c.ResolvePath(path)
		if err != nil {
			Logger.Warnf("skipping data context binding: %v", err)
			return nil
		}
		if err := child.SetDataContext(NewObservable[any](source.Get())); err != nil {
			return fmt.Errorf("binding %q in %q: %w", name, c.name, err)
		}
		c.bindings = append(c.bindings, c.binder.BindContext(source, path, child))
		return nil
	}
	if c.dataContext != nil {
		if err := child.SetDataContext(c.dataContext); err != nil {
			return fmt.Errorf("binding %q in %q: %w", name, c.name, err)
		}
	}
	return nil
}

// bindChildProperties wires data-bind-<childproperty>="parentPath"
// declarations on a boundary element: one-directional parent-to-child
// pushes, applied eagerly.
func (c *Component) bindChildProperties(host *html.Node, child Child) {
	owner, exposes := child.(PropertySource)
	for _, a := range host.Attr {
		if !strings.HasPrefix(a.Key, PropertyBindPrefix) {
			continue
		}
		targetName := strings.TrimPrefix(a.Key, PropertyBindPrefix)
		if !exposes {
			Logger.Warnf("component %q exposes no observable properties; skipping %s", c.name, a.Key)
			continue
		}
		target, ok := owner.ObservableProperty(targetName)
		if !ok {
			Logger.Warnf("no observable property %q on child of %q; skipping", targetName, c.name)
			continue
		}
		source, err := c.ResolvePath(a.Val)
		if err != nil {
			Logger.Warnf("skipping property binding: %v", err)
			continue
		}
		c.bindings = append(c.bindings, c.binder.BindProperty(source, a.Val, target, targetName))
	}
}

// SetDataContext replaces the active data context and re-binds.
func (c *Component) SetDataContext(dc *DataContext) error {
	c.dataContext = dc
	return c.Mount()
}

func (c *Component) unmount() {
	c.binder.ReleaseBindings(c.bindings)
	c.bindings = nil
	for _, child := range c.children {
		child.Release()
	}
	c.children = nil
	c.mounted = false
}

// Release tears down every binding and subcomponent exactly once.
func (c *Component) Release() {
	if c.mounted {
		c.unmount()
	}
}
