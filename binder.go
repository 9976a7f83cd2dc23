package loom

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// tokenPattern matches a placeholder of the exact form {{identifier}},
// identifier restricted to letters, digits, underscore, dot.
var tokenPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_.]+)\}\}`)

// Scope resolves binding paths to observable properties.
type Scope interface {
	ResolvePath(path string) (Property, error)
}

// DataScope resolves paths against an isolated data context: the context
// value (and each intermediate segment value) must implement
// PropertySource.
type DataScope struct {
	context *DataContext
}

func NewDataScope(dc *DataContext) DataScope {
	return DataScope{context: dc}
}

func (s DataScope) ResolvePath(path string) (Property, error) {
	return resolveSegments(s.context.Value(), path)
}

// resolveSegments walks a dotted path left to right through the
// PropertySource capability of each segment's value.
func resolveSegments(root any, path string) (Property, error) {
	current := root
	rest := path
	for {
		seg, tail, more := strings.Cut(rest, ".")
		src, ok := current.(PropertySource)
		if !ok {
			return nil, fmt.Errorf("%w: %q (no observable properties at %q)", ErrUnknownPath, path, seg)
		}
		p, ok := src.ObservableProperty(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %q (segment %q)", ErrUnknownPath, path, seg)
		}
		if !more {
			return p, nil
		}
		current = p.Get()
		rest = tail
	}
}

// Binding is a live link between an observable property and a DOM site.
type Binding interface {
	// Resolve re-applies the source's current value to the site.
	Resolve()
	// Release cancels the change subscription. Idempotent.
	Release()
}

// textBinding links one path to one text node. The whole original text is
// bound per path, not per token slice: when the watched path changes, every
// token in the template string is re-evaluated, so overlapping multi-path
// text nodes re-render all tokens together per triggering path.
type textBinding struct {
	owner     *html.Node
	textIndex int
	path      string
	template  string
	tokens    map[string]Property
	cancel    func()
	binder    *Binder
}

func (b *textBinding) Resolve() {
	target := textChildAt(b.owner, b.textIndex)
	if target == nil {
		// the owner's shape changed since discovery; nothing to patch
		return
	}
	text := tokenPattern.ReplaceAllStringFunc(b.template, func(m string) string {
		p, ok := b.tokens[m[2:len(m)-2]]
		if !ok {
			// path did not resolve at discovery; keep the literal token
			return m
		}
		return fmt.Sprint(p.Get())
	})
	target.Data = text
	if b.binder.onResolve != nil {
		b.binder.onResolve(b.owner, b.textIndex, text)
	}
}

func (b *textBinding) Release() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	b.cancel = nil
	// restore the placeholder text so a later scan of this subtree
	// rediscovers the site
	if target := textChildAt(b.owner, b.textIndex); target != nil {
		target.Data = b.template
	}
}

// propertyBinding pushes a parent observable's value into a child
// component's observable property, one-directional and eager.
type propertyBinding struct {
	source     Property
	target     Property
	path       string
	targetName string
	cancel     func()
}

func (b *propertyBinding) Resolve() {
	if err := b.target.Put(b.source.Get()); err != nil {
		Logger.Warnf("property binding %s -> %s: %v", b.path, b.targetName, err)
	}
}

func (b *propertyBinding) Release() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// contextBinding re-delivers a fresh data context to a child whenever the
// parent path's value is replaced. The initial delivery happens at mount,
// where a failure is fatal; later failures are diagnostics.
type contextBinding struct {
	source Property
	path   string
	child  Child
	cancel func()
}

func (b *contextBinding) Resolve() {
	if err := b.child.SetDataContext(NewObservable[any](b.source.Get())); err != nil {
		Logger.Warnf("data context %s: %v", b.path, err)
	}
}

func (b *contextBinding) Release() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// textSite is one text node containing at least one placeholder token.
type textSite struct {
	owner     *html.Node
	textIndex int
	template  string
	paths     []string
}

// scanResult separates discovery from instantiation: text sites are bound
// by the binder, boundary elements are handed to the component layer.
type scanResult struct {
	texts      []textSite
	boundaries []*html.Node
}

// scanTree walks the subtree under root. Recursion stops at any element
// flagged as a subcomponent boundary; root itself is never treated as a
// boundary so a component can scan its own host.
func scanTree(root *html.Node) scanResult {
	var res scanResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n != root && n.Type == html.ElementNode {
			if _, ok := Attr(n, ComponentAttr); ok {
				res.boundaries = append(res.boundaries, n)
				return
			}
		}
		textIndex := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if matches := tokenPattern.FindAllStringSubmatch(c.Data, -1); len(matches) > 0 {
					site := textSite{owner: n, textIndex: textIndex, template: c.Data}
					seen := make(map[string]bool, len(matches))
					for _, m := range matches {
						if !seen[m[1]] {
							seen[m[1]] = true
							site.paths = append(site.paths, m[1])
						}
					}
					res.texts = append(res.texts, site)
				}
				textIndex++
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(root)
	return res
}

// Binder is the reusable binding engine shared by a component and every
// item scope of its repeaters. It owns the full set of live records so a
// single resolve-all pass covers the whole component tree.
type Binder struct {
	records   []Binding
	onResolve func(owner *html.Node, textIndex int, text string)
}

func NewBinder() *Binder {
	return &Binder{}
}

// OnResolve registers a hook observing every applied text patch: the owner
// element, the text node's index among the owner's text children, and the
// re-rendered text.
func (b *Binder) OnResolve(fn func(owner *html.Node, textIndex int, text string)) {
	b.onResolve = fn
}

// ProcessBindings walks the subtree under root, wires every discovered text
// site against scope and resolves each site once with current data. It
// returns the created records and the subcomponent boundary elements the
// walk stopped at. A path that does not resolve on scope is logged and
// skipped; it never fails the pass.
func (b *Binder) ProcessBindings(root *html.Node, scope Scope) ([]Binding, []*html.Node) {
	res := scanTree(root)
	var records []Binding
	for _, site := range res.texts {
		tokens := make(map[string]Property, len(site.paths))
		for _, path := range site.paths {
			p, err := scope.ResolvePath(path)
			if err != nil {
				Logger.Warnf("skipping text binding: %v", err)
				continue
			}
			tokens[path] = p
		}
		var first *textBinding
		for _, path := range site.paths {
			p, ok := tokens[path]
			if !ok {
				continue
			}
			tb := &textBinding{
				owner:     site.owner,
				textIndex: site.textIndex,
				path:      path,
				template:  site.template,
				tokens:    tokens,
				binder:    b,
			}
			tb.cancel = p.Watch(tb.Resolve)
			records = append(records, tb)
			b.records = append(b.records, tb)
			if first == nil {
				first = tb
			}
		}
		if first != nil {
			first.Resolve()
		}
	}
	return records, res.boundaries
}

// BindProperty wires a parent-scope property at path to a child property,
// pushing the parent's current value immediately and on every change.
func (b *Binder) BindProperty(source Property, path string, target Property, targetName string) Binding {
	pb := &propertyBinding{
		source:     source,
		target:     target,
		path:       path,
		targetName: targetName,
	}
	pb.cancel = source.Watch(pb.Resolve)
	pb.Resolve()
	b.records = append(b.records, pb)
	return pb
}

// BindContext subscribes child to data-context replacements driven by a
// parent-scope property. The caller applies the initial context itself so
// it can treat a first-bind failure as fatal.
func (b *Binder) BindContext(source Property, path string, child Child) Binding {
	cb := &contextBinding{source: source, path: path, child: child}
	cb.cancel = source.Watch(cb.Resolve)
	b.records = append(b.records, cb)
	return cb
}

// ResolveBindings re-renders the given records' sites.
func (b *Binder) ResolveBindings(records []Binding) {
	for _, r := range records {
		r.Resolve()
	}
}

// ResolveAllBindings re-renders every live record owned by the binder.
func (b *Binder) ResolveAllBindings() {
	b.ResolveBindings(b.records)
}

// ReleaseBindings cancels the given records' subscriptions and drops them
// from the binder. Releasing a record twice is a no-op.
func (b *Binder) ReleaseBindings(records []Binding) {
	for _, r := range records {
		r.Release()
		for i, own := range b.records {
			if own == r {
				b.records = append(b.records[:i], b.records[i+1:]...)
				break
			}
		}
	}
}
