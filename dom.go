package loom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markup conventions. HTML attribute names are lowercased by the parser, so
// everything after a prefix arrives lowercase.
const (
	// ComponentAttr flags an element as an embedded subcomponent boundary;
	// its value names a constructor in the active Registry.
	ComponentAttr = "data-component"
	// PropertyBindPrefix declares a property binding on a subcomponent
	// host: data-bind-<childproperty>="parentPath".
	PropertyBindPrefix = "data-bind-"
	// EventBindPrefix declares a per-item event callback on a repeater
	// host: data-on-<event>="callbackName".
	EventBindPrefix = "data-on-"
	// ContextBindAttr selects the parent path whose value becomes the
	// subcomponent's data context; without it the owner's context is
	// inherited.
	ContextBindAttr = "data-context"
)

// Attr returns the value of the named attribute on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// CloneNode returns a deep copy of n, detached from any parent.
func CloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for k := n.FirstChild; k != nil; k = k.NextSibling {
		c.AppendChild(CloneNode(k))
	}
	return c
}

// ParseTemplate parses an HTML fragment in body context and returns its
// parentless root nodes.
func ParseTemplate(fragment string) ([]*html.Node, error) {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(fragment), ctx)
}

// Detach removes n from its parent, if it has one.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// templateChild returns the first <template> element child of host.
func templateChild(host *html.Node) *html.Node {
	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Template {
			return c
		}
	}
	return nil
}

// textChildAt returns the index-th text node among parent's direct
// children, counting only text-type nodes, or nil if the shape changed.
func textChildAt(parent *html.Node, index int) *html.Node {
	k := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		if k == index {
			return c
		}
		k++
	}
	return nil
}

// NodePath returns the structural address of element n relative to root as
// a slash-joined list of element-child indices ("1/0/3"). It reports false
// when n is not an element under root. The empty string addresses root
// itself. Addressing is positional so that no identifier attributes need to
// be written into the document.
func NodePath(root, n *html.Node) (string, bool) {
	if n == root {
		return "", true
	}
	if n.Type != html.ElementNode {
		return "", false
	}
	var steps []string
	for cur := n; cur != root; cur = cur.Parent {
		parent := cur.Parent
		if parent == nil {
			return "", false
		}
		index := 0
		found := false
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c == cur {
				found = true
				break
			}
			index++
		}
		if !found {
			return "", false
		}
		steps = append([]string{strconv.Itoa(index)}, steps...)
	}
	return strings.Join(steps, "/"), true
}
