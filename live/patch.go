// Package live streams text patches applied by a loom binder to web
// clients over websockets, so a page rendered from the server-side DOM
// stays current as observables change.
package live

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/loomui/loom"
)

// Op is one mutation on the target element. Key "text" sets the text node
// at Index (counting only text children); any other key sets an attribute.
type Op struct {
	Key   string `json:"key"`
	Index int    `json:"index,omitempty"`
	Value string `json:"value"`
}

// Patch is an element address and the operations to apply to it. Target is
// the slash-joined element-child index path under the live root ("1/0/3"),
// so no identifier attributes need to exist in the served document.
type Patch struct {
	Target string `json:"target"`
	Ops    []Op   `json:"ops"`
}

// Attach wires binder resolution into hub: every applied text patch is
// published, addressed by the owner element's structural path under root.
func Attach(b *loom.Binder, root *html.Node, hub *Hub) {
	b.OnResolve(func(owner *html.Node, textIndex int, text string) {
		target, ok := loom.NodePath(root, owner)
		if !ok {
			return
		}
		hub.Publish(Patch{
			Target: target,
			Ops:    []Op{{Key: "text", Index: textIndex, Value: text}},
		})
	})
}

// ClientScript is the browser-side loader applying incoming patches; embed
// it in the served page. It resolves each patch target by walking
// element children and updates text nodes in place, mirroring the
// server-side resolution rules.
func ClientScript(wsURL string) string {
	return `<script>
	const ws = new WebSocket(` + strconv.Quote(wsURL) + `);
	ws.onmessage = function (event) {
		for (const patch of JSON.parse(event.data)) {
			let ele = document.body;
			if (patch.target !== "") {
				for (const step of patch.target.split("/")) {
					ele = ele.children[parseInt(step, 10)];
					if (!ele) break;
				}
			}
			if (!ele) continue;
			for (const op of patch.ops) {
				if (op.key === "text") {
					let k = 0;
					for (const child of ele.childNodes) {
						if (child.nodeType !== Node.TEXT_NODE) continue;
						if (k === (op.index || 0)) { child.nodeValue = op.value; break; }
						k++;
					}
				} else {
					ele.setAttribute(op.key, op.value);
				}
			}
		}
	};
	</script>`
}
