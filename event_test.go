package loom

import (
	"testing"

	"golang.org/x/net/html"
)

// dispatchTree builds div > span and returns both elements.
func dispatchTree(t *testing.T) (div, span *html.Node) {
	t.Helper()
	div = parseOne(t, `<div><span>go</span></div>`)
	span = div.FirstChild
	if span == nil || span.Data != "span" {
		t.Fatal("fixture tree malformed")
	}
	return div, span
}

func TestDispatchFollowsThreePhases(t *testing.T) {
	div, span := dispatchTree(t)
	d := NewDispatcher()
	var order []string
	record := func(label string) *EventHandler {
		return NewEventHandler(func(evt *Event) bool {
			order = append(order, label)
			return false
		})
	}

	d.AddEventListener(div, "click", record("capture").ForCapture())
	d.AddEventListener(span, "click", record("target"))
	d.AddEventListener(div, "click", record("bubble"))

	evt := d.Fire(span, "click", "payload")

	want := []string{"capture", "target", "bubble"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, order[i], want[i])
		}
	}
	if evt.Target() != span {
		t.Error("event target is not the fired node")
	}
	if evt.Data() != "payload" {
		t.Errorf("event data = %v", evt.Data())
	}
}

func TestAtTargetRunsCaptureAndBubbleHandlers(t *testing.T) {
	_, span := dispatchTree(t)
	d := NewDispatcher()
	var ran []string
	d.AddEventListener(span, "click", NewEventHandler(func(*Event) bool {
		ran = append(ran, "capture")
		return false
	}).ForCapture())
	d.AddEventListener(span, "click", NewEventHandler(func(*Event) bool {
		ran = append(ran, "bubble")
		return false
	}))

	d.Fire(span, "click", nil)
	if len(ran) != 2 {
		t.Errorf("at-target ran %v, want both handler kinds", ran)
	}
}

func TestStopPropagationPreventsBubbling(t *testing.T) {
	div, span := dispatchTree(t)
	d := NewDispatcher()
	var bubbled bool
	d.AddEventListener(span, "click", NewEventHandler(func(evt *Event) bool {
		evt.StopPropagation()
		return false
	}))
	d.AddEventListener(div, "click", NewEventHandler(func(*Event) bool {
		bubbled = true
		return false
	}))

	d.Fire(span, "click", nil)
	if bubbled {
		t.Error("event bubbled after StopPropagation")
	}
}

func TestStopImmediatePropagationStopsSameNode(t *testing.T) {
	_, span := dispatchTree(t)
	d := NewDispatcher()
	var second bool
	d.AddEventListener(span, "click", NewEventHandler(func(evt *Event) bool {
		evt.StopImmediatePropagation()
		return false
	}))
	d.AddEventListener(span, "click", NewEventHandler(func(*Event) bool {
		second = true
		return false
	}))

	d.Fire(span, "click", nil)
	if second {
		t.Error("handler on the same node ran after StopImmediatePropagation")
	}
}

func TestHandlerReportingDoneStopsDispatch(t *testing.T) {
	div, span := dispatchTree(t)
	d := NewDispatcher()
	var bubbled bool
	d.AddEventListener(span, "click", NewEventHandler(func(*Event) bool { return true }))
	d.AddEventListener(div, "click", NewEventHandler(func(*Event) bool {
		bubbled = true
		return false
	}))

	d.Fire(span, "click", nil)
	if bubbled {
		t.Error("dispatch continued after a handler finished the event")
	}
}

func TestNonBubblingEventStaysAtTarget(t *testing.T) {
	div, span := dispatchTree(t)
	d := NewDispatcher()
	var bubbled bool
	d.AddEventListener(div, "focus", NewEventHandler(func(*Event) bool {
		bubbled = true
		return false
	}))

	d.Dispatch(NewEvent("focus", false, span, nil))
	if bubbled {
		t.Error("non-bubbling event reached an ancestor's bubble handler")
	}
}

func TestOnceHandlerRunsOnce(t *testing.T) {
	_, span := dispatchTree(t)
	d := NewDispatcher()
	var runs int
	d.AddEventListener(span, "click", NewEventHandler(func(*Event) bool {
		runs++
		return false
	}).TriggerOnce())

	d.Fire(span, "click", nil)
	d.Fire(span, "click", nil)
	if runs != 1 {
		t.Errorf("once handler ran %d times", runs)
	}
}

func TestRemoveEventListener(t *testing.T) {
	_, span := dispatchTree(t)
	d := NewDispatcher()
	var runs int
	h := NewEventHandler(func(*Event) bool {
		runs++
		return false
	})
	d.AddEventListener(span, "click", h)
	d.RemoveEventListener(span, "click", h)

	d.Fire(span, "click", nil)
	if runs != 0 {
		t.Errorf("removed handler ran %d times", runs)
	}
}

func TestDropNodeDiscardsAllListeners(t *testing.T) {
	_, span := dispatchTree(t)
	d := NewDispatcher()
	var runs int
	count := func(*Event) bool { runs++; return false }
	d.AddEventListener(span, "click", NewEventHandler(count))
	d.AddEventListener(span, "change", NewEventHandler(count))
	d.DropNode(span)

	d.Fire(span, "click", nil)
	d.Fire(span, "change", nil)
	if runs != 0 {
		t.Errorf("dropped node's handlers ran %d times", runs)
	}
}
