package loom

import (
	"errors"
	"fmt"
	"testing"
)

func TestObservableNotifiesInRegistrationOrder(t *testing.T) {
	o := NewObservable("a")
	var order []string
	o.Watch(func(c Change[string]) {
		order = append(order, "first:"+c.Old+">"+c.New)
	})
	o.Watch(func(c Change[string]) {
		order = append(order, "second:"+c.Old+">"+c.New)
	})

	o.Set("b")

	want := []string{"first:a>b", "second:a>b"}
	if len(order) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("notification %d = %q, want %q", i, order[i], want[i])
		}
	}
	if o.Value() != "b" {
		t.Errorf("Value() = %q, want %q", o.Value(), "b")
	}
}

func TestObservableWatchCancelIsIdempotent(t *testing.T) {
	o := NewObservable(0)
	var kept, cancelled int
	cancel := o.Watch(func(Change[int]) { cancelled++ })
	o.Watch(func(Change[int]) { kept++ })

	cancel()
	cancel() // second call must not disturb the remaining watcher
	o.Set(1)
	o.Set(2)

	if cancelled != 0 {
		t.Errorf("cancelled watcher ran %d times", cancelled)
	}
	if kept != 2 {
		t.Errorf("remaining watcher ran %d times, want 2", kept)
	}
}

func TestObservableWatcherAddedDuringNotifySkipsCurrentRound(t *testing.T) {
	o := NewObservable(0)
	var late int
	o.Watch(func(Change[int]) {
		o.Watch(func(Change[int]) { late++ })
	})

	o.Set(1)
	if late != 0 {
		t.Fatalf("late watcher ran %d times in the round it was added", late)
	}
	o.Set(2)
	if late != 1 {
		t.Errorf("late watcher ran %d times after the next change, want 1", late)
	}
}

func TestObservableWatcherRemovedDuringNotifyStillFiresThisRound(t *testing.T) {
	o := NewObservable(0)
	var fired int
	var cancelSecond func()
	o.Watch(func(Change[int]) { cancelSecond() })
	cancelSecond = o.Watch(func(Change[int]) { fired++ })

	o.Set(1)
	if fired != 1 {
		t.Fatalf("snapshotted watcher fired %d times in its removal round, want 1", fired)
	}
	o.Set(2)
	if fired != 1 {
		t.Errorf("removed watcher fired again: %d", fired)
	}
}

func TestAsPropertyRoundTrip(t *testing.T) {
	o := NewObservable("up")
	p := AsProperty(o)

	if got := p.Get(); got != "up" {
		t.Fatalf("Get() = %v, want up", got)
	}
	var fired int
	cancel := p.Watch(func() { fired++ })
	defer cancel()

	if err := p.Put("down"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if o.Value() != "down" {
		t.Errorf("observable holds %q after Put, want down", o.Value())
	}
	if fired != 1 {
		t.Errorf("watch fired %d times, want 1", fired)
	}
}

func TestAsPropertyPutRejectsWrongType(t *testing.T) {
	o := NewObservable("text")
	p := AsProperty(o)

	err := p.Put(42)
	if !errors.Is(err, ErrBadAssignment) {
		t.Fatalf("Put(42) error = %v, want ErrBadAssignment", err)
	}
	if o.Value() != "text" {
		t.Errorf("failed Put replaced the value: %q", o.Value())
	}
}

func TestPropertiesSource(t *testing.T) {
	props := Properties{"title": AsProperty(NewObservable("x"))}
	if _, ok := props.ObservableProperty("title"); !ok {
		t.Error("registered property not found")
	}
	if _, ok := props.ObservableProperty("missing"); ok {
		t.Error("unregistered property reported as found")
	}
}

func TestObservableArrayMutations(t *testing.T) {
	a := NewObservableArray(10, 20)
	var events []string
	a.WatchAdd(func(evt ArrayAdd[int]) {
		events = append(events, fmt.Sprintf("add:%d@%d", evt.Item, evt.Position))
	})
	a.WatchRemove(func(evt ArrayRemove) {
		events = append(events, fmt.Sprintf("remove@%d", evt.Position))
	})

	steps := []struct {
		name string
		op   func()
		want []int
	}{
		{"append", func() { a.Add(30) }, []int{10, 20, 30}},
		{"insert at head", func() { a.Insert(0, 5) }, []int{5, 10, 20, 30}},
		{"insert in middle", func() { a.Insert(2, 15) }, []int{5, 10, 15, 20, 30}},
		{"remove in middle", func() {
			if v := a.RemoveAt(2); v != 15 {
				t.Fatalf("RemoveAt returned %d, want 15", v)
			}
		}, []int{5, 10, 20, 30}},
		{"remove at head", func() { a.RemoveAt(0) }, []int{10, 20, 30}},
	}
	for _, step := range steps {
		step.op()
		if a.Len() != len(step.want) {
			t.Fatalf("%s: Len() = %d, want %d", step.name, a.Len(), len(step.want))
		}
		for i, w := range step.want {
			if a.At(i) != w {
				t.Errorf("%s: At(%d) = %d, want %d", step.name, i, a.At(i), w)
			}
		}
	}

	wantEvents := []string{"add:30@2", "add:5@0", "add:15@2", "remove@2", "remove@0"}
	if len(events) != len(wantEvents) {
		t.Fatalf("got %d events %v, want %d", len(events), events, len(wantEvents))
	}
	for i, w := range wantEvents {
		if events[i] != w {
			t.Errorf("event %d = %q, want %q", i, events[i], w)
		}
	}
}

func TestListSourceAdapter(t *testing.T) {
	a := NewObservableArray("x", "y")
	src := AsListSource(a)

	if src.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", src.Len())
	}
	if got := src.Item(1); got != "y" {
		t.Errorf("Item(1) = %v, want y", got)
	}

	var added []string
	var removed []int
	cancelAdd := src.WatchAdd(func(item any, position int) {
		added = append(added, fmt.Sprintf("%v@%d", item, position))
	})
	src.WatchRemove(func(position int) { removed = append(removed, position) })

	a.Insert(1, "m")
	a.RemoveAt(0)
	if len(added) != 1 || added[0] != "m@1" {
		t.Errorf("added = %v, want [m@1]", added)
	}
	if len(removed) != 1 || removed[0] != 0 {
		t.Errorf("removed = %v, want [0]", removed)
	}

	cancelAdd()
	a.Add("z")
	if len(added) != 1 {
		t.Errorf("cancelled add watcher still ran: %v", added)
	}
}
