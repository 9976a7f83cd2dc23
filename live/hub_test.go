package live

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHub(t *testing.T) {
	Convey("Given a hub with a subscriber", t, func() {
		done := make(chan struct{})
		h := NewHub(done)
		updates, cancel := h.Subscribe()

		patch := Patch{Target: "0", Ops: []Op{{Key: "text", Value: "hi"}}}

		Convey("published patches reach the subscriber", func() {
			h.Publish(patch)
			got := <-updates
			So(got, ShouldHaveLength, 1)
			So(got[0].Target, ShouldEqual, "0")
			So(got[0].Ops[0].Value, ShouldEqual, "hi")
			cancel()
			close(done)
		})

		Convey("publishing nothing delivers nothing", func() {
			h.Publish()
			So(len(updates), ShouldEqual, 0)
			cancel()
			close(done)
		})

		Convey("cancel closes the stream and stops delivery", func() {
			cancel()
			cancel() // idempotent
			h.Publish(patch)
			_, open := <-updates
			So(open, ShouldBeFalse)
			close(done)
		})

		Convey("patches past a full buffer are dropped, not blocked on", func() {
			for i := 0; i < subscriberBuffer+10; i++ {
				h.Publish(patch)
			}
			So(len(updates), ShouldEqual, subscriberBuffer)
			cancel()
			close(done)
		})

		Convey("publishing after done is a no-op", func() {
			close(done)
			h.Publish(patch)
			So(len(updates), ShouldEqual, 0)
			cancel()
		})

		Convey("every subscriber receives its own copy of the stream", func() {
			second, cancelSecond := h.Subscribe()
			h.Publish(patch)
			So(len(updates), ShouldEqual, 1)
			So(len(second), ShouldEqual, 1)
			cancelSecond()
			cancel()
			close(done)
		})
	})
}
