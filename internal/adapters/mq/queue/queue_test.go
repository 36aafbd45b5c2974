package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/groupwork/peerval/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))

		Convey("When forms are enqueued and the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Form{Path: "a.xlsx"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Form{Path: "b.xlsx"}), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)
			So(q.Close(), ShouldBeNil)

			Convey("Then dequeue drains the queued forms and the channel closes", func() {
				var paths []string
				for f := range q.Dequeue(ctx) {
					paths = append(paths, f.Path)
				}
				So(paths, ShouldResemble, []string{"a.xlsx", "b.xlsx"})
			})
		})

		Convey("When enqueueing after close", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then the enqueue is refused", func() {
				So(q.Enqueue(ctx, queue.Form{Path: "a.xlsx"}), ShouldBeFalse)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})

		Convey("When closing twice", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then the second close reports the queue as closed", func() {
				So(q.Close(), ShouldEqual, queue.ErrClosed)
			})
		})

		Convey("When the queue is full and the context is cancelled", func() {
			for i := 0; i < 4; i++ {
				So(q.Enqueue(ctx, queue.Form{Path: "f.xlsx"}), ShouldBeTrue)
			}
			cancelled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()

			Convey("Then the blocked enqueue gives up", func() {
				So(q.Enqueue(cancelled, queue.Form{Path: "overflow.xlsx"}), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed while a producer is parked on a full queue", func() {
			full := queue.NewInMemoryQueue(queue.WithCapacity(1))
			So(full.Enqueue(ctx, queue.Form{Path: "a.xlsx"}), ShouldBeTrue)

			parked := make(chan bool, 1)
			go func() {
				parked <- full.Enqueue(ctx, queue.Form{Path: "b.xlsx"})
			}()
			closed := make(chan error, 1)
			go func() {
				// Give the producer time to park on the send first.
				time.Sleep(50 * time.Millisecond)
				closed <- full.Close()
			}()

			Convey("Then the parked send completes instead of panicking", func() {
				var paths []string
				for f := range full.Dequeue(ctx) {
					paths = append(paths, f.Path)
				}
				So(<-parked, ShouldBeTrue)
				So(<-closed, ShouldBeNil)
				So(paths, ShouldResemble, []string{"a.xlsx", "b.xlsx"})
			})
		})

		Convey("When a producer and consumer run concurrently", func() {
			const n = 10
			go func() {
				for i := 0; i < n; i++ {
					q.Enqueue(ctx, queue.Form{Path: "f.xlsx"})
				}
				q.Close()
			}()

			Convey("Then the consumer sees every form", func() {
				got := 0
				for range q.Dequeue(ctx) {
					got++
				}
				So(got, ShouldEqual, n)
			})
		})
	})
}
