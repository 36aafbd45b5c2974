package worker_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/groupwork/peerval/internal/adapters/mq/queue"
	"github.com/groupwork/peerval/internal/adapters/mq/worker"
	"github.com/groupwork/peerval/internal/adapters/repository"
	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
	"github.com/groupwork/peerval/internal/domain/parse"
	"github.com/groupwork/peerval/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// stubParser returns a canned result per path.
type stubParser struct {
	results map[string]parse.Result
}

func (p *stubParser) ParseForm(_ context.Context, f model.FormFile) parse.Result {
	return p.results[f.Path]
}

func okResult(group, respondent string, path string) parse.Result {
	return parse.Result{
		Records: []model.ResponseRecord{{
			Group: group, Respondent: respondent, Member: respondent, SourcePath: path,
		}},
		Feedback: &model.GroupFeedback{Group: group, Respondent: respondent, SourcePath: path},
	}
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pool fed by a queue of forms", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		store := repository.NewBatchStore(ctx)
		issues := issue.NewList()
		parser := &stubParser{results: map[string]parse.Result{
			"a.xlsx": okResult("alpha", "alice", "a.xlsx"),
			"b.xlsx": okResult("alpha", "bob", "b.xlsx"),
			"c.xlsx": {Issues: []issue.Issue{{
				Severity: issue.SeverityError,
				Scope:    issue.ScopeForm,
				Message:  "group cell is blank",
				Path:     "c.xlsx",
			}}},
		}}

		pool := worker.NewPool(3, q, parser, store, issues)

		Convey("When the forms are processed and the queue closes", func() {
			pool.Start(ctx)
			for _, p := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
				So(q.Enqueue(ctx, queue.Form{Path: p}), ShouldBeTrue)
			}
			So(q.Close(), ShouldBeNil)

			waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(pool.Wait(waitCtx), ShouldBeNil)

			Convey("Then every contribution lands in the store", func() {
				recs := store.Records(ctx)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].Respondent, ShouldEqual, "alice")
				So(recs[1].Respondent, ShouldEqual, "bob")
				So(store.Feedback(ctx), ShouldHaveLength, 2)
			})

			Convey("And the failed form's issue is accumulated", func() {
				So(issues.Len(), ShouldEqual, 1)
				So(issues.All()[0].Path, ShouldEqual, "c.xlsx")
			})
		})
	})

	Convey("Given a pool asked for fewer than one worker", t, func() {
		q := queue.NewInMemoryQueue()
		store := repository.NewBatchStore(ctx)
		issues := issue.NewList()
		parser := &stubParser{results: map[string]parse.Result{
			"a.xlsx": okResult("alpha", "alice", "a.xlsx"),
		}}

		pool := worker.NewPool(0, q, parser, store, issues)

		Convey("When it runs", func() {
			pool.Start(ctx)
			So(q.Enqueue(ctx, queue.Form{Path: "a.xlsx"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			Convey("Then it still processes with a single worker", func() {
				So(pool.Wait(waitCtx), ShouldBeNil)
				So(store.Records(ctx), ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a worker whose context is cancelled before the queue closes", t, func() {
		q := queue.NewInMemoryQueue()
		store := repository.NewBatchStore(ctx)
		issues := issue.NewList()
		parser := &stubParser{results: map[string]parse.Result{}}

		runCtx, cancel := context.WithCancel(ctx)
		w := worker.NewInMemoryWorker(q, parser, store, issues)

		Convey("When the context is cancelled", func() {
			done := make(chan struct{})
			go func() {
				w.Run(runCtx)
				close(done)
			}()
			cancel()

			Convey("Then the worker returns instead of waiting forever", func() {
				select {
				case <-done:
				case <-time.After(5 * time.Second):
					So("worker did not stop on cancellation", ShouldBeEmpty)
				}
			})
		})
	})
}
