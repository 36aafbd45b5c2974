// Package worker defines the parse worker pool.
//
// Forms are independent, so parsing is embarrassingly parallel: each worker
// pulls forms off the queue, parses them, and appends the results to the
// shared batch store and issue list. Output ordering is stabilized later by
// the store's snapshot sort, so worker scheduling never changes results.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
	"github.com/groupwork/peerval/internal/domain/parse"
	"github.com/groupwork/peerval/pkg/logger"
	"github.com/groupwork/peerval/pkg/metrics"
)

// Form abstracts what workers read off the queue.
// Using the model.FormFile type for consistency.
type Form = model.FormFile

// Parser turns one form into records and issues.
type Parser interface {
	ParseForm(ctx context.Context, f model.FormFile) parse.Result
}

// Sink receives everything a parsed form contributes to the batch.
type Sink interface {
	AddRecords(ctx context.Context, recs ...model.ResponseRecord)
	AddRejected(ctx context.Context, recs ...model.ResponseRecord)
	AddFeedback(ctx context.Context, fb ...model.GroupFeedback)
}

// Queue defines how workers receive forms.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Form
}

// InMemoryWorker processes forms from the queue into the sink.
type InMemoryWorker struct {
	queue  Queue
	parser Parser
	sink   Sink
	issues *issue.List
	name   string

	// Shutdown control
	done chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, parser Parser, sink Sink, issues *issue.List, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  queue,
		parser: parser,
		sink:   sink,
		issues: issues,
		name:   "worker", // default name
		done:   make(chan struct{}),
		logger: logger.Get().Named("worker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when the queue is closed and
// drained or the context is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	forms := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-forms:
			if !ok {
				// Queue closed and drained, worker is finished.
				return
			}
			w.processForm(ctx, f)
		}
	}
}

// processForm parses a single form and records its contribution.
func (w *InMemoryWorker) processForm(ctx context.Context, f Form) {
	start := time.Now()

	res := w.parser.ParseForm(ctx, f)

	metrics.RecordParseLatency(float64(time.Since(start).Milliseconds()))

	w.sink.AddRecords(ctx, res.Records...)
	w.sink.AddRejected(ctx, res.Rejected...)
	if res.Feedback != nil {
		w.sink.AddFeedback(ctx, *res.Feedback)
		metrics.RecordFormParsed()
	} else {
		metrics.RecordFormFailed()
	}
	w.issues.Add(res.Issues...)

	w.logger.Debug(ctx, "parsed form",
		logger.String("path", f.Path),
		logger.Int("records", len(res.Records)),
		logger.Int("rejected", len(res.Rejected)),
		logger.Int("issues", len(res.Issues)),
	)
}

// Pool manages multiple parse workers.
type Pool struct {
	workers []*InMemoryWorker

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, parser Parser, sink Sink, issues *issue.List) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			parser,
			sink,
			issues,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has finished or the context times out.
// The queue must be closed before waiting, or workers never finish.
func (p *Pool) Wait(ctx context.Context) error {
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "timed out waiting for worker", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool wait: %w", ctx.Err())
		}
	}
	return nil
}
