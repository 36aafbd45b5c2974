// Package service provides the pipeline controller that orchestrates
// discovery, parsing, validation, aggregation, and output writing.
//
// A run always attempts to produce the most complete possible output: a bad
// form degrades the results and surfaces issues, it never aborts the batch.
// Only an unreadable root directory or an empty scan is fatal.
package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/groupwork/peerval/internal/adapters/discovery"
	"github.com/groupwork/peerval/internal/adapters/mq/queue"
	workerpool "github.com/groupwork/peerval/internal/adapters/mq/worker"
	"github.com/groupwork/peerval/internal/adapters/report"
	"github.com/groupwork/peerval/internal/adapters/repository"
	"github.com/groupwork/peerval/internal/domain/aggregate"
	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
	"github.com/groupwork/peerval/internal/domain/parse"
	"github.com/groupwork/peerval/internal/domain/validate"
	"github.com/groupwork/peerval/pkg/logger"
	"github.com/groupwork/peerval/pkg/metrics"
)

// Service orchestrates one tabulation run.
type Service struct {
	// Configuration
	workerCount  int
	queueSize    int
	extension    string
	layout       parse.Layout
	layoutSet    bool
	scoreMin     float64
	scoreMax     float64
	outDir       string // empty means the scanned root
	collatedName string
	summaryName  string
	issuesName   string
	metricsFile  string

	// Logging
	logger logger.Logger
}

// RunResult summarizes what a run produced.
type RunResult struct {
	RunID string

	FormCount       int // forms successfully loaded
	AdmittedRecords int // records admitted by the parser
	RejectedRecords int // out-of-range records retained for collation
	KeptRecords     int // records left after validation
	GroupCount      int

	Summaries []model.MemberSummary
	Issues    []issue.Issue

	CollatedPath string
	SummaryPath  string
	IssuesPath   string
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of parse workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the form queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithExtension sets the form file extension.
func WithExtension(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.extension = ext
		}
	}
}

// WithLayout sets the template cell layout.
func WithLayout(l parse.Layout) Option {
	return func(s *Service) {
		if l.MemberRowCount > 0 {
			s.layout = l
			s.layoutSet = true
		}
	}
}

// WithScoreRange sets the inclusive valid score bounds.
func WithScoreRange(minScore, maxScore float64) Option {
	return func(s *Service) {
		if maxScore > minScore {
			s.scoreMin = minScore
			s.scoreMax = maxScore
		}
	}
}

// WithOutputDir overrides where the CSV files are written; by default they
// land in the scanned directory.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		s.outDir = dir
	}
}

// WithOutputNames sets the three output file names.
func WithOutputNames(collated, summary, issues string) Option {
	return func(s *Service) {
		if collated != "" {
			s.collatedName = collated
		}
		if summary != "" {
			s.summaryName = summary
		}
		if issues != "" {
			s.issuesName = issues
		}
	}
}

// WithMetricsFile enables the end-of-run Prometheus textfile dump.
func WithMetricsFile(path string) Option {
	return func(s *Service) {
		s.metricsFile = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1024,
		extension:    ".xlsx",
		scoreMin:     1,
		scoreMax:     5,
		collatedName: "peereval.csv",
		summaryName:  "pem.csv",
		issuesName:   "issues.csv",
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes the full pipeline over the forms under root.
func (s *Service) Run(ctx context.Context, root string) (*RunResult, error) {
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}

	runID := uuid.New().String()
	s.logger.Info(ctx, "starting tabulation run",
		logger.String("run_id", runID),
		logger.String("root", root),
		logger.Int("workers", s.workerCount),
	)

	issues := issue.NewList()

	// Discover.
	stageStart := time.Now()
	scanner := discovery.New(discovery.WithExtension(s.extension))
	forms, scanIssues, err := scanner.Scan(ctx, root)
	if err != nil {
		return nil, err
	}
	issues.Add(scanIssues...)
	metrics.RecordStageDuration("discover", sinceMs(stageStart))

	// Parse, fanned out across workers. The batch store re-sorts on
	// snapshot, so worker scheduling cannot change the output.
	stageStart = time.Now()
	store := repository.NewBatchStore(ctx, repository.WithCapacityHint(len(forms)))
	formQueue := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	parserOpts := []parse.Option{parse.WithScoreRange(s.scoreMin, s.scoreMax)}
	if s.layoutSet {
		parserOpts = append(parserOpts, parse.WithLayout(s.layout))
	}
	parser := parse.New(parserOpts...)

	pool := workerpool.NewPool(s.workerCount, formQueue, parser, store, issues)
	pool.Start(ctx)
	for _, f := range forms {
		if !formQueue.Enqueue(ctx, f) {
			break
		}
	}
	if err := formQueue.Close(); err != nil {
		// Only ErrClosed is possible; the pipeline owns the sole Close.
		s.logger.Debug(ctx, "form queue close", logger.Error(err))
	}
	if err := pool.Wait(ctx); err != nil {
		return nil, fmt.Errorf("parse stage: %w", err)
	}
	metrics.RecordStageDuration("parse", sinceMs(stageStart))

	// Validate across the whole batch.
	stageStart = time.Now()
	validator := validate.New()
	vres := validator.Validate(ctx, store.Records(ctx), store.Feedback(ctx))
	issues.Add(vres.Issues...)
	metrics.UpdateGroupCount(len(vres.Groups))
	metrics.RecordStageDuration("validate", sinceMs(stageStart))

	// Aggregate.
	stageStart = time.Now()
	summaries, aggIssues := aggregate.New().Aggregate(ctx, vres.Kept, vres.Groups, vres.Feedback)
	issues.Add(aggIssues...)
	metrics.RecordStageDuration("aggregate", sinceMs(stageStart))

	admitted, rejected := store.Counts(ctx)
	metrics.RecordRecordsKept(len(vres.Kept))
	metrics.RecordRecordsExcluded(admitted - len(vres.Kept) + rejected)

	// Emit.
	stageStart = time.Now()
	outDir := s.outDir
	if outDir == "" {
		outDir = root
	}
	writer := report.New(
		report.WithDirectory(outDir),
		report.WithFileNames(s.collatedName, s.summaryName, s.issuesName),
	)

	res := &RunResult{
		RunID:           runID,
		FormCount:       len(forms),
		AdmittedRecords: admitted,
		RejectedRecords: rejected,
		KeptRecords:     len(vres.Kept),
		GroupCount:      len(vres.Groups),
		Summaries:       summaries,
	}

	if res.CollatedPath, err = writer.WriteCollated(ctx, store.Collated(ctx)); err != nil {
		return nil, fmt.Errorf("write collated table: %w", err)
	}
	if res.SummaryPath, err = writer.WriteSummary(ctx, summaries); err != nil {
		return nil, fmt.Errorf("write summary table: %w", err)
	}
	res.Issues = issues.All()
	for _, i := range res.Issues {
		metrics.RecordIssue(string(i.Severity), string(i.Scope))
	}
	if res.IssuesPath, err = writer.WriteIssues(ctx, res.Issues); err != nil {
		return nil, fmt.Errorf("write issues table: %w", err)
	}
	metrics.RecordStageDuration("emit", sinceMs(stageStart))

	if s.metricsFile != "" {
		if err := metrics.WriteTextfile(s.metricsFile); err != nil {
			// Metrics are best-effort; the tabulation itself succeeded.
			s.logger.Warn(ctx, "metrics dump failed", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "tabulation run complete",
		logger.String("run_id", runID),
		logger.Int("forms", res.FormCount),
		logger.Int("records_kept", res.KeptRecords),
		logger.Int("groups", res.GroupCount),
		logger.Int("errors", issues.Count(issue.SeverityError)),
		logger.Int("warnings", issues.Count(issue.SeverityWarning)),
	)

	return res, nil
}

// sinceMs returns the elapsed time since start in milliseconds.
func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Milliseconds())
}
