package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"

	app "github.com/groupwork/peerval/internal/app"
	"github.com/groupwork/peerval/internal/config"
	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/parse"
	"github.com/groupwork/peerval/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	log := logger.Get()

	fs := flag.NewFlagSet("peerval", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory containing completed survey forms; output csv files are written here")
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("PEERVAL_CLI")); err != nil {
		os.Stderr.WriteString("failed to parse flags: " + err.Error() + "\n")
		return 1
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.FormQueueSize),
		app.WithExtension(cfg.Extension),
		app.WithScoreRange(cfg.ScoreMin, cfg.ScoreMax),
		app.WithLayout(toParseLayout(cfg.Layout)),
		app.WithOutputNames(cfg.CollatedFile, cfg.SummaryFile, cfg.IssuesFile),
		app.WithMetricsFile(cfg.MetricsFile),
	)

	res, err := svc.Run(ctx, *dir)
	if err != nil {
		log.Error(ctx, "tabulation failed", logger.Error(err))
		return 1
	}

	fmt.Printf("Tabulated %d forms across %d groups.\n", res.FormCount, res.GroupCount)
	fmt.Printf("  collated records: %s\n", res.CollatedPath)
	fmt.Printf("  member summaries: %s\n", res.SummaryPath)
	fmt.Printf("  issues:           %s\n", res.IssuesPath)
	if n := len(res.Issues); n > 0 {
		errs := 0
		for _, i := range res.Issues {
			if i.Severity == issue.SeverityError {
				errs++
			}
		}
		fmt.Printf("%d issue(s) found (%d errors); review %s before finalizing the analysis.\n", n, errs, res.IssuesPath)
	}
	return 0
}

// toParseLayout maps the config layout onto the parser's layout type.
func toParseLayout(l config.Layout) parse.Layout {
	return parse.Layout{
		RespondentRow:  l.RespondentRow,
		RespondentCol:  l.RespondentCol,
		GroupRow:       l.GroupRow,
		GroupCol:       l.GroupCol,
		FeedbackRow:    l.FeedbackRow,
		FeedbackCol:    l.FeedbackCol,
		MemberStartRow: l.MemberStartRow,
		MemberRowCount: l.MemberRowCount,
		MemberNameCol:  l.MemberNameCol,
		ScoreStartCol:  l.ScoreStartCol,
		CommentCol:     l.CommentCol,
	}
}
