// Command gen-forms writes a batch of filled sample survey forms, with
// optional fault injection for exercising the validator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"

	"github.com/groupwork/peerval/internal/formgen"
	"github.com/groupwork/peerval/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}

	cfg := formgen.DefaultConfig()

	fs := flag.NewFlagSet("gen-forms", flag.ExitOnError)
	out := fs.String("out", cfg.OutDir, "directory to write generated forms into")
	groups := fs.Int("groups", cfg.Groups, "number of groups to generate")
	members := fs.Int("members", cfg.MembersPerGroup, "members per group")
	seed := fs.Int64("seed", cfg.Seed, "score generator seed; equal seeds yield equal batches")
	missing := fs.Bool("fault-missing-score", false, "blank one score cell in the first group")
	absent := fs.Bool("fault-absent-respondent", false, "omit the last member's form in the first group")
	duplicate := fs.Bool("fault-duplicate", false, "duplicate the first member's form in the first group")
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("PEERVAL_GEN")); err != nil {
		os.Stderr.WriteString("failed to parse flags: " + err.Error() + "\n")
		return 1
	}

	cfg.OutDir = *out
	cfg.Groups = *groups
	cfg.MembersPerGroup = *members
	cfg.Seed = *seed
	cfg.MissingScore = *missing
	cfg.AbsentRespondent = *absent
	cfg.DuplicateSubmission = *duplicate

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paths, err := formgen.Generate(ctx, cfg)
	if err != nil {
		logger.Get().Error(ctx, "generation failed", logger.Error(err))
		return 1
	}

	fmt.Printf("Wrote %d forms under %s.\n", len(paths), cfg.OutDir)
	return 0
}
