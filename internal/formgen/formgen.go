// Package formgen generates filled sample survey forms.
//
// The generated workbooks use the same layout configuration the parser
// consumes, so they round-trip through the pipeline unchanged. Fault
// injection knobs produce the malformed batches the validator is built to
// catch, which makes the generator useful for demos and fixtures alike.
package formgen

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/groupwork/peerval/internal/domain/model"
	"github.com/groupwork/peerval/internal/domain/parse"
	"github.com/groupwork/peerval/pkg/logger"
)

// Default generation constants.
const (
	defaultGroups  = 2
	defaultMembers = 3
	defaultSeed    = 42 // deterministic batches by default
)

// Config controls a generation run.
type Config struct {
	// OutDir receives one subdirectory per group.
	OutDir string

	// Groups and MembersPerGroup size the batch.
	Groups          int
	MembersPerGroup int

	// Seed drives the score generator; equal seeds yield equal batches.
	Seed int64

	// ScoreMin and ScoreMax bound generated scores (inclusive, integral).
	ScoreMin int
	ScoreMax int

	// Layout places the generated cells; must match the parser's layout.
	Layout parse.Layout

	// Fault injection, applied to the first group only.
	MissingScore        bool // blank one score cell on one form
	AbsentRespondent    bool // the last member never submits a form
	DuplicateSubmission bool // the first member submits twice
}

// DefaultConfig returns a Config matching the parser defaults.
func DefaultConfig() *Config {
	return &Config{
		OutDir:          ".",
		Groups:          defaultGroups,
		MembersPerGroup: defaultMembers,
		Seed:            defaultSeed,
		ScoreMin:        1,
		ScoreMax:        5,
		Layout: parse.Layout{
			RespondentRow:  2,
			RespondentCol:  2,
			GroupRow:       4,
			GroupCol:       2,
			FeedbackRow:    9,
			FeedbackCol:    11,
			MemberStartRow: 17,
			MemberRowCount: 8,
			MemberNameCol:  1,
			ScoreStartCol:  2,
			CommentCol:     11,
		},
	}
}

// Generate writes the configured batch of forms and returns the paths
// written, in creation order.
func Generate(ctx context.Context, cfg *Config) ([]string, error) {
	if cfg.Groups < 1 || cfg.MembersPerGroup < 1 {
		return nil, fmt.Errorf("%w: need at least one group and one member", ErrInvalidConfig)
	}
	if cfg.MembersPerGroup > cfg.Layout.MemberRowCount {
		return nil, fmt.Errorf("%w: %d members do not fit the template's %d member rows", ErrInvalidConfig, cfg.MembersPerGroup, cfg.Layout.MemberRowCount)
	}

	log := logger.Get().Named("formgen")
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic fixtures, not cryptography

	var paths []string
	for g := 1; g <= cfg.Groups; g++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}

		group := fmt.Sprintf("group-%02d", g)
		members := make([]string, cfg.MembersPerGroup)
		for i := range members {
			members[i] = fmt.Sprintf("member-%02d-%02d", g, i+1)
		}

		dir := filepath.Join(cfg.OutDir, group)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create group directory: %w", err)
		}

		faulty := g == 1
		for i, respondent := range members {
			if faulty && cfg.AbsentRespondent && i == len(members)-1 {
				continue
			}

			path := filepath.Join(dir, fmt.Sprintf("form_%s.xlsx", respondent))
			blankScore := faulty && cfg.MissingScore && i == 0
			if err := writeForm(cfg, path, group, respondent, members, rng, blankScore); err != nil {
				return nil, err
			}
			paths = append(paths, path)

			if faulty && cfg.DuplicateSubmission && i == 0 {
				dup := filepath.Join(dir, fmt.Sprintf("form_%s_resubmit.xlsx", respondent))
				if err := writeForm(cfg, dup, group, respondent, members, rng, false); err != nil {
					return nil, err
				}
				paths = append(paths, dup)
			}
		}
	}

	log.Info(ctx, "generated sample forms",
		logger.Int("groups", cfg.Groups),
		logger.Int("forms", len(paths)),
		logger.String("out_dir", cfg.OutDir),
	)
	return paths, nil
}

// writeForm writes a single filled workbook. blankScore leaves the Q4 cell
// of the last member row empty to exercise the parser's completeness check.
func writeForm(cfg *Config, path, group, respondent string, members []string, rng *rand.Rand, blankScore bool) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	l := cfg.Layout
	if err := setCell(f, sheet, l.RespondentRow, l.RespondentCol, respondent); err != nil {
		return err
	}
	if err := setCell(f, sheet, l.GroupRow, l.GroupCol, group); err != nil {
		return err
	}
	if err := setCell(f, sheet, l.FeedbackRow, l.FeedbackCol, fmt.Sprintf("Overall %s worked well together.", group)); err != nil {
		return err
	}

	for i, member := range members {
		row := l.MemberStartRow + i
		if err := setCell(f, sheet, row, l.MemberNameCol, member); err != nil {
			return err
		}
		for q := 0; q < model.NumCriteria; q++ {
			if blankScore && i == len(members)-1 && q == 3 {
				continue
			}
			score := cfg.ScoreMin + rng.Intn(cfg.ScoreMax-cfg.ScoreMin+1)
			if err := setCell(f, sheet, row, l.ScoreStartCol+q, score); err != nil {
				return err
			}
		}
		if err := setCell(f, sheet, row, l.CommentCol, fmt.Sprintf("Good work, %s.", member)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save form %s: %w", path, err)
	}
	return nil
}

// setCell writes a value at zero-based (row, col).
func setCell(f *excelize.File, sheet string, row, col int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Errorf("cell name for (%d,%d): %w", row, col, err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}
