// Package discovery enumerates completed survey forms under a directory
// tree and loads their raw cell grids.
//
// Filesystem enumeration order is not guaranteed stable, so paths are sorted
// lexicographically before loading; the core pipeline relies on that order
// only for tie-breaking duplicate submissions.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
	"github.com/groupwork/peerval/pkg/logger"
	"github.com/groupwork/peerval/pkg/metrics"
)

// Scanner discovers and loads form files.
type Scanner struct {
	ext    string
	logger logger.Logger
}

// Option applies a configuration option to the Scanner.
type Option func(*Scanner)

// WithExtension sets the file extension discovery picks up, e.g. ".xlsx".
func WithExtension(ext string) Option {
	return func(s *Scanner) {
		if strings.HasPrefix(ext, ".") {
			s.ext = ext
		}
	}
}

// WithLogger sets a custom logger for the scanner.
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Scanner with configuration options.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		ext:    ".xlsx",
		logger: logger.Get().Named("discovery"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan recursively enumerates form files under root, in lexicographic path
// order, and loads each one's cell grid. Individual unreadable files become
// form-scope error issues; an unreadable root or an empty result is fatal.
func (s *Scanner) Scan(ctx context.Context, root string) ([]model.FormFile, []issue.Issue, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		// Excel drops ~$ lock files next to open workbooks.
		if strings.HasPrefix(name, "~$") {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), s.ext) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrScanRoot, err)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("%w: no %s files under %s", ErrNoForms, s.ext, root)
	}

	sort.Strings(paths)

	forms := make([]model.FormFile, 0, len(paths))
	var issues []issue.Issue
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("scan cancelled: %w", err)
		}

		metrics.RecordFormDiscovered()
		grid, err := loadGrid(path)
		if err != nil {
			metrics.RecordFormFailed()
			issues = append(issues, issue.Issue{
				Severity: issue.SeverityError,
				Scope:    issue.ScopeForm,
				Message:  fmt.Sprintf("could not read form file: %v", err),
				Path:     path,
			})
			s.logger.Warn(ctx, "skipping unreadable form", logger.String("path", path), logger.Error(err))
			continue
		}
		forms = append(forms, model.FormFile{Path: path, Grid: grid})
	}

	s.logger.Info(ctx, "discovered forms",
		logger.Int("found", len(paths)),
		logger.Int("loaded", len(forms)),
	)
	return forms, issues, nil
}

// loadGrid reads the first sheet of a workbook as a cell grid.
func loadGrid(path string) ([][]string, error) {
	x, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer x.Close()

	sheet := x.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := x.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
