// Package report serializes run results as comma-separated tables.
//
// Column order and headers are fixed and part of the output contract:
// downstream spreadsheets and scripts key on them.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
)

// Fixed output headers.
var (
	collatedHeader = []string{"group", "respondent", "member", "q1", "q2", "q3", "q4", "q5", "q6", "q7", "comment", "source"}
	summaryHeader  = []string{"group", "member", "raters", "score", "group_score", "pem", "q1", "q2", "q3", "q4", "q5", "q6", "q7", "feedback"}
	issuesHeader   = []string{"severity", "scope", "group", "respondent", "member", "file", "message"}
)

// Writer writes the collated, summary, and issues tables.
type Writer struct {
	dir          string
	collatedName string
	summaryName  string
	issuesName   string
}

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithDirectory sets the directory output files are written into.
func WithDirectory(dir string) Option {
	return func(w *Writer) {
		if dir != "" {
			w.dir = dir
		}
	}
}

// WithFileNames sets the three output file names.
func WithFileNames(collated, summary, issues string) Option {
	return func(w *Writer) {
		if collated != "" {
			w.collatedName = collated
		}
		if summary != "" {
			w.summaryName = summary
		}
		if issues != "" {
			w.issuesName = issues
		}
	}
}

// New creates a Writer with configuration options.
func New(opts ...Option) *Writer {
	w := &Writer{
		dir:          ".",
		collatedName: "peereval.csv",
		summaryName:  "pem.csv",
		issuesName:   "issues.csv",
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteCollated writes one row per (group, respondent, member) record,
// including out-of-range records retained for inspection. Returns the path
// written.
func (w *Writer) WriteCollated(_ context.Context, records []model.ResponseRecord) (string, error) {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, collatedHeader)
	for _, r := range records {
		row := []string{r.Group, r.Respondent, r.Member}
		for _, s := range r.Scores {
			row = append(row, formatScore(s))
		}
		row = append(row, r.Comment, r.SourcePath)
		rows = append(rows, row)
	}
	return w.writeCSV(w.collatedName, rows)
}

// WriteSummary writes one row per (group, member) with the member's overall
// score, group mean, PEM, per-question means, and the overarching feedback
// from the member's own submission. Values are rounded to 4 decimals;
// undefined (NaN) values are left empty. Returns the path written.
func (w *Writer) WriteSummary(_ context.Context, summaries []model.MemberSummary) (string, error) {
	rows := make([][]string, 0, len(summaries)+1)
	rows = append(rows, summaryHeader)
	for _, s := range summaries {
		row := []string{
			s.Group,
			s.Member,
			strconv.Itoa(s.Raters),
			formatRounded(s.Score),
			formatRounded(s.GroupScore),
			formatRounded(s.PEM),
		}
		for _, m := range s.QuestionMeans {
			row = append(row, formatRounded(m))
		}
		row = append(row, s.Feedback)
		rows = append(rows, row)
	}
	return w.writeCSV(w.summaryName, rows)
}

// WriteIssues writes the full validation-issue list. Returns the path
// written.
func (w *Writer) WriteIssues(_ context.Context, issues []issue.Issue) (string, error) {
	rows := make([][]string, 0, len(issues)+1)
	rows = append(rows, issuesHeader)
	for _, i := range issues {
		rows = append(rows, []string{
			string(i.Severity), string(i.Scope), i.Group, i.Respondent, i.Member, i.Path, i.Message,
		})
	}
	return w.writeCSV(w.issuesName, rows)
}

// writeCSV writes rows to a file under the output directory.
func (w *Writer) writeCSV(name string, rows [][]string) (string, error) {
	path := filepath.Join(w.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file %s: %w", path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush csv %s: %w", path, err)
	}
	return path, nil
}

// formatScore renders a raw score exactly as parsed.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatRounded renders a derived value rounded to 4 decimals, or empty for
// undefined values.
func formatRounded(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}
