// Package parse extracts structured response records from raw survey forms.
//
// The parser never infers the template layout: cell offsets and the valid
// score range arrive as configuration. Parsing is pure with respect to its
// input cells; the only outputs are records and issues.
package parse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
)

// Layout describes the fixed cell positions of the survey template.
// All offsets are zero-based indices into the raw grid.
type Layout struct {
	RespondentRow, RespondentCol int
	GroupRow, GroupCol           int
	FeedbackRow, FeedbackCol     int
	MemberStartRow               int
	MemberRowCount               int
	MemberNameCol                int
	ScoreStartCol                int // first of model.NumCriteria consecutive columns
	CommentCol                   int
}

// Result carries everything one form contributes to the batch.
type Result struct {
	// Records are complete, in-range response records admitted to
	// aggregation.
	Records []model.ResponseRecord

	// Rejected are complete records with out-of-range scores: excluded from
	// aggregation but retained for the raw collated output.
	Rejected []model.ResponseRecord

	// Feedback is the per-form overarching comment; nil when the form's
	// header cells are unusable.
	Feedback *model.GroupFeedback

	// Issues lists every parse-level finding for the form.
	Issues []issue.Issue
}

// Parser turns one raw form into response records.
type Parser struct {
	layout   Layout
	scoreMin float64
	scoreMax float64
}

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithLayout sets the template cell layout.
func WithLayout(l Layout) Option {
	return func(p *Parser) {
		if l.MemberRowCount > 0 {
			p.layout = l
		}
	}
}

// WithScoreRange sets the inclusive valid score bounds.
func WithScoreRange(minScore, maxScore float64) Option {
	return func(p *Parser) {
		if maxScore > minScore {
			p.scoreMin = minScore
			p.scoreMax = maxScore
		}
	}
}

// New creates a Parser with configuration options. The default layout and
// score range match the workshop template (see internal/config defaults).
func New(opts ...Option) *Parser {
	p := &Parser{
		layout: Layout{
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
		scoreMin: 1,
		scoreMax: 5,
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ParseForm extracts zero or more response records plus parse-level issues
// from a single form. Context is accepted to satisfy the project-wide
// convention; parsing itself never blocks.
func (p *Parser) ParseForm(_ context.Context, f model.FormFile) Result {
	var res Result

	group := strings.TrimSpace(f.Cell(p.layout.GroupRow, p.layout.GroupCol))
	respondent := strings.TrimSpace(f.Cell(p.layout.RespondentRow, p.layout.RespondentCol))

	if group == "" || respondent == "" {
		res.Issues = append(res.Issues, issue.Issue{
			Severity:   issue.SeverityError,
			Scope:      issue.ScopeForm,
			Message:    "group or respondent name cell is blank; form skipped",
			Path:       f.Path,
			Group:      group,
			Respondent: respondent,
		})
		return res
	}

	res.Feedback = &model.GroupFeedback{
		Group:      group,
		Respondent: respondent,
		Feedback:   strings.TrimSpace(f.Cell(p.layout.FeedbackRow, p.layout.FeedbackCol)),
		SourcePath: f.Path,
	}

	for slot := 0; slot < p.layout.MemberRowCount; slot++ {
		row := p.layout.MemberStartRow + slot
		name := strings.TrimSpace(f.Cell(row, p.layout.MemberNameCol))

		if name == "" {
			// An unused slot is fine; scores without a name are not.
			if p.rowHasScores(f, row) {
				res.Issues = append(res.Issues, issue.Issue{
					Severity:   issue.SeverityError,
					Scope:      issue.ScopeRecord,
					Message:    fmt.Sprintf("scores present on row %d but the member name cell is blank", row+1),
					Path:       f.Path,
					Group:      group,
					Respondent: respondent,
				})
			}
			continue
		}

		rec := model.ResponseRecord{
			Group:      group,
			Respondent: respondent,
			Member:     name,
			Comment:    strings.TrimSpace(f.Cell(row, p.layout.CommentCol)),
			SourcePath: f.Path,
		}

		complete := true
		outOfRange := false
		for q := 0; q < model.NumCriteria; q++ {
			col := p.layout.ScoreStartCol + q
			raw := strings.TrimSpace(f.Cell(row, col))
			v, err := strconv.ParseFloat(raw, 64)
			if raw == "" || err != nil {
				complete = false
				res.Issues = append(res.Issues, issue.Issue{
					Severity:   issue.SeverityError,
					Scope:      issue.ScopeRecord,
					Message:    fmt.Sprintf("Q%d score at row %d, column %d is blank or non-numeric", q+1, row+1, col+1),
					Path:       f.Path,
					Group:      group,
					Respondent: respondent,
					Member:     name,
				})
				continue
			}
			if v < p.scoreMin || v > p.scoreMax {
				outOfRange = true
				res.Issues = append(res.Issues, issue.Issue{
					Severity:   issue.SeverityError,
					Scope:      issue.ScopeRecord,
					Message:    fmt.Sprintf("Q%d score %v at row %d, column %d is outside the valid range [%v, %v]", q+1, v, row+1, col+1, p.scoreMin, p.scoreMax),
					Path:       f.Path,
					Group:      group,
					Respondent: respondent,
					Member:     name,
				})
			}
			rec.Scores[q] = v
		}

		switch {
		case !complete:
			// Incomplete rows are dropped entirely; partial scores would
			// skew every downstream mean.
		case outOfRange:
			res.Rejected = append(res.Rejected, rec)
		default:
			res.Records = append(res.Records, rec)
		}
	}

	return res
}

// rowHasScores reports whether any score cell in a member row is non-blank.
func (p *Parser) rowHasScores(f model.FormFile, row int) bool {
	for q := 0; q < model.NumCriteria; q++ {
		if strings.TrimSpace(f.Cell(row, p.layout.ScoreStartCol+q)) != "" {
			return true
		}
	}
	return false
}
