// Package model contains domain models passed between pipeline stages.
package model

// NumCriteria is the number of scored criteria (Q1-Q7) per rated member.
const NumCriteria = 7

// FormFile is one discovered survey form: its path and the raw cell grid
// read from the spreadsheet. The grid is immutable once loaded; cells beyond
// a row's last non-empty column may be absent.
type FormFile struct {
	Path string
	Grid [][]string
}

// Cell returns the trimmed-at-source cell value at (row, col), or the empty
// string when the grid does not extend that far.
func (f FormFile) Cell(row, col int) string {
	if row < 0 || row >= len(f.Grid) {
		return ""
	}
	r := f.Grid[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// ResponseRecord is the normalized unit of evaluation: one respondent's
// scores for one rated member within one form.
type ResponseRecord struct {
	Group      string
	Respondent string
	Member     string
	Scores     [NumCriteria]float64
	Comment    string // per-member free text, may be empty
	SourcePath string // form file the record came from
}

// Total returns the sum of the criterion scores.
func (r ResponseRecord) Total() float64 {
	var t float64
	for _, s := range r.Scores {
		t += s
	}
	return t
}

// GroupFeedback is the overarching free-text comment captured once per form.
type GroupFeedback struct {
	Group      string
	Respondent string
	Feedback   string
	SourcePath string
}

// Group is the derived roster for one group: the set of member identities,
// collated from the batch rather than declared anywhere.
type Group struct {
	ID      string
	Members []string // sorted, unique
}

// MemberSummary is the derived per-member result of an aggregation run.
type MemberSummary struct {
	Group  string
	Member string

	// QuestionMeans holds the arithmetic mean per criterion across raters.
	// NaN when the member received no valid ratings.
	QuestionMeans [NumCriteria]float64

	// Score is the mean of per-rater row totals received by the member.
	Score float64

	// GroupScore is the mean of member Scores within the group.
	GroupScore float64

	// PEM is Score / GroupScore, emitted unclamped; downstream policy
	// applies any limits.
	PEM float64

	// Raters counts the valid ratings the member received.
	Raters int

	// Feedback carries the member's own overarching comment from their
	// submission, when they submitted one.
	Feedback string
}
