package parse_test

import (
	"context"
	"strings"
	"testing"

	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
	"github.com/groupwork/peerval/internal/domain/parse"
	. "github.com/smartystreets/goconvey/convey"
)

// newGrid builds an empty grid large enough for the default layout.
func newGrid() [][]string {
	g := make([][]string, 26)
	for i := range g {
		g[i] = make([]string, 13)
	}
	return g
}

func setHeader(g [][]string, group, respondent, feedback string) {
	g[2][2] = respondent
	g[4][2] = group
	g[9][11] = feedback
}

func setMemberRow(g [][]string, slot int, name string, scores []string, comment string) {
	row := 17 + slot
	g[row][1] = name
	for q, s := range scores {
		g[row][2+q] = s
	}
	g[row][11] = comment
}

func allFives() []string {
	return []string{"5", "5", "5", "5", "5", "5", "5"}
}

func TestParser_ParseForm(t *testing.T) {
	Convey("Given a parser with the default layout", t, func() {
		p := parse.New()
		ctx := context.Background()

		Convey("When parsing a fully filled form", func() {
			g := newGrid()
			setHeader(g, "alpha", "alice", "great team")
			setMemberRow(g, 0, "alice", allFives(), "self note")
			setMemberRow(g, 1, "bob", []string{"4", "4", "4", "4", "4", "4", "4"}, "solid")
			setMemberRow(g, 2, "carol", []string{"3", "4", "5", "3", "4", "5", "3"}, "")

			res := p.ParseForm(ctx, model.FormFile{Path: "alpha/alice.xlsx", Grid: g})

			Convey("Then it yields one record per filled member row", func() {
				So(res.Records, ShouldHaveLength, 3)
				So(res.Rejected, ShouldBeEmpty)
				So(res.Issues, ShouldBeEmpty)
				So(res.Records[0].Group, ShouldEqual, "alpha")
				So(res.Records[0].Respondent, ShouldEqual, "alice")
				So(res.Records[0].Member, ShouldEqual, "alice")
				So(res.Records[0].Total(), ShouldEqual, 35.0)
				So(res.Records[1].Comment, ShouldEqual, "solid")
			})

			Convey("And it captures the overarching feedback once", func() {
				So(res.Feedback, ShouldNotBeNil)
				So(res.Feedback.Group, ShouldEqual, "alpha")
				So(res.Feedback.Respondent, ShouldEqual, "alice")
				So(res.Feedback.Feedback, ShouldEqual, "great team")
			})
		})

		Convey("When a member slot is blank", func() {
			g := newGrid()
			setHeader(g, "alpha", "alice", "")
			setMemberRow(g, 0, "alice", allFives(), "")
			// slots 1..7 left empty

			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: g})

			Convey("Then unused slots are skipped without issues", func() {
				So(res.Records, ShouldHaveLength, 1)
				So(res.Issues, ShouldBeEmpty)
			})
		})

		Convey("When scores are present but the member name is blank", func() {
			g := newGrid()
			setHeader(g, "alpha", "alice", "")
			setMemberRow(g, 0, "", allFives(), "")

			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: g})

			Convey("Then it is an error and no record is produced", func() {
				So(res.Records, ShouldBeEmpty)
				So(res.Issues, ShouldHaveLength, 1)
				So(res.Issues[0].Severity, ShouldEqual, issue.SeverityError)
				So(res.Issues[0].Scope, ShouldEqual, issue.ScopeRecord)
				So(res.Issues[0].Message, ShouldContainSubstring, "name cell is blank")
			})
		})

		Convey("When a score cell is blank", func() {
			g := newGrid()
			setHeader(g, "alpha", "alice", "")
			scores := allFives()
			scores[3] = "" // Q4
			setMemberRow(g, 0, "bob", scores, "")

			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: g})

			Convey("Then the record is dropped with one error naming the cell", func() {
				So(res.Records, ShouldBeEmpty)
				So(res.Rejected, ShouldBeEmpty)
				So(res.Issues, ShouldHaveLength, 1)
				So(res.Issues[0].Message, ShouldContainSubstring, "Q4")
				So(res.Issues[0].Member, ShouldEqual, "bob")
			})
		})

		Convey("When a score cell is non-numeric", func() {
			g := newGrid()
			setHeader(g, "alpha", "alice", "")
			scores := allFives()
			scores[6] = "five"
			setMemberRow(g, 0, "bob", scores, "")

			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: g})

			Convey("Then the record is dropped with one error naming the cell", func() {
				So(res.Records, ShouldBeEmpty)
				So(res.Issues, ShouldHaveLength, 1)
				So(res.Issues[0].Message, ShouldContainSubstring, "Q7")
			})
		})

		Convey("When scores fall outside the valid range", func() {
			g := newGrid()
			setHeader(g, "alpha", "alice", "")
			scores := allFives()
			scores[0] = "9"
			scores[4] = "0"
			setMemberRow(g, 0, "bob", scores, "")

			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: g})

			Convey("Then the record is rejected but retained, with one error per offending cell", func() {
				So(res.Records, ShouldBeEmpty)
				So(res.Rejected, ShouldHaveLength, 1)
				So(res.Rejected[0].Member, ShouldEqual, "bob")
				So(res.Issues, ShouldHaveLength, 2)
				for _, i := range res.Issues {
					So(i.Severity, ShouldEqual, issue.SeverityError)
					So(i.Message, ShouldContainSubstring, "outside the valid range")
				}
			})
		})

		Convey("When the group cell is blank", func() {
			g := newGrid()
			setHeader(g, "", "alice", "")
			setMemberRow(g, 0, "alice", allFives(), "")

			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: g})

			Convey("Then the whole form is skipped with a form-scope error", func() {
				So(res.Records, ShouldBeEmpty)
				So(res.Feedback, ShouldBeNil)
				So(res.Issues, ShouldHaveLength, 1)
				So(res.Issues[0].Scope, ShouldEqual, issue.ScopeForm)
			})
		})

		Convey("When the grid is shorter than the layout", func() {
			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: [][]string{{"x"}}})

			Convey("Then missing cells read as blank and the form is skipped", func() {
				So(res.Records, ShouldBeEmpty)
				So(res.Issues, ShouldHaveLength, 1)
				So(res.Issues[0].Scope, ShouldEqual, issue.ScopeForm)
			})
		})
	})
}

func TestParser_Options(t *testing.T) {
	Convey("Given a parser with a custom score range", t, func() {
		p := parse.New(parse.WithScoreRange(0, 10))
		ctx := context.Background()

		Convey("When a score uses the wider range", func() {
			g := newGrid()
			setHeader(g, "alpha", "alice", "")
			setMemberRow(g, 0, "bob", []string{"0", "10", "7", "8", "9", "10", "0"}, "")

			res := p.ParseForm(ctx, model.FormFile{Path: "f.xlsx", Grid: g})

			Convey("Then the record is admitted", func() {
				So(res.Records, ShouldHaveLength, 1)
				So(res.Issues, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a parser with a custom layout", t, func() {
		layout := parse.Layout{
			RespondentRow:  0,
			RespondentCol:  0,
			GroupRow:       0,
			GroupCol:       1,
			FeedbackRow:    0,
			FeedbackCol:    2,
			MemberStartRow: 1,
			MemberRowCount: 2,
			MemberNameCol:  0,
			ScoreStartCol:  1,
			CommentCol:     8,
		}
		p := parse.New(parse.WithLayout(layout))

		Convey("When parsing a compact grid", func() {
			grid := [][]string{
				{"alice", "alpha", "all good"},
				{"alice", "5", "5", "5", "5", "5", "5", "5", "nice"},
				{"bob", "4", "4", "4", "4", "4", "4", "4", ""},
			}

			res := p.ParseForm(context.Background(), model.FormFile{Path: "f.xlsx", Grid: grid})

			Convey("Then records come from the configured cells", func() {
				So(res.Issues, ShouldBeEmpty)
				So(res.Records, ShouldHaveLength, 2)
				So(res.Records[0].Comment, ShouldEqual, "nice")
				So(res.Records[1].Member, ShouldEqual, "bob")
				So(strings.TrimSpace(res.Feedback.Feedback), ShouldEqual, "all good")
			})
		})
	})
}
