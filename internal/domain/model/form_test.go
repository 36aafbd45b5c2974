package model_test

import (
	"testing"

	"github.com/groupwork/peerval/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormFileCell(t *testing.T) {
	Convey("Given a form with a ragged grid", t, func() {
		f := model.FormFile{
			Path: "f.xlsx",
			Grid: [][]string{
				{"a", "b"},
				{"c"},
			},
		}

		Convey("Then cells inside the grid read back", func() {
			So(f.Cell(0, 1), ShouldEqual, "b")
			So(f.Cell(1, 0), ShouldEqual, "c")
		})

		Convey("Then cells beyond a short row read as blank", func() {
			So(f.Cell(1, 1), ShouldEqual, "")
		})

		Convey("Then rows beyond the grid read as blank", func() {
			So(f.Cell(5, 0), ShouldEqual, "")
			So(f.Cell(-1, 0), ShouldEqual, "")
			So(f.Cell(0, -1), ShouldEqual, "")
		})
	})
}

func TestResponseRecordTotal(t *testing.T) {
	Convey("Given a record with mixed scores", t, func() {
		r := model.ResponseRecord{Scores: [model.NumCriteria]float64{1, 2, 3, 4, 5, 4, 3}}

		Convey("Then Total sums the criteria", func() {
			So(r.Total(), ShouldEqual, 22.0)
		})
	})
}
