package aggregate_test

import (
	"context"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/groupwork/peerval/internal/domain/aggregate"
	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rating(group, respondent, member string, score float64) model.ResponseRecord {
	var scores [model.NumCriteria]float64
	for i := range scores {
		scores[i] = score
	}
	return model.ResponseRecord{
		Group:      group,
		Respondent: respondent,
		Member:     member,
		Scores:     scores,
		SourcePath: group + "/" + respondent + ".xlsx",
	}
}

func roster(id string, members ...string) model.Group {
	return model.Group{ID: id, Members: members}
}

func TestAggregator_Aggregate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a group of one member rating themselves", t, func() {
		records := []model.ResponseRecord{rating("alpha", "alice", "alice", 3)}
		groups := []model.Group{roster("alpha", "alice")}

		Convey("When aggregated", func() {
			summaries, issues := aggregate.New().Aggregate(ctx, records, groups, nil)

			Convey("Then the PEM is exactly 1.0", func() {
				So(issues, ShouldBeEmpty)
				So(summaries, ShouldHaveLength, 1)
				So(summaries[0].Score, ShouldEqual, 21.0)
				So(summaries[0].GroupScore, ShouldEqual, 21.0)
				So(summaries[0].PEM, ShouldEqual, 1.0)
				So(summaries[0].Raters, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a group where every rating is the maximum", t, func() {
		members := []string{"alice", "bob", "carol"}
		var records []model.ResponseRecord
		for _, respondent := range members {
			for _, member := range members {
				records = append(records, rating("alpha", respondent, member, 5))
			}
		}
		groups := []model.Group{roster("alpha", members...)}

		Convey("When aggregated", func() {
			summaries, issues := aggregate.New().Aggregate(ctx, records, groups, nil)

			Convey("Then every member's PEM is exactly 1.0", func() {
				So(issues, ShouldBeEmpty)
				So(summaries, ShouldHaveLength, 3)
				for _, s := range summaries {
					So(s.Score, ShouldEqual, 35.0)
					So(s.PEM, ShouldEqual, 1.0)
					for _, m := range s.QuestionMeans {
						So(m, ShouldEqual, 5.0)
					}
				}
			})
		})
	})

	Convey("Given an uneven group", t, func() {
		records := []model.ResponseRecord{
			rating("alpha", "alice", "alice", 5),
			rating("alpha", "alice", "bob", 3),
			rating("alpha", "bob", "alice", 5),
			rating("alpha", "bob", "bob", 3),
		}
		groups := []model.Group{roster("alpha", "alice", "bob")}

		Convey("When aggregated", func() {
			summaries, issues := aggregate.New().Aggregate(ctx, records, groups, nil)

			Convey("Then PEM splits around the group mean", func() {
				So(issues, ShouldBeEmpty)
				So(summaries, ShouldHaveLength, 2)
				// alice: 35, bob: 21, group mean 28.
				So(summaries[0].Member, ShouldEqual, "alice")
				So(summaries[0].PEM, ShouldAlmostEqual, 35.0/28.0, 1e-12)
				So(summaries[1].Member, ShouldEqual, "bob")
				So(summaries[1].PEM, ShouldAlmostEqual, 21.0/28.0, 1e-12)
			})

			Convey("And permuting the records changes nothing", func() {
				shuffled := make([]model.ResponseRecord, len(records))
				copy(shuffled, records)
				rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
					shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
				})

				again, _ := aggregate.New().Aggregate(ctx, shuffled, groups, nil)
				So(reflect.DeepEqual(again, summaries), ShouldBeTrue)
			})
		})
	})

	Convey("Given a roster member with zero valid ratings", t, func() {
		records := []model.ResponseRecord{
			rating("alpha", "alice", "alice", 4),
			rating("alpha", "bob", "alice", 4),
		}
		groups := []model.Group{roster("alpha", "alice", "bob")}

		Convey("When aggregated", func() {
			summaries, issues := aggregate.New().Aggregate(ctx, records, groups, nil)

			Convey("Then their summary is NaN, never a silent zero", func() {
				So(summaries, ShouldHaveLength, 2)
				So(summaries[1].Member, ShouldEqual, "bob")
				So(math.IsNaN(summaries[1].Score), ShouldBeTrue)
				So(math.IsNaN(summaries[1].PEM), ShouldBeTrue)
				So(summaries[1].Raters, ShouldEqual, 0)
			})

			Convey("And the group mean covers rated members only", func() {
				So(summaries[0].Member, ShouldEqual, "alice")
				So(summaries[0].GroupScore, ShouldEqual, 28.0)
				So(summaries[0].PEM, ShouldEqual, 1.0)
			})

			Convey("And an error issue names the member", func() {
				So(issues, ShouldHaveLength, 1)
				So(issues[0].Severity, ShouldEqual, issue.SeverityError)
				So(issues[0].Member, ShouldEqual, "bob")
				So(issues[0].Message, ShouldContainSubstring, "no valid ratings")
			})
		})
	})

	Convey("Given a group whose mean score is zero", t, func() {
		records := []model.ResponseRecord{
			rating("alpha", "alice", "alice", 0),
			rating("beta", "bob", "bob", 4),
		}
		groups := []model.Group{roster("alpha", "alice"), roster("beta", "bob")}

		Convey("When aggregated", func() {
			summaries, issues := aggregate.New().Aggregate(ctx, records, groups, nil)

			Convey("Then the degenerate group is dropped and the other survives", func() {
				So(summaries, ShouldHaveLength, 1)
				So(summaries[0].Group, ShouldEqual, "beta")
				So(summaries[0].PEM, ShouldEqual, 1.0)

				So(issues, ShouldHaveLength, 1)
				So(issues[0].Group, ShouldEqual, "alpha")
				So(issues[0].Message, ShouldContainSubstring, "zero or undefined mean score")
			})
		})
	})

	Convey("Given overarching feedback per submission", t, func() {
		records := []model.ResponseRecord{rating("alpha", "alice", "alice", 4)}
		groups := []model.Group{roster("alpha", "alice")}
		feedback := []model.GroupFeedback{{
			Group:      "alpha",
			Respondent: "alice",
			Feedback:   "we shipped on time",
			SourcePath: "alpha/alice.xlsx",
		}}

		Convey("When aggregated", func() {
			summaries, _ := aggregate.New().Aggregate(ctx, records, groups, feedback)

			Convey("Then each member's summary carries the feedback they wrote", func() {
				So(summaries, ShouldHaveLength, 1)
				So(summaries[0].Feedback, ShouldEqual, "we shipped on time")
			})
		})
	})

	Convey("Given two groups in arbitrary order", t, func() {
		records := []model.ResponseRecord{
			rating("beta", "dave", "dave", 4),
			rating("alpha", "alice", "alice", 4),
		}
		groups := []model.Group{roster("beta", "dave"), roster("alpha", "alice")}

		Convey("When aggregated", func() {
			summaries, issues := aggregate.New().Aggregate(ctx, records, groups, nil)

			Convey("Then summaries come back ordered by group then member", func() {
				So(issues, ShouldBeEmpty)
				So(summaries, ShouldHaveLength, 2)
				So(summaries[0].Group, ShouldEqual, "alpha")
				So(summaries[1].Group, ShouldEqual, "beta")
			})
		})
	})
}
