// Package aggregate computes per-member summaries and the Peer Evaluation
// Multiplier (PEM) from a validated batch of response records.
//
// PEM is a member's mean received score divided by their group's mean score.
// It is emitted as a raw ratio: clamping to a policy band (0.75-1.25 in the
// original workshop material) is a downstream concern.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
)

// Aggregator computes member summaries. Aggregation is a pure fold over the
// record multiset: permuting the input yields identical summaries.
type Aggregator struct{}

// New creates an Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Aggregate produces one MemberSummary per (group, roster member), ordered
// by (group, member). A member with zero valid ratings yields a NaN summary
// and an error issue, never a silent zero. A group whose mean score is zero
// or undefined is dropped from the output with an error; other groups are
// unaffected.
func (a *Aggregator) Aggregate(_ context.Context, records []model.ResponseRecord, groups []model.Group, feedback []model.GroupFeedback) ([]model.MemberSummary, []issue.Issue) {
	var issues []issue.Issue

	received := make(map[string]map[string][]model.ResponseRecord) // group -> member -> ratings
	for _, r := range records {
		if received[r.Group] == nil {
			received[r.Group] = make(map[string][]model.ResponseRecord)
		}
		received[r.Group][r.Member] = append(received[r.Group][r.Member], r)
	}

	comments := make(map[string]string) // group+"\x00"+respondent -> overarching feedback
	for _, fb := range feedback {
		comments[fb.Group+"\x00"+fb.Respondent] = fb.Feedback
	}

	var out []model.MemberSummary
	for _, g := range groups {
		summaries := make([]model.MemberSummary, 0, len(g.Members))
		var ratedScores []float64

		for _, member := range g.Members {
			recs := received[g.ID][member]
			s := model.MemberSummary{
				Group:    g.ID,
				Member:   member,
				Raters:   len(recs),
				Feedback: comments[g.ID+"\x00"+member],
			}

			if len(recs) == 0 {
				for q := range s.QuestionMeans {
					s.QuestionMeans[q] = math.NaN()
				}
				s.Score = math.NaN()
				s.PEM = math.NaN()
				issues = append(issues, issue.Issue{
					Severity: issue.SeverityError,
					Scope:    issue.ScopeGroup,
					Message:  fmt.Sprintf("%q has no valid ratings in group %q; their summary is undefined", member, g.ID),
					Group:    g.ID,
					Member:   member,
				})
				summaries = append(summaries, s)
				continue
			}

			var totals float64
			for q := 0; q < model.NumCriteria; q++ {
				var sum float64
				for _, r := range recs {
					sum += r.Scores[q]
				}
				s.QuestionMeans[q] = sum / float64(len(recs))
			}
			for _, r := range recs {
				totals += r.Total()
			}
			// Mean of per-rater row totals. With incomplete rows already
			// excluded at parse time this equals the sum of per-question
			// means.
			s.Score = totals / float64(len(recs))

			ratedScores = append(ratedScores, s.Score)
			summaries = append(summaries, s)
		}

		groupMean := mean(ratedScores)
		if len(ratedScores) == 0 || groupMean == 0 || math.IsNaN(groupMean) {
			issues = append(issues, issue.Issue{
				Severity: issue.SeverityError,
				Scope:    issue.ScopeGroup,
				Message:  fmt.Sprintf("group %q has a zero or undefined mean score; its summary is omitted", g.ID),
				Group:    g.ID,
			})
			continue
		}

		for i := range summaries {
			summaries[i].GroupScore = groupMean
			if summaries[i].Raters > 0 {
				summaries[i].PEM = summaries[i].Score / groupMean
			}
		}
		out = append(out, summaries...)
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Group != out[b].Group {
			return out[a].Group < out[b].Group
		}
		return out[a].Member < out[b].Member
	})
	return out, issues
}

// mean returns the arithmetic mean, or NaN for an empty input.
func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
