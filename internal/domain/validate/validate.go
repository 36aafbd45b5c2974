// Package validate checks a parsed batch of response records for
// cross-record consistency before aggregation.
//
// Validation never halts the pipeline: errors exclude the offending records
// from aggregation, warnings leave them in, and the full issue list is
// always returned to the caller. The enumerated checks are:
//
//  1. Respondent completeness: one submission per group member. Duplicate
//     submissions are resolved by the documented first-path-wins policy
//     (see the dedupe package); later forms are excluded and warned about.
//  2. Roster consistency: the rated members of a group must equal its
//     respondents (self-rating included). A member named in scores who never
//     submitted, or a respondent nobody rated, is an error.
//  3. Group identity consistency: all records from one form must agree on
//     the group; a contradiction is an error naming the file.
//  4. Member uniqueness per form: one form may rate each member at most
//     once. A repeated member row would double-count that rater in the
//     member's mean, so the repeated ratings are excluded with an error.
//  5. Score completeness: a member rated by fewer raters than the group has
//     respondents gets a warning, since their mean covers fewer raters.
package validate

import (
	"context"
	"fmt"
	"sort"

	"github.com/groupwork/peerval/internal/domain/dedupe"
	"github.com/groupwork/peerval/internal/domain/issue"
	"github.com/groupwork/peerval/internal/domain/model"
)

// Result is the validated view of a batch.
type Result struct {
	// Kept are the records admitted to aggregation.
	Kept []model.ResponseRecord

	// Feedback holds one overarching comment per retained submission.
	Feedback []model.GroupFeedback

	// Groups are the derived rosters, one per group id, members sorted.
	Groups []model.Group

	// Issues lists every finding from the five checks.
	Issues []issue.Issue
}

// Validator runs the batch consistency checks.
type Validator struct {
	tracker dedupe.Tracker
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithTracker injects a duplicate-submission tracker.
func WithTracker(t dedupe.Tracker) Option {
	return func(v *Validator) {
		if t != nil {
			v.tracker = t
		}
	}
}

// New creates a Validator with configuration options.
func New(opts ...Option) *Validator {
	v := &Validator{
		tracker: dedupe.NewInMemoryTracker(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate checks the full batch. records carries every in-range record the
// parser admitted; feedback carries one entry per successfully parsed form
// and serves as the submission census for completeness checks.
func (v *Validator) Validate(ctx context.Context, records []model.ResponseRecord, feedback []model.GroupFeedback) Result {
	var res Result

	// Duplicate submissions: walk forms in lexicographic path order so the
	// retained form is deterministic regardless of discovery order.
	census := make([]model.GroupFeedback, len(feedback))
	copy(census, feedback)
	sort.Slice(census, func(a, b int) bool { return census[a].SourcePath < census[b].SourcePath })

	excludedPaths := make(map[string]bool)
	respondents := make(map[string]map[string]bool) // group -> respondent set
	for _, fb := range census {
		retained, dup := v.tracker.SeenAndRecord(ctx, fb.Group, fb.Respondent, fb.SourcePath)
		if dup {
			excludedPaths[fb.SourcePath] = true
			res.Issues = append(res.Issues, issue.Issue{
				Severity:   issue.SeverityWarning,
				Scope:      issue.ScopeForm,
				Message:    fmt.Sprintf("duplicate submission by %q for group %q: %s is excluded, %s is retained", fb.Respondent, fb.Group, fb.SourcePath, retained),
				Path:       fb.SourcePath,
				Group:      fb.Group,
				Respondent: fb.Respondent,
			})
			continue
		}
		if respondents[fb.Group] == nil {
			respondents[fb.Group] = make(map[string]bool)
		}
		respondents[fb.Group][fb.Respondent] = true
		res.Feedback = append(res.Feedback, fb)
	}

	// Group identity consistency: records from one form must agree on the
	// group. The parser stamps one group per form, so a contradiction here
	// means the record stream was assembled inconsistently.
	formGroup := make(map[string]string)
	contradicted := make(map[string]bool)
	for _, r := range records {
		if g, ok := formGroup[r.SourcePath]; ok && g != r.Group {
			if !contradicted[r.SourcePath] {
				contradicted[r.SourcePath] = true
				res.Issues = append(res.Issues, issue.Issue{
					Severity: issue.SeverityError,
					Scope:    issue.ScopeForm,
					Message:  fmt.Sprintf("form declares more than one group (%q and %q); its records are excluded", g, r.Group),
					Path:     r.SourcePath,
					Group:    g,
				})
			}
			continue
		}
		formGroup[r.SourcePath] = r.Group
	}

	// Member uniqueness per form: a form that lists the same member on two
	// rows would count one respondent twice in that member's mean.
	memberRows := make(map[string]map[string]int) // path -> member -> row count
	for _, r := range records {
		if excludedPaths[r.SourcePath] || contradicted[r.SourcePath] {
			continue
		}
		if memberRows[r.SourcePath] == nil {
			memberRows[r.SourcePath] = make(map[string]int)
		}
		memberRows[r.SourcePath][r.Member]++
	}
	repeated := make(map[string]map[string]bool) // path -> flagged members
	for _, r := range records {
		if memberRows[r.SourcePath][r.Member] < 2 || repeated[r.SourcePath][r.Member] {
			continue
		}
		if repeated[r.SourcePath] == nil {
			repeated[r.SourcePath] = make(map[string]bool)
		}
		repeated[r.SourcePath][r.Member] = true
		res.Issues = append(res.Issues, issue.Issue{
			Severity:   issue.SeverityError,
			Scope:      issue.ScopeForm,
			Message:    fmt.Sprintf("%q is rated %d times on a single form; those ratings are excluded", r.Member, memberRows[r.SourcePath][r.Member]),
			Path:       r.SourcePath,
			Group:      r.Group,
			Respondent: r.Respondent,
			Member:     r.Member,
		})
	}

	kept := make([]model.ResponseRecord, 0, len(records))
	rated := make(map[string]map[string]bool) // group -> rated member set
	for _, r := range records {
		if excludedPaths[r.SourcePath] || contradicted[r.SourcePath] || repeated[r.SourcePath][r.Member] {
			continue
		}
		kept = append(kept, r)
		if rated[r.Group] == nil {
			rated[r.Group] = make(map[string]bool)
		}
		rated[r.Group][r.Member] = true
	}

	// Roster consistency, both directions.
	ghosts := make(map[string]map[string]bool) // group -> members rated but never respondents
	groupIDs := unionKeys(respondents, rated)
	for _, g := range groupIDs {
		for member := range rated[g] {
			if !respondents[g][member] {
				if ghosts[g] == nil {
					ghosts[g] = make(map[string]bool)
				}
				ghosts[g][member] = true
				res.Issues = append(res.Issues, issue.Issue{
					Severity: issue.SeverityError,
					Scope:    issue.ScopeGroup,
					Message:  fmt.Sprintf("%q appears as a rated member of group %q but never submitted a form; ratings for them are excluded", member, g),
					Group:    g,
					Member:   member,
				})
			}
		}
		for respondent := range respondents[g] {
			if !rated[g][respondent] {
				res.Issues = append(res.Issues, issue.Issue{
					Severity:   issue.SeverityError,
					Scope:      issue.ScopeGroup,
					Message:    fmt.Sprintf("%q submitted a form for group %q but was never rated by anyone, including themselves", respondent, g),
					Group:      g,
					Respondent: respondent,
				})
			}
		}
	}

	// Drop records that rate a ghost member; their summary would describe
	// someone outside the roster.
	if len(ghosts) > 0 {
		filtered := kept[:0]
		for _, r := range kept {
			if ghosts[r.Group][r.Member] {
				continue
			}
			filtered = append(filtered, r)
		}
		kept = filtered
	}

	// Score completeness: fewer ratings than respondents means the member's
	// mean is computed over fewer raters.
	ratingCount := make(map[string]map[string]int) // group -> member -> ratings received
	for _, r := range kept {
		if ratingCount[r.Group] == nil {
			ratingCount[r.Group] = make(map[string]int)
		}
		ratingCount[r.Group][r.Member]++
	}
	for _, g := range groupIDs {
		expected := len(respondents[g])
		for member := range respondents[g] {
			if n := ratingCount[g][member]; n < expected {
				res.Issues = append(res.Issues, issue.Issue{
					Severity: issue.SeverityWarning,
					Scope:    issue.ScopeGroup,
					Message:  fmt.Sprintf("%q received %d of %d ratings in group %q; their mean covers fewer raters", member, n, expected, g),
					Group:    g,
					Member:   member,
				})
			}
		}
	}

	// Derived rosters: the respondents of each group, sorted.
	for _, g := range groupIDs {
		if len(respondents[g]) == 0 {
			continue
		}
		members := make([]string, 0, len(respondents[g]))
		for m := range respondents[g] {
			members = append(members, m)
		}
		sort.Strings(members)
		res.Groups = append(res.Groups, model.Group{ID: g, Members: members})
	}
	sort.Slice(res.Groups, func(a, b int) bool { return res.Groups[a].ID < res.Groups[b].ID })

	res.Kept = kept
	return res
}

// unionKeys returns the sorted union of group ids across both observations.
func unionKeys(a map[string]map[string]bool, b map[string]map[string]bool) []string {
	set := make(map[string]bool, len(a)+len(b))
	for k := range a {
		set[k] = true
	}
	for k := range b {
		set[k] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
