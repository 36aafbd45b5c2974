// Package issue defines validation issues and their accumulation.
//
// Issues are collected, never thrown mid-pipeline: every stage appends to a
// shared list and the controller surfaces the whole list at the end of the
// run so corrected forms can be resubmitted.
package issue

import (
	"fmt"
	"sort"
	"sync"
)

// Severity classifies how an issue affects the run.
type Severity string

// Severity values.
const (
	// SeverityWarning marks informational findings; the record still
	// participates unless the documented duplicate policy excludes it.
	SeverityWarning Severity = "warning"
	// SeverityError marks findings that exclude the offending record (or
	// group summary) from aggregation.
	SeverityError Severity = "error"
)

// Scope identifies what a finding is about.
type Scope string

// Scope values.
const (
	ScopeForm   Scope = "form"
	ScopeGroup  Scope = "group"
	ScopeRecord Scope = "record"
)

// Issue is one validation or computation finding. Issues never mutate source
// data; identifiers are carried for context only.
type Issue struct {
	Severity   Severity
	Scope      Scope
	Message    string
	Path       string // form file, when known
	Group      string
	Respondent string
	Member     string
}

// String renders the issue the way it is logged and listed.
func (i Issue) String() string {
	s := fmt.Sprintf("[%s/%s] %s", i.Severity, i.Scope, i.Message)
	if i.Path != "" {
		s += " (file " + i.Path + ")"
	}
	return s
}

// List is an append-only, thread-safe issue accumulator. Parse workers
// append concurrently; All sorts deterministically so the surfaced order
// never depends on scheduling.
type List struct {
	mu     sync.Mutex
	issues []Issue
}

// NewList creates an empty issue list.
func NewList() *List {
	return &List{}
}

// Add appends issues to the list.
func (l *List) Add(issues ...Issue) {
	if len(issues) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issues = append(l.issues, issues...)
}

// All returns a sorted copy of the accumulated issues, ordered by
// (scope, group, path, respondent, member, severity, message).
func (l *List) All() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Issue, len(l.issues))
	copy(out, l.issues)
	sort.Slice(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.Scope != y.Scope {
			return x.Scope < y.Scope
		}
		if x.Group != y.Group {
			return x.Group < y.Group
		}
		if x.Path != y.Path {
			return x.Path < y.Path
		}
		if x.Respondent != y.Respondent {
			return x.Respondent < y.Respondent
		}
		if x.Member != y.Member {
			return x.Member < y.Member
		}
		if x.Severity != y.Severity {
			return x.Severity < y.Severity
		}
		return x.Message < y.Message
	})
	return out
}

// Count returns how many issues of the given severity are present.
func (l *List) Count(sev Severity) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, i := range l.issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// Len returns the total number of issues.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.issues)
}
