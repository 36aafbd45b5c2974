// Package config defines tool configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Layout describes where the fixed-layout survey template keeps its data.
// All offsets are zero-based row/column indices into the raw cell grid.
// The defaults match the workshop template the tool was written for; a new
// template only needs a config change, never a code edit.
type Layout struct {
	// RespondentRow/RespondentCol locate the respondent's name cell.
	RespondentRow int `koanf:"respondent_row"`
	RespondentCol int `koanf:"respondent_col"`

	// GroupRow/GroupCol locate the group name cell.
	GroupRow int `koanf:"group_row"`
	GroupCol int `koanf:"group_col"`

	// FeedbackRow/FeedbackCol locate the overarching group feedback cell.
	FeedbackRow int `koanf:"feedback_row"`
	FeedbackCol int `koanf:"feedback_col"`

	// MemberStartRow is the first rated-member row; MemberRowCount is the
	// number of member slots in the template.
	MemberStartRow int `koanf:"member_start_row"`
	MemberRowCount int `koanf:"member_row_count"`

	// MemberNameCol holds the rated member's name within a member row.
	MemberNameCol int `koanf:"member_name_col"`

	// ScoreStartCol is the first of the consecutive criterion score columns.
	ScoreStartCol int `koanf:"score_start_col"`

	// CommentCol holds the per-member free-text comment.
	CommentCol int `koanf:"comment_col"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Extension selects which files discovery picks up, e.g. ".xlsx".
	Extension string `koanf:"extension"`

	// WorkerCount sets the number of parse workers.
	WorkerCount int `koanf:"worker_count"`

	// FormQueueSize bounds the in-memory form queue.
	FormQueueSize int `koanf:"queue_size"`

	// ScoreMin and ScoreMax bound valid criterion scores (inclusive).
	ScoreMin float64 `koanf:"score_min"`
	ScoreMax float64 `koanf:"score_max"`

	// CollatedFile, SummaryFile, and IssuesFile name the CSV outputs,
	// written into the scanned directory.
	CollatedFile string `koanf:"collated_file"`
	SummaryFile  string `koanf:"summary_file"`
	IssuesFile   string `koanf:"issues_file"`

	// MetricsFile, when set, receives a Prometheus textfile dump at the end
	// of the run. Empty disables the dump.
	MetricsFile string `koanf:"metrics_file"`

	// Layout holds the template cell offsets.
	Layout Layout `koanf:"layout"`
}

// New creates a Config using provided options. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:      "info",
		Extension:     ".xlsx",
		WorkerCount:   runtime.NumCPU(),
		FormQueueSize: 1024,
		ScoreMin:      1,
		ScoreMax:      5,
		CollatedFile:  "peereval.csv",
		SummaryFile:   "pem.csv",
		IssuesFile:    "issues.csv",
		Layout: Layout{
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
	}
	return c
}
