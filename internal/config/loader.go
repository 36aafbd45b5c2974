package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if PEERVAL_CONFIG is set
//  3. env (prefix PEERVAL_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("PEERVAL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: PEERVAL_SCORE_MIN, PEERVAL_WORKER_COUNT, ...
	// Nested layout keys use double underscores: PEERVAL_LAYOUT__GROUP_ROW.
	envProvider := env.Provider("PEERVAL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "peerval_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate enforces structural invariants the pipeline relies on.
func (c *Config) validate() error {
	if !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("%w: extension must start with a dot, got %q", ErrInvalidConfig, c.Extension)
	}
	if c.ScoreMin >= c.ScoreMax {
		return fmt.Errorf("%w: score_min %v must be below score_max %v", ErrInvalidConfig, c.ScoreMin, c.ScoreMax)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.FormQueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.CollatedFile == "" || c.SummaryFile == "" || c.IssuesFile == "" {
		return fmt.Errorf("%w: output file names must not be empty", ErrInvalidConfig)
	}
	l := c.Layout
	for name, v := range map[string]int{
		"respondent_row":   l.RespondentRow,
		"respondent_col":   l.RespondentCol,
		"group_row":        l.GroupRow,
		"group_col":        l.GroupCol,
		"feedback_row":     l.FeedbackRow,
		"feedback_col":     l.FeedbackCol,
		"member_start_row": l.MemberStartRow,
		"member_name_col":  l.MemberNameCol,
		"score_start_col":  l.ScoreStartCol,
		"comment_col":      l.CommentCol,
	} {
		if v < 0 {
			return fmt.Errorf("%w: layout.%s must not be negative", ErrInvalidConfig, name)
		}
	}
	if l.MemberRowCount < 1 {
		return fmt.Errorf("%w: layout.member_row_count must be positive", ErrInvalidConfig)
	}
	return nil
}
