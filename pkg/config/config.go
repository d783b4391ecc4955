// Package config defines the configuration struct consumed (not parsed)
// by the core, matching spec §6 field-for-field. Loading it from
// env/flags/file is the named out-of-scope external collaborator (spec
// §1); this package only defines the struct and a defaulting helper.
package config

import (
	"time"

	"dario.cat/mergo"

	"github.com/arlyon/linear-motion/pkg/downstream"
)

// UpstreamSource is one entry in upstream_sources[] (spec §6): "One entry
// per Upstream workspace; each carries API key, project filter, optional
// webhook base URL."
type UpstreamSource struct {
	APIKey          string
	ProjectFilter   []string
	WebhookBaseURL  string
}

// ScheduleOverride is one entry in schedule_overrides[] (spec §6):
// "Per-time-window poll periods."
type ScheduleOverride struct {
	StartHourUTC  int
	EndHourUTC    int
	PollInterval  time.Duration
}

// Config is the core's configuration contract (spec §6).
type Config struct {
	DownstreamAPIKey        string
	UpstreamSources         []UpstreamSource
	DefaultTaskDurationMins int
	TimeEstimateStrategy    downstream.Strategy
	CompletedUpstreamLabel  string
	PollIntervalSeconds     int
	ScheduleOverrides       []ScheduleOverride

	// QueueCapacity bounds the diff queue (spec §5: "capacity e.g.
	// 1024"); ambient tuning knob not named in spec §6's external table
	// but required to construct pkg/engine.Queue.
	QueueCapacity int
	// MaxBatch bounds the consumer's per-tick batch size (spec §4.5).
	MaxBatch int
}

// Defaults returns the baseline configuration a caller-supplied partial
// Config is merged over.
func Defaults() Config {
	return Config{
		DefaultTaskDurationMins: 30,
		TimeEstimateStrategy:    downstream.StrategyFibonacci,
		CompletedUpstreamLabel:  "motioned",
		PollIntervalSeconds:     10,
		QueueCapacity:           1024,
		MaxBatch:                32,
	}
}

// WithDefaults merges partial over Defaults(), so zero-valued fields
// (default_task_duration_mins, poll_interval_seconds, etc.) fall back
// correctly without hand-rolled per-field `if cfg.X == 0` checks.
// Continues the teacher's own dario.cat/mergo dependency, there used to
// merge Kong declarative-config fragments; here merging a caller-supplied
// partial Config over Defaults().
func WithDefaults(partial Config) (Config, error) {
	merged := Defaults()
	if err := mergo.Merge(&merged, partial, mergo.WithOverride); err != nil {
		return Config{}, err
	}
	return merged, nil
}

// PollInterval returns PollIntervalSeconds as a time.Duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
