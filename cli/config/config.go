package config

import (
	"fmt"
	"time"
)

// Config represents a windlass.yaml configuration file.
// All values are optional and act as defaults for CLI flags.
// CLI flags always override config values.
type Config struct {
	Remote   RemoteConfig   `yaml:"remote"`
	Transfer TransferConfig `yaml:"transfer"`
	Poll     PollConfig     `yaml:"poll"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Adapter  AdapterConfig  `yaml:"adapter"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// RemoteConfig holds the remote service connection defaults.
type RemoteConfig struct {
	BaseURL string   `yaml:"base_url"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// TransferConfig holds upload defaults from the config file.
type TransferConfig struct {
	// ChunkRetries is the per-chunk retry budget. Nil uses the stock
	// default; explicit 0 disables retry.
	ChunkRetries *int `yaml:"chunk_retries,omitempty"`
	// JournalDir is where resume snapshots are written. Empty disables
	// journaling.
	JournalDir string `yaml:"journal_dir"`
}

// PollConfig holds payment reconciliation defaults from the config file.
type PollConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	Interval    Duration `yaml:"interval,omitempty"`
}

// WorkflowConfig holds completion run defaults from the config file.
type WorkflowConfig struct {
	// ScoreThreshold is the score below which the completion pipeline
	// redirects into recommendation generation. Zero uses the default.
	ScoreThreshold int `yaml:"score_threshold"`
}

// AdapterConfig holds event adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"` // webhook, redis, or empty for none
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// ArchiveConfig holds report archive defaults from the config file.
type ArchiveConfig struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
