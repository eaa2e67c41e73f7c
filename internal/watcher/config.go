package watcher

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Enabled        bool          `yaml:"enabled"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
	MaxBatchSize   int           `yaml:"max_batch_size"`
	IgnorePatterns []string      `yaml:"ignore_patterns"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		DebounceWindow: 300 * time.Millisecond,
		MaxBatchSize:   100,
		IgnorePatterns: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/*.lock",
			"**/.manifest-*.json",
		},
	}
}

// UnmarshalYAML overlays file values onto whatever the receiver already
// holds, so absent keys keep their defaults. Durations are written in
// time.ParseDuration form ("300ms", "1s").
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type raw struct {
		Enabled        *bool    `yaml:"enabled"`
		DebounceWindow string   `yaml:"debounce_window"`
		MaxBatchSize   *int     `yaml:"max_batch_size"`
		IgnorePatterns []string `yaml:"ignore_patterns"`
	}

	var r raw
	if err := node.Decode(&r); err != nil {
		return err
	}

	if r.Enabled != nil {
		c.Enabled = *r.Enabled
	}
	if r.DebounceWindow != "" {
		d, err := time.ParseDuration(r.DebounceWindow)
		if err != nil {
			return fmt.Errorf("watcher debounce_window: %w", err)
		}
		c.DebounceWindow = d
	}
	if r.MaxBatchSize != nil {
		c.MaxBatchSize = *r.MaxBatchSize
	}
	if r.IgnorePatterns != nil {
		c.IgnorePatterns = r.IgnorePatterns
	}
	return nil
}
