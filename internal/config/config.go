// Package config loads the augext.yaml project configuration: where the
// module tree, the external stores, and the coordination manifest live.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/augmentcode/augment-extensions/internal/watcher"
)

const FileName = "augext.yaml"

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	// ModulesRoot is the category tree discovery walks.
	ModulesRoot string `yaml:"modules_root"`
	// SpecsRoot is the externally-owned spec document tree.
	SpecsRoot string `yaml:"specs_root"`
	// TaskLog is the tracker's JSONL export. TaskDB, when set, points at
	// the tracker's sqlite database and takes precedence.
	TaskLog string `yaml:"task_log"`
	TaskDB  string `yaml:"task_db"`
	// ManifestPath is the coordination manifest this tool owns.
	ManifestPath string `yaml:"manifest"`

	Log     LogConfig      `yaml:"log"`
	Watcher watcher.Config `yaml:"watcher"`
}

func Default() *Config {
	return &Config{
		ModulesRoot:  "modules",
		SpecsRoot:    "specs",
		TaskLog:      filepath.Join(".augext", "tasks.jsonl"),
		ManifestPath: filepath.Join(".augext", "manifest.json"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Watcher: watcher.DefaultConfig(),
	}
}

// Load reads the config at path, falling back to defaults when the file
// does not exist. Values present in the file override defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ModulesRoot == "" {
		return errors.New("config: modules_root is required")
	}
	if c.SpecsRoot == "" {
		return errors.New("config: specs_root is required")
	}
	if c.TaskLog == "" && c.TaskDB == "" {
		return errors.New("config: one of task_log or task_db is required")
	}
	if c.ManifestPath == "" {
		return errors.New("config: manifest is required")
	}
	return nil
}
