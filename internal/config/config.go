package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"treeclean/internal/rules"
)

type RulesCfg struct {
	Include []rules.Rule `yaml:"include" json:"include"`
	Exclude []rules.Rule `yaml:"exclude" json:"exclude"`
	// ReplaceDefaults drops the built-in rules instead of appending to them
	ReplaceDefaults bool `yaml:"replace_default_rules" json:"replace_default_rules"`
}

type LoggingCfg struct {
	File       string `yaml:"file" json:"file"`               // Optional rotated log file, stderr only when empty
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"` // Rotate after this many megabytes
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
	Quiet      bool   `yaml:"quiet" json:"quiet"` // Only errors reach stderr
}

type Config struct {
	Root            string     `yaml:"root" json:"root"`
	Rules           RulesCfg   `yaml:"rules" json:"rules"`
	DryRun          bool       `yaml:"dry_run" json:"dry_run"`
	DatabasePath    string     `yaml:"database_path" json:"database_path"`       // SQLite deletion history, disabled when empty
	MetricsTextfile string     `yaml:"metrics_textfile" json:"metrics_textfile"` // node_exporter textfile, disabled when empty
	Logging         LoggingCfg `yaml:"logging" json:"logging"`
}

var (
	errEmptyRoot    = errors.New("root must not be empty")
	errRootNotDir   = errors.New("root is not a directory")
	errNoInclusions = errors.New("no inclusion rules configured")
)

// Default returns the configuration used when no file is given: clean the
// current working directory with the built-in rules.
func Default() *Config {
	cfg := &Config{Root: "."}
	if err := cfg.validateAndDefault(); err != nil {
		// Built-in values always validate.
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file means defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if strings.TrimSpace(c.Root) == "" {
		c.Root = "."
	}
	c.Root = filepath.Clean(c.Root)

	if !c.Rules.ReplaceDefaults {
		c.Rules.Include = append(rules.DefaultInclude(), c.Rules.Include...)
		c.Rules.Exclude = append(rules.DefaultExclude(), c.Rules.Exclude...)
		c.Rules.ReplaceDefaults = true
	}
	if len(c.Rules.Include) == 0 {
		return errNoInclusions
	}
	if err := c.Filter().Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 30
	}

	return nil
}

// CheckRoot verifies that the root exists and is a directory.
func (c *Config) CheckRoot() error {
	if c.Root == "" {
		return errEmptyRoot
	}
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", errRootNotDir, c.Root)
	}
	return nil
}

// Filter builds the inclusion/exclusion filter from the resolved rules.
func (c *Config) Filter() rules.Filter {
	return rules.Filter{
		Include: rules.Set(c.Rules.Include),
		Exclude: rules.Set(c.Rules.Exclude),
	}
}
