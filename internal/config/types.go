package config

import (
	"fmt"
	"time"

	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

// Config is the daemon-side configuration for the nekopara CLI. The crawl
// core itself only sees the derived crawl.Config.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Crawler    CrawlerConfig    `yaml:"crawler"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Storage    StorageConfig    `yaml:"storage"`
}

type LogConfig struct {
	Level   string        `yaml:"level"`
	Console bool          `yaml:"console"`
	File    LogFileConfig `yaml:"file"`
}

type LogFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type CrawlerConfig struct {
	Workers int `yaml:"workers"`
	// Interval is a duration string ("250ms", "2s"); minimum spacing
	// between dispatches.
	Interval string `yaml:"interval"`
	// Dedup defaults to true when omitted.
	Dedup *bool `yaml:"dedup"`
}

type CheckpointConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron expression or "@every <duration>".
	Schedule string `yaml:"schedule"`
}

type StorageConfig struct {
	// Driver selects the snapshot store backend: "file", "sqlite", or
	// empty/"none" to disable persistence.
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Console: true},
		Crawler: CrawlerConfig{
			Workers: 1,
		},
		Checkpoint: CheckpointConfig{
			Schedule: "@every 30s",
		},
	}
}

// Validate checks everything that Load's strict decoding cannot.
func (c *Config) Validate() error {
	if c.Crawler.Workers < 0 {
		return fmt.Errorf("crawler.workers: must be >= 0")
	}
	if _, err := ParseDurationField("crawler.interval", c.Crawler.Interval); err != nil {
		return err
	}
	if c.Checkpoint.Enabled && c.Checkpoint.Schedule == "" {
		return fmt.Errorf("checkpoint.schedule: required when checkpoint is enabled")
	}
	switch c.Storage.Driver {
	case "", "none", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	return nil
}

// SchedulerConfig derives the crawl core configuration.
func (c *Config) SchedulerConfig() (crawl.Config, error) {
	interval, err := ParseDurationField("crawler.interval", c.Crawler.Interval)
	if err != nil {
		return crawl.Config{}, err
	}
	out := crawl.Config{
		Workers:  c.Crawler.Workers,
		Interval: interval,
	}
	if c.Crawler.Dedup != nil && !*c.Crawler.Dedup {
		out.DisableDedup = true
	}
	return out, nil
}

// LogxConfig derives the logging service configuration.
func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Log.Level,
		Console: c.Log.Console,
		File: logx.FileConfig{
			Enabled: c.Log.File.Enabled,
			Path:    c.Log.File.Path,
		},
	}
}

// ParseDurationField parses a non-negative duration string, empty meaning 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
