// Package config loads recycler.Option tuning from a TOML file, for
// command-line tools that want to externalize pool sizing without a
// recompile. The recycler package itself never depends on this one;
// construction always goes through a plain []recycler.Option slice.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/gorecycler/recycler"
)

// Config mirrors the tunable knobs exposed by recycler.Option.
type Config struct {
	MaxCapacityPerThread     int    `toml:"max_capacity_per_thread"`
	SharedCapacityFactor     int    `toml:"shared_capacity_factor"`
	Ratio                    int    `toml:"ratio"`
	LinkCapacity             int    `toml:"link_capacity"`
	MaxDelayedQueuesPerOwner int    `toml:"max_delayed_queues_per_owner"`
	AutoSizedCapacity        bool   `toml:"auto_sized_capacity"`
	LogLevel                 string `toml:"log_level"`
}

// Load decodes a Config from the TOML file at path. Zero-valued fields left
// unset in the file fall back to recycler's own defaults at Options() time,
// except AutoSizedCapacity and LogLevel, whose zero values ("false" / "")
// are already the sensible defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Options translates a Config into a []recycler.Option, skipping any field
// left at its zero value so recycler.New's own defaults apply instead.
func (c Config) Options(extra ...recycler.Option) ([]recycler.Option, error) {
	var opts []recycler.Option
	if c.MaxCapacityPerThread > 0 {
		opts = append(opts, recycler.WithMaxCapacityPerThread(c.MaxCapacityPerThread))
	}
	if c.SharedCapacityFactor > 0 {
		opts = append(opts, recycler.WithSharedCapacityFactor(c.SharedCapacityFactor))
	}
	if c.Ratio > 0 {
		opts = append(opts, recycler.WithRatio(c.Ratio))
	}
	if c.LinkCapacity > 0 {
		opts = append(opts, recycler.WithLinkCapacity(c.LinkCapacity))
	}
	if c.MaxDelayedQueuesPerOwner > 0 {
		opts = append(opts, recycler.WithMaxDelayedQueuesPerThread(c.MaxDelayedQueuesPerOwner))
	}
	if c.AutoSizedCapacity {
		opts = append(opts, recycler.WithAutoSizedCapacity())
	}
	if c.LogLevel != "" {
		level, err := parseLogLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, recycler.WithLogger(recycler.NewStumpyLogger(level)))
	}
	opts = append(opts, extra...)
	return opts, nil
}

func parseLogLevel(s string) (recycler.Level, error) {
	switch s {
	case "debug":
		return recycler.LevelDebug, nil
	case "info":
		return recycler.LevelInfo, nil
	case "warn":
		return recycler.LevelWarn, nil
	case "error":
		return recycler.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log_level %q", s)
	}
}
