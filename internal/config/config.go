package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "WORLDTREE_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "config/worldtree.toml"

type Config struct {
	World      WorldConfig      `toml:"world"`
	Simulation SimulationConfig `toml:"simulation"`
	Logging    LoggingConfig    `toml:"logging"`
	Database   DatabaseConfig   `toml:"database"`
	Inspector  InspectorConfig  `toml:"inspector"`
	Profile    ProfileConfig    `toml:"profile"`
}

type WorldConfig struct {
	File       string `toml:"file"`        // world document, .xml or .yaml
	Classes    string `toml:"classes"`     // script action class table, optional
	ScriptsDir string `toml:"scripts_dir"` // Lua scripts for script actions
}

type SimulationConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	MaxTicks uint64        `toml:"max_ticks"` // 0 = run until interrupted
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// DatabaseConfig configures the snapshot store. An empty DSN disables it.
type DatabaseConfig struct {
	DSN              string        `toml:"dsn"`
	MaxOpenConns     int           `toml:"max_open_conns"`
	MaxIdleConns     int           `toml:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `toml:"conn_max_lifetime"`
	SnapshotInterval uint64        `toml:"snapshot_interval"` // ticks between snapshots
}

type InspectorConfig struct {
	Enabled           bool          `toml:"enabled"`
	BindAddress       string        `toml:"bind_address"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	MaxSessions       int           `toml:"max_sessions"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu" or "mem"
	Path string `toml:"path"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the config file path from the environment or the default.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) validate() error {
	if c.World.File == "" {
		return fmt.Errorf("world.file is required")
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive, got %s", c.Simulation.TickRate)
	}
	if c.Inspector.Enabled && c.Inspector.MaxSessions <= 0 {
		return fmt.Errorf("inspector.max_sessions must be positive, got %d", c.Inspector.MaxSessions)
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		return fmt.Errorf("profile.mode %q: want cpu, mem or empty", c.Profile.Mode)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			File:       "data/world.xml",
			ScriptsDir: "scripts",
		},
		Simulation: SimulationConfig{
			TickRate: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			MaxOpenConns:     4,
			MaxIdleConns:     1,
			ConnMaxLifetime:  30 * time.Minute,
			SnapshotInterval: 600,
		},
		Inspector: InspectorConfig{
			BindAddress:       "127.0.0.1:7070",
			InQueueSize:       32,
			OutQueueSize:      64,
			MaxPacketsPerTick: 16,
			MaxSessions:       8,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       5 * time.Minute,
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}
