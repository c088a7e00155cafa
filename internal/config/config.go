package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Sim       SimConfig       `toml:"sim"`
	Filters   FiltersConfig   `toml:"filters"`
	Scripting ScriptingConfig `toml:"scripting"`
	Profile   ProfileConfig   `toml:"profile"`
	Logging   LoggingConfig   `toml:"logging"`
}

type WorldConfig struct {
	InitialCapacity int  `toml:"initial_capacity"` // rounded up to the next table prime
	Checked         bool `toml:"checked"`          // assert registry contracts (panics on misuse)
}

type SimConfig struct {
	Ticks            int           `toml:"ticks"`     // 0 = run until interrupted
	TickRate         time.Duration `toml:"tick_rate"` // 0 = no pacing
	Seed             int64         `toml:"seed"`
	SpawnPerTick     int           `toml:"spawn_per_tick"`
	MutationsPerTick int           `toml:"mutations_per_tick"`
	DestroyChance    float64       `toml:"destroy_chance"` // per mutation (0.0-1.0)
	MaxEntities      int           `toml:"max_entities"`   // spawning pauses above this
	AuditEvery       int           `toml:"audit_every"`    // ticks between full audits, 0 = never
	Tags             []string      `toml:"tags"`
	ValueKeys        []string      `toml:"value_keys"`
	ValueRange       int           `toml:"value_range"` // values are drawn from [0, value_range)
}

type FiltersConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"` // hot-reload definitions and scripts on change
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu", "mem", "allocs", "block", "mutex", "trace"
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func (c *Config) validate() error {
	if c.World.InitialCapacity < 0 {
		return fmt.Errorf("world.initial_capacity must be >= 0, got %d", c.World.InitialCapacity)
	}
	if c.Sim.DestroyChance < 0 || c.Sim.DestroyChance > 1 {
		return fmt.Errorf("sim.destroy_chance must be within [0, 1], got %g", c.Sim.DestroyChance)
	}
	if c.Sim.ValueRange <= 0 {
		return fmt.Errorf("sim.value_range must be > 0, got %d", c.Sim.ValueRange)
	}
	if len(c.Sim.Tags) == 0 && len(c.Sim.ValueKeys) == 0 {
		return fmt.Errorf("sim needs at least one tag or value key to mutate")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			InitialCapacity: 7,
			Checked:         false,
		},
		Sim: SimConfig{
			Ticks:            200,
			TickRate:         0,
			Seed:             1,
			SpawnPerTick:     8,
			MutationsPerTick: 32,
			DestroyChance:    0.05,
			MaxEntities:      2000,
			AuditEvery:       10,
			Tags:             []string{"red", "blue", "green", "hostile"},
			ValueKeys:        []string{"hp", "level"},
			ValueRange:       10,
		},
		Filters: FiltersConfig{
			Path:  "data/filters.yaml",
			Watch: false,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Profile: ProfileConfig{
			Mode: "",
			Path: ".",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
