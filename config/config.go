// Package config loads runtime settings from an optional YAML file and
// COSMIC_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/cosmicisles/engine/state"
	"github.com/nathoo/cosmicisles/store"
	"github.com/nathoo/cosmicisles/types"
)

// Telemetry sinks.
const (
	SinkNone  = "none"
	SinkRedis = "redis"
	SinkJSONL = "jsonl"
)

// DefaultChannel is the Redis pub/sub channel for progress events.
const DefaultChannel = "cosmic-isles:progress"

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Autosave  time.Duration   `yaml:"autosave"`
	Tuning    state.Tuning    `yaml:"tuning"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Mint      MintConfig      `yaml:"mint"`
	Player    PlayerConfig    `yaml:"player"`
	Server    ServerConfig    `yaml:"server"`
	GameDir   string          `yaml:"game_dir"`
	Seed      int64           `yaml:"seed"` // 0 picks a seed from the clock
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Dir        string `yaml:"dir"`
	RedisAddr  string `yaml:"redis_addr"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Options converts the section for store.Open.
func (s StoreConfig) Options() store.Options {
	return store.Options{Backend: s.Backend, Dir: s.Dir, RedisAddr: s.RedisAddr, SQLitePath: s.SQLitePath}
}

type TelemetryConfig struct {
	Sink      string `yaml:"sink"`
	Dir       string `yaml:"dir"` // jsonl
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

type MintConfig struct {
	URL     string        `yaml:"url"` // empty mints offline
	Timeout time.Duration `yaml:"timeout"`
}

type PlayerConfig struct {
	Name   string       `yaml:"name"`
	Avatar types.Avatar `yaml:"avatar"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Store:    StoreConfig{Backend: store.BackendFile, Dir: ".cosmicisles", RedisAddr: "localhost:6379", SQLitePath: ".cosmicisles/progress.db"},
		Autosave: 30 * time.Second,
		Tuning:   state.DefaultTuning(),
		Telemetry: TelemetryConfig{
			Sink:      SinkNone,
			Dir:       ".cosmicisles/telemetry",
			RedisAddr: "localhost:6379",
			Channel:   DefaultChannel,
		},
		Mint:    MintConfig{Timeout: 15 * time.Second},
		Player:  PlayerConfig{Name: state.DefaultPlayerName},
		Server:  ServerConfig{Addr: ":8080"},
		GameDir: "content",
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from COSMIC_* variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("COSMIC_LOG_LEVEL", &c.Log.Level)
	str("COSMIC_LOG_FORMAT", &c.Log.Format)
	str("COSMIC_STORE", &c.Store.Backend)
	str("COSMIC_SAVE_DIR", &c.Store.Dir)
	str("COSMIC_SQLITE_PATH", &c.Store.SQLitePath)
	str("COSMIC_TELEMETRY", &c.Telemetry.Sink)
	str("COSMIC_TELEMETRY_DIR", &c.Telemetry.Dir)
	str("COSMIC_MINT_URL", &c.Mint.URL)
	str("COSMIC_GAME_DIR", &c.GameDir)
	str("COSMIC_PLAYER_NAME", &c.Player.Name)
	str("COSMIC_SERVER_ADDR", &c.Server.Addr)
	if v := getenv("COSMIC_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
		c.Telemetry.RedisAddr = v
	}

	if v := getenv("COSMIC_AUTOSAVE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COSMIC_AUTOSAVE: %w", err)
		}
		c.Autosave = d
	}
	if v := getenv("COSMIC_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("COSMIC_SEED: %w", err)
		}
		c.Seed = n
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Store.Backend) {
	case "", store.BackendFile, store.BackendMemory, store.BackendRedis, store.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch strings.ToLower(c.Telemetry.Sink) {
	case "", SinkNone, SinkRedis, SinkJSONL:
	default:
		errs = append(errs, fmt.Errorf("telemetry.sink: unknown sink %q", c.Telemetry.Sink))
	}
	if c.Autosave <= 0 {
		errs = append(errs, errors.New("autosave: must be positive"))
	}
	if c.Mint.Timeout <= 0 {
		errs = append(errs, errors.New("mint.timeout: must be positive"))
	}

	t := c.Tuning
	if t.InteractionRadius <= 0 || t.CollectRadius <= 0 || t.HoverRadius <= 0 {
		errs = append(errs, errors.New("tuning: radii must be positive"))
	}
	if t.StepSize <= 0 {
		errs = append(errs, errors.New("tuning.step_size: must be positive"))
	}
	if t.Bounds.Min.X >= t.Bounds.Max.X || t.Bounds.Min.Y >= t.Bounds.Max.Y {
		errs = append(errs, errors.New("tuning.bounds: min must be below max"))
	} else if !t.Bounds.Contains(t.Start) {
		errs = append(errs, errors.New("tuning.start: outside bounds"))
	}
	return errors.Join(errs...)
}
