// Package config loads the coordinator's YAML configuration file and turns
// it into runtime components.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/convoral/convoral/core"
	"github.com/convoral/convoral/router"
	"github.com/convoral/convoral/store"
	"github.com/convoral/convoral/store/sqlite"
)

// Config is the top-level configuration document.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Runner RunnerConfig `yaml:"runner"`
	Router RouterConfig `yaml:"router"`
}

// StoreConfig selects and parameterizes the persistence backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// DSN is the SQLite data source, e.g. a file path or ":memory:".
	DSN string `yaml:"dsn"`
}

// RunnerConfig tunes session coordinator behavior.
type RunnerConfig struct {
	MaxHandoffDepth int `yaml:"max_handoff_depth"`
	EventBufferSize int `yaml:"event_buffer_size"`
	HistoryLimit    int `yaml:"history_limit"`

	ToolTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling, e.g. "15s".
	ToolTimeoutRaw string `yaml:"tool_timeout"`
}

// RouterConfig declares the keyword routing table.
type RouterConfig struct {
	Fallback string      `yaml:"fallback"`
	Rules    []RouteRule `yaml:"rules"`
}

// RouteRule binds keywords to an agent name.
type RouteRule struct {
	Agent    string   `yaml:"agent"`
	Keywords []string `yaml:"keywords"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: "memory"},
		Runner: RunnerConfig{
			MaxHandoffDepth: 1,
			EventBufferSize: 64,
			ToolTimeout:     15 * time.Second,
		},
	}
}

// Load reads and validates a YAML configuration file, layering it over the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Runner.ToolTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Runner.ToolTimeoutRaw)
		if err != nil {
			return cfg, fmt.Errorf("parsing tool_timeout %q: %w", cfg.Runner.ToolTimeoutRaw, err)
		}
		cfg.Runner.ToolTimeout = d
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.DSN == "" {
			return fmt.Errorf("store: sqlite backend requires a dsn")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	if c.Runner.MaxHandoffDepth < 0 {
		return fmt.Errorf("runner: max_handoff_depth must be >= 0")
	}
	if c.Runner.EventBufferSize <= 0 {
		return fmt.Errorf("runner: event_buffer_size must be > 0")
	}
	if c.Runner.ToolTimeout < 0 {
		return fmt.Errorf("runner: tool_timeout must be >= 0")
	}
	for i, r := range c.Router.Rules {
		if r.Agent == "" {
			return fmt.Errorf("router: rule %d has no agent", i)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("router: rule %d (%s) has no keywords", i, r.Agent)
		}
	}
	return nil
}

// BuildStore instantiates the configured persistence backend.
func (c Config) BuildStore() (core.Store, error) {
	switch c.Store.Backend {
	case "sqlite":
		return sqlite.Open(c.Store.DSN)
	default:
		return store.NewInMemoryStore(), nil
	}
}

// BuildRouter instantiates the configured routing table.
func (c Config) BuildRouter() *router.Router {
	rules := make([]router.Rule, 0, len(c.Router.Rules))
	for _, r := range c.Router.Rules {
		rules = append(rules, router.Rule{Agent: r.Agent, Keywords: r.Keywords})
	}
	return router.New(c.Router.Fallback, rules...)
}
