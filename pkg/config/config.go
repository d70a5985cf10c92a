// Package config loads the runtime configuration of manglr.
//
// A configuration file is YAML:
//
//	store:
//	  retry_budget: 6
//	  base_delay: 200ms
//	  max_delay: 5s
//	  timeout: 30s
//	  feeds:
//	    todos: ws://localhost:8080/todos
//	api_base: http://localhost:8080
//	db: ~/.manglr.db
//	history: /
//
// Every key is optional; missing keys keep their defaults. Unknown keys are
// errors.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	// Prefix for relative store URLs.
	APIBase string `yaml:"api_base"`
	// Path of the persistent database. Empty disables persistence.
	DB string `yaml:"db"`
	// Initial route.
	History string `yaml:"history"`
}

// StoreConfig configures the fetching of remote stores.
type StoreConfig struct {
	// Attempts before a store settles in the error state.
	RetryBudget int      `yaml:"retry_budget"`
	BaseDelay   Duration `yaml:"base_delay"`
	// Ceiling of the exponential backoff.
	MaxDelay Duration `yaml:"max_delay"`
	// Per-request timeout.
	Timeout Duration `yaml:"timeout"`
	// Websocket URLs of live feeds, keyed by store id.
	Feeds map[string]string `yaml:"feeds"`
}

// Duration is a time.Duration written like "200ms" in YAML.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", n.Line, n.Value)
	}
	if v < 0 {
		return fmt.Errorf("line %d: negative duration %q", n.Line, n.Value)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			RetryBudget: 6,
			BaseDelay:   Duration(200 * time.Millisecond),
			MaxDelay:    Duration(5 * time.Second),
			Timeout:     Duration(30 * time.Second),
		},
		APIBase: "http://localhost:8080",
		DB:      "~/.manglr.db",
		History: "/",
	}
}

// Parse parses a configuration, starting from the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a configuration file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Store.RetryBudget < 1 {
		return fmt.Errorf("store.retry_budget must be positive, got %d", cfg.Store.RetryBudget)
	}
	if cfg.Store.MaxDelay < cfg.Store.BaseDelay {
		return fmt.Errorf("store.max_delay (%v) is less than store.base_delay (%v)",
			cfg.Store.MaxDelay, cfg.Store.BaseDelay)
	}
	return nil
}

// DBPath returns the database path with a leading "~/" expanded to the home
// directory.
func (cfg *Config) DBPath() (string, error) {
	p := cfg.DB
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, p[1:])
	}
	return p, nil
}

// ResolveURL prefixes relative URLs with APIBase.
func (cfg *Config) ResolveURL(u string) string {
	if strings.Contains(u, "://") || cfg.APIBase == "" {
		return u
	}
	return strings.TrimSuffix(cfg.APIBase, "/") + "/" + strings.TrimPrefix(u, "/")
}
