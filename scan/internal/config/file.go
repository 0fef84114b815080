// Package config handles scanner configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level capsight configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	// Target is the URL the probe page is opened on. Detection itself
	// only needs a rendering context, so the default is about:blank.
	Target string `yaml:"target"`
	// Store is the SQLite database path for scan reports.
	Store string     `yaml:"store"`
	HTTP  HTTPConfig `yaml:"http"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
}

// UnmarshalYAML accepts recycle_interval as a Go duration string
// ("1h30m"); yaml.v3 has no native time.Duration decoding.
func (b *BrowserConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Remote          string `yaml:"remote"`
		RecycleInterval string `yaml:"recycle_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	b.Remote = raw.Remote
	if raw.RecycleInterval != "" {
		d, err := time.ParseDuration(raw.RecycleInterval)
		if err != nil {
			return fmt.Errorf("config: recycle_interval: %w", err)
		}
		b.RecycleInterval = d
	}
	return nil
}

// HTTPConfig controls the HTTP service surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Target == "" {
		c.Target = "about:blank"
	}
	if c.Store == "" {
		c.Store = "db/capsight.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8086"
	}
}
