package scan

import (
	"github.com/glasshouse/capsight/scan/internal/config"
)

// Config is the top-level capsight configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// HTTPConfig controls the HTTP service surface.
type HTTPConfig = config.HTTPConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() *Config {
	return config.Default()
}
