// Package config provides configuration file support for Sonda.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the Sonda configuration file structure.
type Config struct {
	// Defaults are applied when flags are not specified
	Defaults Defaults `yaml:"defaults"`

	// Aliases for common targets
	Aliases map[string]string `yaml:"aliases,omitempty"`
}

// Defaults holds default values for ping parameters.
type Defaults struct {
	// Output mode
	TUI     bool `yaml:"tui"`
	Table   bool `yaml:"table"`
	JSON    bool `yaml:"json"`
	CSV     bool `yaml:"csv"`
	NoColor bool `yaml:"no_color"`

	// Ping parameters
	Count       int           `yaml:"count"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	TTL         int           `yaml:"ttl"`
	PayloadSize int           `yaml:"payload_size"`
	DF          bool          `yaml:"df"`

	// Mode
	Async         bool `yaml:"async"`
	QueueCapacity int  `yaml:"queue_capacity"`
	Concurrency   int  `yaml:"concurrency"`

	// Network
	IPv4   bool   `yaml:"ipv4"`
	IPv6   bool   `yaml:"ipv6"`
	Source string `yaml:"source"`

	// Enrichment
	RDNS bool `yaml:"rdns"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			Count:       4,
			Interval:    time.Second,
			Timeout:     2 * time.Second,
			TTL:         64,
			PayloadSize: 56,
			Concurrency: 8,
			RDNS:        true,
		},
		Aliases: make(map[string]string),
	}
}

// Load reads configuration from the default config file locations.
// It searches in order:
//  1. ./sonda.yaml (current directory)
//  2. ~/.config/sonda/config.yaml (Linux/macOS)
//  3. %APPDATA%\sonda\config.yaml (Windows)
//
// If no config file is found, returns default configuration.
func Load() (*Config, error) {
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return LoadFrom(path)
		}
	}
	return DefaultConfig(), nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

// Resolve maps a target through the alias table, returning it unchanged
// when no alias matches.
func (c *Config) Resolve(target string) string {
	if resolved, ok := c.Aliases[target]; ok {
		return resolved
	}
	return target
}

// Save writes the configuration to the default user config path.
func (c *Config) Save() error {
	return c.SaveTo(getUserConfigPath())
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// getConfigPaths returns the list of config file paths to search.
func getConfigPaths() []string {
	paths := []string{
		"sonda.yaml",
		"sonda.yml",
		".sonda.yaml",
		".sonda.yml",
	}

	if userPath := getUserConfigPath(); userPath != "" {
		paths = append(paths, userPath)
	}
	return paths
}

// getUserConfigPath returns the user-specific config file path.
func getUserConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "sonda", "config.yaml")
		}
	default: // Linux, macOS, etc.
		home, err := os.UserHomeDir()
		if err == nil {
			// Check XDG_CONFIG_HOME first
			xdgConfig := os.Getenv("XDG_CONFIG_HOME")
			if xdgConfig != "" {
				return filepath.Join(xdgConfig, "sonda", "config.yaml")
			}
			return filepath.Join(home, ".config", "sonda", "config.yaml")
		}
	}
	return ""
}

// GetConfigPath returns the path where user config would be saved.
func GetConfigPath() string {
	return getUserConfigPath()
}

// GenerateExample generates an example configuration file content.
func GenerateExample() string {
	return `# Sonda Configuration File
# Location: ~/.config/sonda/config.yaml (Linux/macOS)
#           %APPDATA%\sonda\config.yaml (Windows)
#           ./sonda.yaml (current directory)

defaults:
  # Output mode (only one should be true)
  tui: false              # Interactive TUI mode
  table: false            # Summary table output
  json: false             # JSON output
  csv: false              # CSV output
  no_color: false         # Disable colors

  # Ping parameters
  count: 4                # Echo requests per target
  interval: 1s            # Delay between requests
  timeout: 2s             # Per-request timeout
  ttl: 64                 # IP time to live
  payload_size: 56        # Echo payload bytes
  df: false               # Set the don't-fragment bit

  # Mode settings
  async: false            # Issue requests through the shared queue
  queue_capacity: 0       # Async queue size (0 = default)
  concurrency: 8          # Concurrently probed targets

  # Network settings
  ipv4: false             # Force IPv4
  ipv6: false             # Force IPv6
  source: ""              # Source IP address

  # Enrichment settings
  rdns: true              # Reverse DNS lookups

# Target aliases (optional)
aliases:
  dns: 8.8.8.8
  cf: 1.1.1.1
  google: google.com
`
}
