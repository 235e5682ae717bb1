package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"

	"github.com/gerunddev/orgnode/parser"
)

var keywordPattern = regexp.MustCompile(`^[A-Z]+$`)

// Config represents the orgnode configuration
type Config struct {
	OrgDir          string   `json:"org_dir"`
	LogFile         string   `json:"log_file,omitempty"`
	LogLevel        string   `json:"log_level"`
	TodoKeywords    []string `json:"todo_keywords,omitempty"`
	PlaceholderNode bool     `json:"placeholder_node,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
	Workers         int      `json:"workers"`
	AgendaDays      int      `json:"agenda_days"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		OrgDir:          filepath.Join(home, "org"),
		LogLevel:        "info",
		TodoKeywords:    []string{},
		ExcludePatterns: []string{},
		Workers:         runtime.NumCPU(),
		AgendaDays:      7,
	}
}

// ConfigPath returns the path to the config file
// Uses ~/.config on all platforms for consistency
// Can be overridden for testing
var ConfigPath = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to XDG if home dir unavailable
		return filepath.Join(xdg.ConfigHome, "orgnode", "config.json")
	}
	return filepath.Join(home, ".config", "orgnode", "config.json")
}

// StateFilePath returns the path to the index state file
// Uses platform-specific XDG data directory
// Can be overridden for testing
var StateFilePath = func() string {
	return filepath.Join(xdg.DataHome, "orgnode", "state.json")
}

// Load reads configuration from the config path
func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads configuration from path, returning defaults if it does not exist
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			if err := cfg.ExpandPaths(); err != nil {
				return nil, fmt.Errorf("failed to expand paths: %w", err)
			}
			return cfg, nil
		}
		return nil, err
	}

	// Unset fields keep their defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.TodoKeywords == nil {
		cfg.TodoKeywords = []string{}
	}
	if cfg.ExcludePatterns == nil {
		cfg.ExcludePatterns = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the config path
func (c *Config) Save() error {
	return c.SaveFile(ConfigPath())
}

// SaveFile writes configuration to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OrgDir == "" {
		return fmt.Errorf("org_dir cannot be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.AgendaDays < 0 {
		return fmt.Errorf("agenda_days cannot be negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level '%s': must be one of: debug, info, warn, error", c.LogLevel)
	}

	for _, kw := range c.TodoKeywords {
		if !keywordPattern.MatchString(kw) {
			return fmt.Errorf("invalid todo keyword '%s': must be upper-case letters", kw)
		}
	}

	for _, pattern := range c.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	return nil
}

// ExpandPaths expands any ~ or relative paths to absolute paths
func (c *Config) ExpandPaths() error {
	var err error

	c.OrgDir, err = expandPath(c.OrgDir)
	if err != nil {
		return fmt.Errorf("failed to expand org_dir: %w", err)
	}

	c.LogFile, err = expandPath(c.LogFile)
	if err != nil {
		return fmt.Errorf("failed to expand log_file: %w", err)
	}

	return nil
}

// Parser builds a parser honoring the configured TODO keywords and empty-document policy
func (c *Config) Parser(l *log.Logger) *parser.Parser {
	p := &parser.Parser{
		Logger:       l,
		TodoKeywords: c.TodoKeywords,
	}
	if c.PlaceholderNode {
		p.EmptyDocument = parser.EmptyPlaceholder
	}
	return p
}

// IsExcluded reports whether a file name matches one of the exclude patterns
func (c *Config) IsExcluded(name string) bool {
	base := filepath.Base(name)
	for _, pattern := range c.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	// Expand ~ to home directory
	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if len(path) == 1 {
			return homeDir, nil
		}
		path = filepath.Join(homeDir, path[1:])
	}

	// Convert to absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return absPath, nil
}
