package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the VK conversation dumper
type Config struct {
	// VK API settings
	VK VKConfig `yaml:"vk" json:"vk"`

	// Rate limiting for API page fetches
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// VKConfig holds VK-specific configuration
type VKConfig struct {
	APIVersion     string        `yaml:"api_version" json:"api_version"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds rate limiting configuration for API calls
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	StateFile string `yaml:"state_file" json:"state_file"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Concurrency     int           `yaml:"concurrency" json:"concurrency"`
	PageSize        int           `yaml:"page_size" json:"page_size"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		VK: VKConfig{
			APIVersion:     "5.199",
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 3, // VK user tokens allow 3 requests per second
		},
		Output: OutputConfig{
			Directory: "",
			StateFile: "resume_state.json",
		},
		Download: DownloadConfig{
			Concurrency:     6,
			PageSize:        200,
			DownloadTimeout: 20 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if rps := os.Getenv("VKDUMP_REQUESTS_PER_SECOND"); rps != "" {
		var val int
		fmt.Sscanf(rps, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerSecond = val
		}
	}

	if outputDir := os.Getenv("VKDUMP_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}

	if stateFile := os.Getenv("VKDUMP_STATE_FILE"); stateFile != "" {
		c.Output.StateFile = stateFile
	}

	if concurrent := os.Getenv("VKDUMP_CONCURRENCY"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.Concurrency = val
		}
	}

	if logLevel := os.Getenv("VKDUMP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".vkdump.yaml",
		".vkdump.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "vkdump", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "vkdump", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".vkdump.yaml"),
		filepath.Join(os.Getenv("HOME"), ".vkdump.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.VK.APIVersion == "" {
		errs = append(errs, errors.New("VK API version is required"))
	}
	if c.VK.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}

	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("download concurrency must be positive"))
	}
	if c.Download.Concurrency > 16 {
		errs = append(errs, errors.New("download concurrency should not exceed 16"))
	}
	if c.Download.PageSize <= 0 || c.Download.PageSize > 200 {
		errs = append(errs, errors.New("page size must be between 1 and 200"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.StateFile == "" {
		errs = append(errs, errors.New("resume state file is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if concurrent, ok := flags["concurrency"].(int); ok && concurrent > 0 {
		c.Download.Concurrency = concurrent
	}
	if rps, ok := flags["requests-per-second"].(int); ok && rps > 0 {
		c.RateLimit.RequestsPerSecond = rps
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".vkdump.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
