// Package config holds application configuration loaded from the
// environment and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	OpenAIKey string `yaml:"-"`
	APSToken  string `yaml:"-"`

	Port         int     `yaml:"port"`
	Model        string  `yaml:"model"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	LogRequests  bool    `yaml:"log_requests"`
	LogDir       string  `yaml:"log_dir"`
	TemplatePath string  `yaml:"template_path"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Port:         8501,
		Model:        "gpt-4o-mini",
		Temperature:  0.7,
		MaxTokens:    1000,
		LogRequests:  true,
		LogDir:       "logs",
		TemplatePath: "templates/index.html",
	}
}

// LoadFromFile merges settings from a YAML config file. A missing file is
// not an error so deployments can run on environment variables alone.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables. Environment
// values take precedence over file values, so call this last.
func (c *Config) LoadFromEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAIKey = key
	}
	if token := os.Getenv("APS_AUTH_TOKEN"); token != "" {
		c.APSToken = token
	}
	if toggle := os.Getenv("OPENAI_LOG_API_REQUESTS"); toggle != "" {
		c.LogRequests = strings.EqualFold(toggle, "true")
	}
	if port := os.Getenv("APSCHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Port = p
		}
	}
	if model := os.Getenv("APSCHAT_MODEL"); model != "" {
		c.Model = model
	}
}

// Validate checks that required credentials are present.
func (c *Config) Validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	if c.APSToken == "" {
		return fmt.Errorf("APS_AUTH_TOKEN environment variable is required")
	}
	return nil
}
