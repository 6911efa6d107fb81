package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config holds application configuration
type Config struct {
	Server struct {
		BaseURL string `yaml:"base_url" validate:"required,url"`
		Token   string `yaml:"token" validate:"required"`
	} `yaml:"server"`
	Workspace struct {
		ProjectID string `yaml:"project_id" validate:"required"`
		ActorID   string `yaml:"actor_id" validate:"required"`
		ActorName string `yaml:"actor_name"`
	} `yaml:"workspace"`
	Polling struct {
		IntervalSeconds int `yaml:"interval_seconds" validate:"min=1"`
	} `yaml:"polling"`
	Sandbox struct {
		Listen            string `yaml:"listen" validate:"required"`
		DatabasePath      string `yaml:"database_path" validate:"required"`
		OpenAIKey         string `yaml:"openai_key"`
		OpenAIModel       string `yaml:"openai_model"`
		ProcessingDelayMS int    `yaml:"processing_delay_ms" validate:"min=0"`
	} `yaml:"sandbox"`
	Logging struct {
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		File  string `yaml:"file"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`
}

// Load loads configuration from file or returns defaults. An empty path
// means the standard location under the home directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration for structural problems
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Server.BaseURL = "http://localhost:8854"
	cfg.Server.Token = "dev-token"

	cfg.Workspace.ProjectID = "demo"
	cfg.Workspace.ActorID = "local-user"
	cfg.Workspace.ActorName = os.Getenv("USER")
	if cfg.Workspace.ActorName == "" {
		cfg.Workspace.ActorName = "you"
	}

	cfg.Polling.IntervalSeconds = 2

	cfg.Sandbox.Listen = "localhost:8854"
	cfg.Sandbox.DatabasePath = filepath.Join(Dir(), "sandbox.db")
	cfg.Sandbox.OpenAIModel = "gpt-4o-mini"
	cfg.Sandbox.ProcessingDelayMS = 1500

	cfg.Logging.Level = "info"

	return cfg
}

// Dir returns the workbench config directory
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".workbench")
}

// Path returns the standard config file location
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultLogPath is where interactive runs log when no file is configured
func DefaultLogPath() string {
	return filepath.Join(Dir(), "workbench.log")
}
