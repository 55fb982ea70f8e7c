// Package config handles configuration loading and management for planforge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for planforge.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Anthropic     AnthropicConfig     `mapstructure:"anthropic"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Debug         DebugConfig         `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds plan store settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. Empty means the XDG data default.
	Path string `mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseBedrock routes requests through AWS Bedrock instead of the direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// CollaboratorsConfig holds tool collaborator endpoints. An empty planning
// URL means the planning tools run in-process.
type CollaboratorsConfig struct {
	PlanningURL string        `mapstructure:"planning_url"`
	HostingURL  string        `mapstructure:"hosting_url"`
	SandboxURL  string        `mapstructure:"sandbox_url"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	// LogPath is the debug log file. Empty disables debug logging.
	LogPath string `mapstructure:"log_path"`
}

// Addr returns the server's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getUserConfigDir returns the XDG config directory for planforge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "planforge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "planforge")
	}
	return filepath.Join(home, ".config", "planforge")
}

// findProjectConfig searches for .planforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".planforge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("server.host", cfg.Server.Host)
	v.Set("server.port", cfg.Server.Port)
	v.Set("database.path", cfg.Database.Path)
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("collaborators.planning_url", cfg.Collaborators.PlanningURL)
	v.Set("collaborators.hosting_url", cfg.Collaborators.HostingURL)
	v.Set("collaborators.sandbox_url", cfg.Collaborators.SandboxURL)
	v.Set("collaborators.call_timeout", cfg.Collaborators.CallTimeout.String())
	v.Set("debug.log_path", cfg.Debug.LogPath)

	return v.WriteConfig()
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Anthropic: AnthropicConfig{
			APIKey: "",
			Model:  "",
		},
		Collaborators: CollaboratorsConfig{
			HostingURL:  "http://localhost:8001",
			SandboxURL:  "http://localhost:8003",
			CallTimeout: 30 * time.Second,
		},
		Debug: DebugConfig{
			LogPath: "",
		},
	}
}
