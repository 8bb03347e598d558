package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// JiraConfig holds the tracker connection settings. The API token is not
// stored here; it lives in the system keyring (or arrives per-request via
// the session credential header).
type JiraConfig struct {
	// BaseURL is the root URL of the Jira Cloud instance
	// (e.g., https://example.atlassian.net).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Email is the account email paired with the API token for
	// HTTP Basic authentication.
	Email string `mapstructure:"email" yaml:"email"`

	// ProjectKey is the project that reported issues are created in.
	ProjectKey string `mapstructure:"project_key" yaml:"project_key"`

	// EpicIssueType is the issue type name used to scope epic-link
	// searches. Defaults to "Epic".
	EpicIssueType string `mapstructure:"epic_issue_type" yaml:"epic_issue_type"`
}

// ServerConfig holds settings for the application-facing proxy.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SubmitConfig holds submission-time policy settings.
type SubmitConfig struct {
	// Labels are attached to every created issue.
	Labels []string `mapstructure:"labels" yaml:"labels"`

	// FieldDefaults overrides the tracker-declared default for a field,
	// keyed by field key. Highest precedence in default resolution.
	FieldDefaults map[string]string `mapstructure:"field_defaults" yaml:"field_defaults"`

	// IncludeOptional exposes non-required schema fields in the review
	// step's optional section.
	IncludeOptional bool `mapstructure:"include_optional" yaml:"include_optional"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Jira     JiraConfig   `mapstructure:"jira" yaml:"jira"`
	Server   ServerConfig `mapstructure:"server" yaml:"server"`
	Submit   SubmitConfig `mapstructure:"submit" yaml:"submit"`
	LogLevel string       `mapstructure:"log_level" yaml:"log_level"`
}

// MissingSettings returns the names of required Jira settings that are
// not configured. An empty result means the tracker side is usable once
// an API token is available.
func (c *AppConfig) MissingSettings() []string {
	var missing []string
	if c.Jira.BaseURL == "" {
		missing = append(missing, "jiraUrl")
	}
	if c.Jira.Email == "" {
		missing = append(missing, "email")
	}
	if c.Jira.ProjectKey == "" {
		missing = append(missing, "projectKey")
	}
	return missing
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/anyclick/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "anyclick", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Jira: JiraConfig{
			EpicIssueType: "Epic",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8277",
		},
		Submit: SubmitConfig{
			Labels: []string{"anyclick"},
		},
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// with ANYCLICK_* environment variables taking precedence over file values.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("jira.epic_issue_type", "Epic")
	v.SetDefault("server.addr", "127.0.0.1:8277")
	v.SetDefault("submit.labels", []string{"anyclick"})
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("ANYCLICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("jira", cfg.Jira)
	v.Set("server", cfg.Server)
	v.Set("submit", cfg.Submit)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
