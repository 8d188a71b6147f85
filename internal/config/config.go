package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	yaml "gopkg.in/yaml.v2"
)

const (
	// DefaultConfigFile is used when no --config flag is given.
	DefaultConfigFile = "config.yml"
	// HomeEnv points to a directory holding config.yml.
	HomeEnv = "APPSEC_HOME"
	// UserConfigDir is the per-user fallback below the home directory.
	UserConfigDir = "~/.scanio-findings"

	envURL   = "APPSEC_URL"
	envToken = "APPSEC_TOKEN"

	DefaultMaxFindings = 100
)

// Config is the YAML configuration of the tool.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Endpoint   Endpoint   `yaml:"endpoint"`
	Findings   Findings   `yaml:"findings"`
}

type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
	// File, when set, receives a copy of the log with size based rotation.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   *bool  `yaml:"compress"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Endpoint is the findings API location and its access token.
type Endpoint struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Findings holds the display filters applied on every refresh.
type Findings struct {
	MaxFindings           int      `yaml:"max_findings"`
	EnabledSeverities     []string `yaml:"enabled_severities"`
	EnabledTriageStatuses []string `yaml:"enabled_triage_statuses"`
	Highlight             *bool    `yaml:"highlight"`
	// Product pins the synchronization to assets of one product id.
	Product int64 `yaml:"product"`
}

// NewDefault returns a configuration populated with default values.
func NewDefault() *Config {
	return &Config{
		Logger: Logger{Level: "INFO"},
		Findings: Findings{
			MaxFindings:           DefaultMaxFindings,
			EnabledSeverities:     []string{"CRITICAL", "HIGH", "MEDIUM", "LOW", "INFO"},
			EnabledTriageStatuses: []string{"RESOLVED", "VERIFIED", "ASSIGNED", "REJECTED", "TEMPORARILY_ACCEPTED"},
		},
	}
}

// ValidateConfigPath checks that path points to a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// ResolvePath picks the configuration file: the explicit path, then $APPSEC_HOME/config.yml,
// then config.yml in the working directory if it exists, then ~/.scanio-findings/config.yml.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return ExpandPath(explicit)
	}
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(ExpandPath(home), DefaultConfigFile)
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	if dir, err := homedir.Expand(UserConfigDir); err == nil {
		return filepath.Join(dir, DefaultConfigFile)
	}
	return DefaultConfigFile
}

// ExpandPath resolves a leading ~ to the user's home directory. The path is
// returned unchanged when the home directory cannot be determined.
func ExpandPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

// LoadConfig reads the configuration at configPath on top of the defaults.
// A missing file is not an error: the defaults are returned so that the setup
// command can create it. Environment overrides are applied last.
func LoadConfig(configPath string) (*Config, error) {
	cfg := NewDefault()

	if _, err := os.Stat(configPath); err == nil {
		if err := LoadYAML(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// SaveConfig writes cfg to configPath. The file holds the API token, so it is
// created readable by the owner only.
func SaveConfig(configPath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %q: %w", configPath, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envURL)); v != "" {
		cfg.Endpoint.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(envToken)); v != "" {
		cfg.Endpoint.Token = v
	}
}
