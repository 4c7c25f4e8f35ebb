package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	DatabasePath  string         `yaml:"database_path,omitempty"`
	Server        ServerConfig   `yaml:"server,omitempty"`
	Log           LogConfig      `yaml:"log,omitempty"`
	Analysis      AnalysisConfig `yaml:"analysis,omitempty"`
	MQTT          MQTTConfig     `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig       `yaml:"home_assistant,omitempty"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr    string `yaml:"addr,omitempty"`     // e.g., ":8080"
	DevMode bool   `yaml:"dev_mode,omitempty"` // Verbose gin output
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
	JSON  bool   `yaml:"json,omitempty"`
}

// AnalysisConfig holds the consumption derivation constants
type AnalysisConfig struct {
	DaysPerMonth     float64 `yaml:"days_per_month,omitempty"`     // Fallback: 30.4375
	TrendWeightFloor float64 `yaml:"trend_weight_floor,omitempty"` // Fallback: 0.1
}

// MQTTConfig holds MQTT broker settings for publishing consumption summaries
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // Fallback: "meterbook"
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`                     // e.g., "http://homeassistant.local:8123"
	Token        string `yaml:"token"`                   // Long-lived access token
	EntityPrefix string `yaml:"entity_prefix,omitempty"` // Fallback: "meterbook"
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Load reads the config file and applies environment overrides
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults apply when there is no config file
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvironmentVariables()
	return &cfg, nil
}

// Default returns a config with every fallback value written out.
// Publishing sinks stay disabled.
func Default() *Config {
	var c Config
	return &Config{
		DatabasePath: c.GetDatabasePath(),
		Server:       ServerConfig{Addr: c.GetAddr()},
		Log:          LogConfig{Level: c.GetLogLevel()},
		Analysis: AnalysisConfig{
			DaysPerMonth:     c.GetDaysPerMonth(),
			TrendWeightFloor: c.GetTrendWeightFloor(),
		},
		MQTT:          MQTTConfig{TopicPrefix: c.GetTopicPrefix()},
		HomeAssistant: HAConfig{EntityPrefix: c.GetEntityPrefix()},
	}
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// applyEnvironmentVariables overrides config with environment variables
func (c *Config) applyEnvironmentVariables() {
	if val := os.Getenv("METERBOOK_DB"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("METERBOOK_ADDR"); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv("METERBOOK_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("METERBOOK_MQTT_BROKER"); val != "" {
		c.MQTT.Broker = val
	}
	if val := os.Getenv("METERBOOK_HA_TOKEN"); val != "" {
		c.HomeAssistant.Token = val
	}
}

// Validate checks the configuration, reporting every problem found
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.GetLogLevel()) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	if c.Analysis.DaysPerMonth < 0 {
		problems = append(problems, "analysis.days_per_month must be positive")
	}
	if c.Analysis.TrendWeightFloor < 0 || c.Analysis.TrendWeightFloor > 1 {
		problems = append(problems, "analysis.trend_weight_floor must be between 0 and 1")
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		problems = append(problems, "mqtt.broker is required when mqtt is enabled")
	}

	if c.HomeAssistant.Enabled {
		if c.HomeAssistant.URL == "" {
			problems = append(problems, "home_assistant.url is required when enabled")
		}
		if c.HomeAssistant.Token == "" {
			problems = append(problems, "home_assistant.token is required when enabled")
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// GetDatabasePath returns the database file path with a default of ./data/meter.db
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == "" {
		return filepath.Join("data", "meter.db")
	}
	return c.DatabasePath
}

// GetAddr returns the HTTP listen address with a default of :8080
func (c *Config) GetAddr() string {
	if c.Server.Addr == "" {
		return ":8080"
	}
	return c.Server.Addr
}

// GetLogLevel returns the log level with a default of info
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// GetDaysPerMonth returns the rate normalization constant
func (c *Config) GetDaysPerMonth() float64 {
	if c.Analysis.DaysPerMonth <= 0 {
		return 30.4375
	}
	return c.Analysis.DaysPerMonth
}

// GetTrendWeightFloor returns the minimum trend window weight
func (c *Config) GetTrendWeightFloor() float64 {
	if c.Analysis.TrendWeightFloor <= 0 {
		return 0.1
	}
	return c.Analysis.TrendWeightFloor
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "meterbook"
	}
	return c.MQTT.TopicPrefix
}

// GetEntityPrefix returns the Home Assistant entity id prefix
func (c *Config) GetEntityPrefix() string {
	if c.HomeAssistant.EntityPrefix == "" {
		return "meterbook"
	}
	return c.HomeAssistant.EntityPrefix
}
