// Package config handles homefleet configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration structure shared by the agent, the
// central coordinator and the fleetctl CLI.
type Config struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Agent   AgentConfig   `yaml:"agent" mapstructure:"agent"`
	Central CentralConfig `yaml:"central" mapstructure:"central"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`
}

// AgentConfig contains node-side settings.
type AgentConfig struct {
	// DataDir is where the agent stores its identity and offline buffer.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ModulesDir is scanned for feature module manifests.
	ModulesDir string `yaml:"modules_dir" mapstructure:"modules_dir"`

	// CentralURL is the coordinator base URL. Empty means standalone mode:
	// registration and heartbeat are skipped.
	CentralURL string `yaml:"central_url" mapstructure:"central_url"`

	// CentralHostname is the designated central node hostname used for
	// node type classification.
	CentralHostname string `yaml:"central_hostname" mapstructure:"central_hostname"`

	// Port is the port this node advertises during registration.
	Port int `yaml:"port" mapstructure:"port"`

	// HeartbeatIntervalSec is the fixed heartbeat cadence.
	HeartbeatIntervalSec int `yaml:"heartbeat_interval_sec" mapstructure:"heartbeat_interval_sec"`

	// RegistrationIntervalMin is the best-effort re-registration cadence.
	RegistrationIntervalMin int `yaml:"registration_interval_min" mapstructure:"registration_interval_min"`

	// RequestTimeoutSec bounds every agent to coordinator HTTP call.
	RequestTimeoutSec int `yaml:"request_timeout_sec" mapstructure:"request_timeout_sec"`
}

// CentralConfig contains coordinator-side settings.
type CentralConfig struct {
	ListenPort string `yaml:"listen_port" mapstructure:"listen_port"`

	DBHost     string `yaml:"db_host" mapstructure:"db_host"`
	DBPort     string `yaml:"db_port" mapstructure:"db_port"`
	DBUser     string `yaml:"db_user" mapstructure:"db_user"`
	DBPassword string `yaml:"db_password" mapstructure:"db_password"`
	DBName     string `yaml:"db_name" mapstructure:"db_name"`
	DBSSLMode  string `yaml:"db_ssl_mode" mapstructure:"db_ssl_mode"`

	// JWTSecret signs registration tokens. Empty disables token checks.
	JWTSecret        string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTExpirationSec int64  `yaml:"jwt_expiration_sec" mapstructure:"jwt_expiration_sec"`

	// HeartbeatTimeoutMin is how long a node may stay silent before the
	// liveness sweep marks it offline.
	HeartbeatTimeoutMin int `yaml:"heartbeat_timeout_min" mapstructure:"heartbeat_timeout_min"`

	// StaleThresholdMin flags nodes as stale in listings.
	StaleThresholdMin int `yaml:"stale_threshold_min" mapstructure:"stale_threshold_min"`

	MetricsRetentionDays int `yaml:"metrics_retention_days" mapstructure:"metrics_retention_days"`
	EventsRetentionDays  int `yaml:"events_retention_days" mapstructure:"events_retention_days"`

	SweepIntervalSec       int `yaml:"sweep_interval_sec" mapstructure:"sweep_interval_sec"`
	RetentionIntervalHours int `yaml:"retention_interval_hours" mapstructure:"retention_interval_hours"`
}

// ConnString builds the Postgres connection string.
func (c CentralConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Agent: AgentConfig{
			DataDir:                 filepath.Join(home, ".local", "share", "homefleet"),
			ModulesDir:              filepath.Join(home, ".local", "share", "homefleet", "modules"),
			CentralHostname:         "rocksteady",
			Port:                    8470,
			HeartbeatIntervalSec:    60,
			RegistrationIntervalMin: 15,
			RequestTimeoutSec:       15,
		},
		Central: CentralConfig{
			ListenPort:             "8470",
			DBHost:                 "localhost",
			DBPort:                 "5432",
			DBUser:                 "homefleet",
			DBPassword:             "homefleet",
			DBName:                 "homefleet",
			DBSSLMode:              "disable",
			JWTExpirationSec:       30 * 24 * 3600,
			HeartbeatTimeoutMin:    5,
			StaleThresholdMin:      15,
			MetricsRetentionDays:   7,
			EventsRetentionDays:    30,
			SweepIntervalSec:       60,
			RetentionIntervalHours: 24,
		},
	}
}

// Load loads configuration with precedence defaults < config file < env.
// Env vars use the HOMEFLEET_ prefix, e.g. HOMEFLEET_AGENT_CENTRAL_URL.
// configFile may be empty, in which case the usual locations are searched
// and a missing file is not an error.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "homefleet"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "homefleet"))
		}
		v.AddConfigPath("/etc/homefleet")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HOMEFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Agent.HeartbeatIntervalSec <= 0 {
		return fmt.Errorf("agent.heartbeat_interval_sec must be positive")
	}
	if c.Central.HeartbeatTimeoutMin <= 0 {
		return fmt.Errorf("central.heartbeat_timeout_min must be positive")
	}
	if c.Central.MetricsRetentionDays <= 0 || c.Central.EventsRetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("agent.data_dir", cfg.Agent.DataDir)
	v.SetDefault("agent.modules_dir", cfg.Agent.ModulesDir)
	v.SetDefault("agent.central_url", cfg.Agent.CentralURL)
	v.SetDefault("agent.central_hostname", cfg.Agent.CentralHostname)
	v.SetDefault("agent.port", cfg.Agent.Port)
	v.SetDefault("agent.heartbeat_interval_sec", cfg.Agent.HeartbeatIntervalSec)
	v.SetDefault("agent.registration_interval_min", cfg.Agent.RegistrationIntervalMin)
	v.SetDefault("agent.request_timeout_sec", cfg.Agent.RequestTimeoutSec)

	v.SetDefault("central.listen_port", cfg.Central.ListenPort)
	v.SetDefault("central.db_host", cfg.Central.DBHost)
	v.SetDefault("central.db_port", cfg.Central.DBPort)
	v.SetDefault("central.db_user", cfg.Central.DBUser)
	v.SetDefault("central.db_password", cfg.Central.DBPassword)
	v.SetDefault("central.db_name", cfg.Central.DBName)
	v.SetDefault("central.db_ssl_mode", cfg.Central.DBSSLMode)
	v.SetDefault("central.jwt_secret", cfg.Central.JWTSecret)
	v.SetDefault("central.jwt_expiration_sec", cfg.Central.JWTExpirationSec)
	v.SetDefault("central.heartbeat_timeout_min", cfg.Central.HeartbeatTimeoutMin)
	v.SetDefault("central.stale_threshold_min", cfg.Central.StaleThresholdMin)
	v.SetDefault("central.metrics_retention_days", cfg.Central.MetricsRetentionDays)
	v.SetDefault("central.events_retention_days", cfg.Central.EventsRetentionDays)
	v.SetDefault("central.sweep_interval_sec", cfg.Central.SweepIntervalSec)
	v.SetDefault("central.retention_interval_hours", cfg.Central.RetentionIntervalHours)
}
