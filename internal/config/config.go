package config

import (
	"github.com/spf13/viper"
)

/**
 * Directory layout for everything the agent persists
 * @property {string} state - Root for per action state records
 * @property {string} backups - Vault for pre-mutation file snapshots
 * @property {string} share - Read-only data shipped with the agent (quirk tables)
 * @property {string} metrics - Textfile-collector output directory
 */
type DirectoryConfig struct {
	State   string `mapstructure:"state"`
	Backups string `mapstructure:"backups"`
	Share   string `mapstructure:"share"`
	Metrics string `mapstructure:"metrics"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" for stdout only
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// ExecConfig bounds every external command the agent runs. A hung probe or
// regeneration tool fails that one step, never the whole run.
type ExecConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type AppConfig struct {
	Directory DirectoryConfig `mapstructure:"directory"`
	Log       LogConfig       `mapstructure:"log"`
	Exec      ExecConfig      `mapstructure:"exec"`
}

/**
 * Load application configuration from YAML file
 * @returns {(*AppConfig, error)} Returns parsed configuration or read error
 * @description
 * - Searches /etc/gz302 first, then the working directory
 * - Missing file is not an error for callers; defaults cover everything
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/gz302")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Directory.State == "" {
		cfg.Directory.State = "/var/lib/gz302/state"
	}
	if cfg.Directory.Backups == "" {
		cfg.Directory.Backups = "/var/lib/gz302/backups"
	}
	if cfg.Directory.Share == "" {
		cfg.Directory.Share = "/usr/share/gz302"
	}
	if cfg.Directory.Metrics == "" {
		cfg.Directory.Metrics = "/var/lib/gz302/metrics"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = "/var/lib/gz302/gz302-agent.log"
	}
	if cfg.Exec.TimeoutSeconds <= 0 {
		cfg.Exec.TimeoutSeconds = 30
	}
	return cfg
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
