// Package config provides configuration loading and validation for the
// xeretabot application. Values come from a YAML file plus BOT_-prefixed
// environment variables layered over defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration, grouped by component.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credentials and the admin recipient.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TrackerConfig controls the shadow cache and deletion notification behavior.
type TrackerConfig struct {
	NotifyDeletions   bool `mapstructure:"notify_deletions"`
	SaveMediaMessages bool `mapstructure:"save_media_messages"`
	MaxSearchResults  int  `mapstructure:"max_search_results" validate:"min=1,max=100"`
	MaxDisplayLength  int  `mapstructure:"max_display_length" validate:"min=10,max=4096"`
}

// SchedulerConfig holds the scheduled task definitions, keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a single scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig reads configuration from the given YAML file, applies defaults
// and environment overrides, and validates the result. A missing file is
// tolerated; missing required values are not.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
		// Config file not found is fine, defaults plus env apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	// Required keys are registered empty so env-only overrides reach
	// Unmarshal; validation still rejects them when left unset.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("database.path", "storage.db")

	v.SetDefault("tracker.notify_deletions", true)
	v.SetDefault("tracker.save_media_messages", true)
	v.SetDefault("tracker.max_search_results", 10)
	v.SetDefault("tracker.max_display_length", 100)
}
