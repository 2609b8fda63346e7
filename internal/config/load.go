package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables.
// Environment variables use the AUGUR_ prefix with underscores separating
// nested keys, so AUGUR_WORKER_LOG_LEVEL sets worker.log_level.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the named file plus environment
// variables, with the environment taking precedence over file values.
// An empty path skips the file and reads the environment only.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Every key gets a default so Unmarshal sees it and AutomaticEnv can
	// override it. Required settings without a sensible default use the
	// zero value and rely on validation to fail loudly when left unset.
	v.SetDefault("worker.log_level", "info")
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.pop_timeout_seconds", 5)
	v.SetDefault("worker.backoff_cap_seconds", 60)

	v.SetDefault("database.url", "")

	v.SetDefault("todoist.token", "")
	v.SetDefault("todoist.api_base", "https://api.todoist.com/rest/v2")
	v.SetDefault("todoist.timeout_seconds", 15)

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-1.5-flash")
	v.SetDefault("llm.timeout_seconds", 30)

	v.SetDefault("planner.top_n_today", 6)
	v.SetDefault("planner.top_n_next", 8)
	v.SetDefault("planner.weight_urgency", 4.0)
	v.SetDefault("planner.weight_impact", 3.0)
	v.SetDefault("planner.weight_goal_alignment", 2.0)
	v.SetDefault("planner.weight_staleness", 1.0)

	v.SetDefault("sync.reconcile_page_size", 50)
	v.SetDefault("sync.reconcile_window_minutes", 60)

	v.SetDefault("retention.transcript_days", 30)

	v.SetEnvPrefix("AUGUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
