package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Worker    WorkerConfig    `mapstructure:"worker"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Todoist   TodoistConfig   `mapstructure:"todoist"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Planner   PlannerConfig   `mapstructure:"planner"   validate:"required"`
	Sync      SyncConfig      `mapstructure:"sync"      validate:"required"`
	Retention RetentionConfig `mapstructure:"retention" validate:"required"`
}

// WorkerConfig contains the job dispatcher settings.
type WorkerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// MaxAttempts is the attempt count after which a failing job moves to the
	// dead-letter queue instead of being retried.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gte=1,lte=10"`
	// PopTimeoutSeconds bounds how long one blocking queue pop waits before
	// the dispatcher loop comes back around.
	PopTimeoutSeconds int `mapstructure:"pop_timeout_seconds" validate:"required,gte=1"`
	// BackoffCapSeconds caps the exponential retry backoff.
	BackoffCapSeconds int `mapstructure:"backoff_cap_seconds" validate:"required,gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// TodoistConfig contains the remote tracker client settings.
// Token is optional: without it the sync topics fail loudly when triggered,
// which beats silently skipping work.
type TodoistConfig struct {
	Token          string `mapstructure:"token"`
	APIBase        string `mapstructure:"api_base" validate:"required,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gte=1"`
}

// LLMConfig contains the plan rewriter settings. An empty GeminiAPIKey
// disables the rewrite step entirely; plans are served deterministically.
type LLMConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	ModelName      string `mapstructure:"model_name" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gte=1"`
}

// PlannerConfig contains the plan ranking knobs. The defaults reproduce the
// documented scoring exactly; changing a weight changes every plan.
type PlannerConfig struct {
	TopNToday           int     `mapstructure:"top_n_today" validate:"required,gte=1"`
	TopNNext            int     `mapstructure:"top_n_next" validate:"required,gte=1"`
	WeightUrgency       float64 `mapstructure:"weight_urgency" validate:"required,gt=0"`
	WeightImpact        float64 `mapstructure:"weight_impact" validate:"required,gt=0"`
	WeightGoalAlignment float64 `mapstructure:"weight_goal_alignment" validate:"required,gt=0"`
	WeightStaleness     float64 `mapstructure:"weight_staleness" validate:"required,gt=0"`
}

// SyncConfig contains the reconcile scan settings.
type SyncConfig struct {
	ReconcilePageSize int `mapstructure:"reconcile_page_size" validate:"required,gte=1"`
	// ReconcileWindowMinutes is how far back the status report counts
	// reconcile failures.
	ReconcileWindowMinutes int `mapstructure:"reconcile_window_minutes" validate:"required,gte=1"`
}

// RetentionConfig contains the memory compaction settings.
type RetentionConfig struct {
	// TranscriptDays is how long raw inbox transcripts are kept before the
	// compactor may delete them.
	TranscriptDays int `mapstructure:"transcript_days" validate:"required,gte=1"`
}
