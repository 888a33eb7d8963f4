package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Log       LogConfig       `mapstructure:"log"       validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"   validate:"required"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
	Converter ConverterConfig `mapstructure:"converter" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ShutdownTimeout is the grace period for in-flight requests and tasks.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig controls the optional per-day log files.
type LogConfig struct {
	// Dir enables file logging when non-empty.
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gt=0"`
}

// Retention is how long daily log files are kept.
func (c LogConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Storage backend names.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// StorageConfig selects and configures the task record backend.
type StorageConfig struct {
	Type           string `mapstructure:"type"             validate:"required,oneof=memory file redis postgres"`
	FilePath       string `mapstructure:"file_path"        validate:"required_if=Type file"`
	RedisURL       string `mapstructure:"redis_url"        validate:"required_if=Type redis"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
	DatabaseURL    string `mapstructure:"database_url"     validate:"required_if=Type postgres"`
}

// TaskConfig contains settings for task execution and uploads.
type TaskConfig struct {
	WorkDir string `mapstructure:"work_dir" validate:"required"`
	// TimeoutSeconds is advisory: overruns are logged, never enforced.
	TimeoutSeconds int  `mapstructure:"timeout_seconds"  validate:"gte=0"`
	RecoverOnStart bool `mapstructure:"recover_on_start"`
	MaxUploadMB    int  `mapstructure:"max_upload_mb"    validate:"gt=0"`
}

// Timeout returns the advisory task timeout, zero when disabled.
func (c TaskConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaxUploadBytes bounds the size of a submission request body.
func (c TaskConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// PDF conversion backends.
const (
	PDFBackendMarker = "marker"
	PDFBackendGemini = "gemini"
)

// ConverterConfig configures file-to-text conversion.
type ConverterConfig struct {
	PDFBackend    string `mapstructure:"pdf_backend"    validate:"required,oneof=marker gemini"`
	MarkerCommand string `mapstructure:"marker_command" validate:"required_if=PDFBackend marker"`
	// GeminiAPIKey may be empty; PDF conversions then fail per file.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
	// GeminiMaxRetries is the number of retries after a failed Gemini call.
	GeminiMaxRetries        int `mapstructure:"gemini_max_retries"         validate:"gte=0"`
	GeminiRetryDelaySeconds int `mapstructure:"gemini_retry_delay_seconds" validate:"gt=0"`
}

// GeminiRetryDelay is the base backoff between Gemini retries.
func (c ConverterConfig) GeminiRetryDelay() time.Duration {
	return time.Duration(c.GeminiRetryDelaySeconds) * time.Second
}
