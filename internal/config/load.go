package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration environment variable.
const EnvPrefix = "CHUNKR"

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over values
// from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return load("")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// keys without defaults are invisible to AutomaticEnv during Unmarshal
	bindEnvs := []struct {
		key     string
		envVars []string
	}{
		{"converter.gemini_api_key", []string{"CHUNKR_CONVERTER_GEMINI_API_KEY", "GEMINI_API_KEY"}},
		{"storage.database_url", []string{"CHUNKR_STORAGE_DATABASE_URL", "DATABASE_URL"}},
		{"log.dir", []string{"CHUNKR_LOG_DIR"}},
	}
	for _, env := range bindEnvs {
		args := append([]string{env.key}, env.envVars...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVars[0], err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Server.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Server.LogLevel))
	cfg.Storage.Type = strings.ToLower(strings.TrimSpace(cfg.Storage.Type))
	cfg.Converter.PDFBackend = strings.ToLower(strings.TrimSpace(cfg.Converter.PDFBackend))

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 30)

	v.SetDefault("log.retention_days", 30)

	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.file_path", "./data")
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis_key_prefix", "task:")

	v.SetDefault("task.work_dir", "/tmp/ai_chunking")
	v.SetDefault("task.timeout_seconds", 3600)
	v.SetDefault("task.recover_on_start", true)
	v.SetDefault("task.max_upload_mb", 100)

	v.SetDefault("converter.pdf_backend", PDFBackendMarker)
	v.SetDefault("converter.marker_command", "marker_single")
	v.SetDefault("converter.model_name", "gemini-2.0-flash")
	v.SetDefault("converter.gemini_max_retries", 3)
	v.SetDefault("converter.gemini_retry_delay_seconds", 2)
}
