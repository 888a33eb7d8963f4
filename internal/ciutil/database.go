package ciutil

import (
	"log/slog"
)

// GetTestDatabaseURL returns the PostgreSQL URL integration tests should use,
// checking CHUNKR_TEST_DB_URL, DATABASE_URL and CHUNKR_STORAGE_DATABASE_URL
// in that order. It returns "" when none is set so callers can skip.
func GetTestDatabaseURL(logger *slog.Logger) string {
	dbURL := GetEnvWithFallbacks(
		[]string{EnvChunkrTestDBURL, EnvDatabaseURL, EnvChunkrStorageDBURL}, "", logger)

	if logger != nil {
		if dbURL == "" {
			logger.Info("no database URL environment variables found")
		} else {
			logger.Info("using test database", "url", MaskSensitiveValue(dbURL))
		}
	}
	return dbURL
}

// GetTestRedisURL returns the Redis URL for tests against a real server, or "".
func GetTestRedisURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvChunkrTestRedisURL, EnvChunkrStorageRedis}, "", logger)
}
