// Package config loads, parses and validates the server configuration from
// CHUNKR_ environment variables and an optional YAML file. Settings are
// grouped by component (server, log, storage, task, converter) and checked
// before anything is started.
package config
