// Package store defines the persistence contract for task records.
// Backends (in-process, on-disk, external services) live under
// internal/platform and all satisfy TaskRecordStore, so the task engine
// remains independent of the storage technology selected at startup.
package store
