// Package postgres implements store.TaskRecordStore on PostgreSQL.
//
// Each record is one row in task_records. The full record is kept as JSONB
// so every field round-trips exactly; id, task_type, status and created_at
// are duplicated into columns for querying. The schema is created by the
// embedded goose migrations through Migrate.
package postgres
