// Package filestore implements store.TaskRecordStore on the local file
// system, one JSON file per task named <task_id>.json.
//
// Writes go to a hidden temporary file in the same directory which is synced
// and then renamed over the target, so a reader never observes a partially
// written record. Files that fail to decode are skipped and logged.
package filestore
