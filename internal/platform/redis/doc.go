// Package redis implements store.TaskRecordStore on a Redis server. Each
// record is stored as a JSON string under <prefix><task_id> with no expiry.
package redis
