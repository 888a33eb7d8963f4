// Package task drives submitted work through its lifecycle.
//
// The Engine accepts a task, persists it as pending and hands it to the
// Runner registered for its type on a detached goroutine, so the caller
// never waits for execution. A Runner moves one record through
// pending -> running -> completed|failed, saving each state before taking
// the next step, and delegates the actual work to an Executor.
//
// There is no queue or worker pool: every submission gets its own goroutine
// and concurrent submissions run independently.
package task
