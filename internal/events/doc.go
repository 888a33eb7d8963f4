// Package events publishes task lifecycle events.
//
// Every persisted status transition produces a TaskEvent. Components emit
// events through the EventEmitter interface without knowing which handlers
// consume them; handler failures are logged and never affect the task.
package events
