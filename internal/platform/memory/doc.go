// Package memory provides an in-process implementation of
// store.TaskRecordStore. Records live only as long as the process and are
// isolated from callers by copying on every read and write.
package memory
