// Package api handles incoming HTTP requests, request validation, and
// response formatting. It adapts multipart uploads and polling requests to
// the task engine and confines file downloads to the work directory.
package api
