// Package ciutil centralizes environment detection and access to the
// environment variables used by tests and CI: database and Redis URLs for
// integration tests, and masking of secrets before they are logged.
package ciutil
