// Package audit records login attempts and mutating API requests to the
// database and purges them past the retention window.
package audit
