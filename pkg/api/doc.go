// Package api wires the HTTP surface: routing, middleware chain and the
// CRUD handlers for the administrative resources.
package api
