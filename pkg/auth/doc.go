// Package auth implements authentication: JWT access/refresh tokens,
// bcrypt password hashing, the login/logout/refresh handlers and the
// middleware that attaches the caller's identity to the request context.
//
// The middleware never rejects a request itself; it resolves an Identity
// when credentials are present and leaves enforcement to the permission
// gate, which knows about the whitelist.
package auth
