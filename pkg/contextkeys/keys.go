// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/gatehouse-io/gatehouse/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.IdentityKey, ident)
//   ident := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains *auth.Identity
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: the permission gate, scope resolution, audit trail
	// Type: *auth.Identity
	IdentityKey Key = "identity"

	// ScopeKey contains *scope.Spec resolved for the current request
	// Set by: gate.Middleware after authorization succeeds
	// Required by: handlers that run scope-filtered list/retrieve queries
	// Type: *scope.Spec
	ScopeKey Key = "scope_spec"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: middleware.AuthMiddleware after authentication
	// Used by: Logger, audit trail, user-scoped operations
	// Type: string
	UserIDKey Key = "user_id"
)

// Helper functions for type-safe context operations

// WithIdentity adds the authenticated identity to the context
func WithIdentity(ctx context.Context, ident interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}

// WithScope adds the resolved data scope to the context
func WithScope(ctx context.Context, spec interface{}) context.Context {
	return context.WithValue(ctx, ScopeKey, spec)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
