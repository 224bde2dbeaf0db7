package auth

import (
	"context"

	"github.com/gatehouse-io/gatehouse/pkg/contextkeys"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID      int64
	Username    string
	IsSuperuser bool
}

// FromContext returns the identity set by the auth middleware, or nil for
// anonymous requests.
func FromContext(ctx context.Context) *Identity {
	if ident, ok := ctx.Value(contextkeys.IdentityKey).(*Identity); ok {
		return ident
	}
	return nil
}

// NewContext attaches an identity to the context.
func NewContext(ctx context.Context, ident *Identity) context.Context {
	return contextkeys.WithIdentity(ctx, ident)
}
