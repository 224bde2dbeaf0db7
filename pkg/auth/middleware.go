package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gatehouse-io/gatehouse/pkg/contextkeys"
)

// Middleware resolves the caller's identity from a Bearer token. Browser
// downloads cannot set headers, so export endpoints may carry the access
// token in an access_token query parameter instead.
type Middleware struct {
	tokens          *TokenManager
	allowQueryToken func(r *http.Request) bool
}

// NewMiddleware creates the auth middleware. allowQueryToken nil uses the
// default export/download path check.
func NewMiddleware(tokens *TokenManager, allowQueryToken func(r *http.Request) bool) *Middleware {
	if allowQueryToken == nil {
		allowQueryToken = isExportPath
	}
	return &Middleware{tokens: tokens, allowQueryToken: allowQueryToken}
}

// Handler attaches an Identity to the context when a valid token is
// present. Requests without credentials pass through anonymous; the
// permission gate decides whether that is acceptable.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident, err := m.tokens.ValidateAccess(token)
		if err != nil {
			// Invalid credentials are treated as anonymous rather than
			// rejected here, so whitelisted endpoints keep working with a
			// stale token.
			next.ServeHTTP(w, r)
			return
		}

		ctx := NewContext(r.Context(), ident)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(ident.UserID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		if len(parts) == 2 && strings.EqualFold(parts[0], "JWT") {
			return parts[1]
		}
		return ""
	}
	if m.allowQueryToken(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func isExportPath(r *http.Request) bool {
	path := r.URL.Path
	return strings.HasSuffix(path, "/export/") || strings.HasSuffix(path, "/download/")
}
