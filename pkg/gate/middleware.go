package gate

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/scope"
)

// Middleware enforces the gate on every request and attaches the resolved
// data scope for handlers that list or retrieve attributed rows.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := auth.FromContext(r.Context())

		decision, err := g.Authorize(r.Context(), r.Method, r.URL.Path, ident)
		if err != nil {
			if g.logger != nil {
				g.logger.WithError(err).Error("authorization check failed")
			}
			httputil.WriteInternalError(w)
			return
		}
		if !decision.Allowed {
			if decision.Reason == ReasonUnauthenticated {
				httputil.WriteUnauthorized(w, "")
			} else {
				httputil.WriteForbidden(w, "")
			}
			return
		}

		spec, err := g.ResolveScope(r.Context(), decision)
		if err != nil {
			if g.logger != nil {
				g.logger.WithError(err).Error("scope resolution failed")
			}
			httputil.WriteInternalError(w)
			return
		}

		ctx := r.Context()
		if spec != nil {
			ctx = scope.NewContext(ctx, spec)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
