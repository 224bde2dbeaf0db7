package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/scope"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// scopeFilter returns the request's data scope as a row filter, or nil when
// the endpoint is scope-exempt.
func scopeFilter(r *http.Request) store.RowFilter {
	if spec := scope.FromContext(r.Context()); spec != nil {
		return spec
	}
	return nil
}

// listOptions builds paging plus the request's data scope.
func listOptions(r *http.Request) store.ListOptions {
	page, limit := httputil.Pagination(r)
	return store.ListOptions{Page: page, Limit: limit, Scope: scopeFilter(r)}
}

// scopeAllows checks a single fetched row against the request scope. Rows
// outside the scope read as absent, not forbidden.
func scopeAllows(r *http.Request, a *store.Attribution) bool {
	spec := scope.FromContext(r.Context())
	if spec == nil {
		return true
	}
	return spec.Allows(a.Creator, a.DeptBelongID)
}

// stamp fills creator/modifier attribution from the authenticated caller.
// dept_belong_id defaults to the caller's department when unset.
func (s *Server) stamp(r *http.Request, a *store.Attribution) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		return
	}
	a.Creator = &ident.UserID
	a.Modifier = ident.Username
	if a.DeptBelongID == nil {
		if user, err := s.users.Get(r.Context(), ident.UserID); err == nil {
			a.DeptBelongID = user.DeptID
		}
	}
}

// stampModifier updates only the modifier on edits.
func stampModifier(r *http.Request, a *store.Attribution) {
	if ident := auth.FromContext(r.Context()); ident != nil {
		a.Modifier = ident.Username
	}
}

// deleteRequest carries the soft_delete flag; absent or true keeps the
// default soft delete, explicit false removes the row.
type deleteRequest struct {
	SoftDelete *bool `json:"soft_delete"`
}

// hardDelete reads the optional delete body. An empty body means soft.
func hardDelete(r *http.Request) bool {
	var req deleteRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		return false
	}
	return req.SoftDelete != nil && !*req.SoftDelete
}

// writeStoreError maps store errors onto the envelope.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFound(w, "")
		return
	}
	httputil.WriteInternalError(w)
}
