package api

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type roleHandlers struct {
	*Server
}

func newRoleHandlers(s *Server) *roleHandlers {
	return &roleHandlers{Server: s}
}

func (h *roleHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/role/", h.list, http.MethodGet)
	s.route("/api/system/role/", h.create, http.MethodPost)
	s.route("/api/system/role/{id}/", h.get, http.MethodGet)
	s.route("/api/system/role/{id}/role_menu_buttons/", h.menuButtons, http.MethodGet)
	s.route("/api/system/role/{id}/", h.update, http.MethodPut)
	s.route("/api/system/role/{id}/", h.delete, http.MethodDelete)
}

func (h *roleHandlers) list(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	roles, total, err := h.roles.List(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing roles failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, roles)
}

func (h *roleHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid role id")
		return
	}
	role, err := h.roles.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &role.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	httputil.WriteSuccess(w, role)
}

// menuButtons serves the role authorization picker: the full menu/button
// tree plus the role's currently granted IDs.
func (h *roleHandlers) menuButtons(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid role id")
		return
	}
	role, err := h.roles.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &role.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	tree, err := h.menuSvc.FullTree(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("loading menu tree failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"menus":           tree,
		"checked_menus":   role.MenuIDs,
		"checked_buttons": role.PermissionIDs,
		"checked_depts":   role.DeptIDs,
	})
}

func (h *roleHandlers) create(w http.ResponseWriter, r *http.Request) {
	var role store.Role
	if !httputil.ParseJSONOrError(w, r, &role) {
		return
	}
	if role.Name == "" || role.Key == "" {
		httputil.WriteBadRequest(w, "role name and key are required")
		return
	}
	if !role.DataRange.Valid() {
		httputil.WriteBadRequest(w, "invalid data range")
		return
	}
	h.stamp(r, &role.Attribution)
	if err := h.roles.Create(r.Context(), &role); err != nil {
		h.logger.WithError(err).Error("creating role failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (h *roleHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid role id")
		return
	}
	existing, err := h.roles.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &existing.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}

	var role store.Role
	if !httputil.ParseJSONOrError(w, r, &role) {
		return
	}
	role.ID = id
	if !role.DataRange.Valid() {
		httputil.WriteBadRequest(w, "invalid data range")
		return
	}
	stampModifier(r, &role.Attribution)
	if err := h.roles.Update(r.Context(), &role); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *roleHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid role id")
		return
	}
	existing, err := h.roles.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &existing.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	if err := h.roles.Delete(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "deleted")
}
