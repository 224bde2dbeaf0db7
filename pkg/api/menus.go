package api

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type menuHandlers struct {
	*Server
}

func newMenuHandlers(s *Server) *menuHandlers {
	return &menuHandlers{Server: s}
}

func (h *menuHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/menu/", h.list, http.MethodGet)
	s.route("/api/system/menu/", h.create, http.MethodPost)
	s.route("/api/system/menu/web_router/", h.webRouter, http.MethodGet)
	s.route("/api/system/menu/left_menu/", h.webRouter, http.MethodGet)
	s.route("/api/system/menu/{id}/", h.get, http.MethodGet)
	s.route("/api/system/menu/{id}/", h.update, http.MethodPut)
	s.route("/api/system/menu/{id}/", h.delete, http.MethodDelete)

	s.route("/api/system/menu_button/", h.listButtons, http.MethodGet)
	s.route("/api/system/menu_button/", h.createButton, http.MethodPost)
	s.route("/api/system/menu_button/permission_codes/", h.permissionCodes, http.MethodGet)
	s.route("/api/system/menu_button/{id}/", h.updateButton, http.MethodPut)
	s.route("/api/system/menu_button/{id}/", h.deleteButton, http.MethodDelete)
}

func (h *menuHandlers) list(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	menus, total, err := h.menus.ListMenus(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing menus failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, menus)
}

func (h *menuHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid menu id")
		return
	}
	m, err := h.menus.GetMenu(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, m)
}

func (h *menuHandlers) create(w http.ResponseWriter, r *http.Request) {
	var m store.Menu
	if !httputil.ParseJSONOrError(w, r, &m) {
		return
	}
	if m.Name == "" {
		httputil.WriteBadRequest(w, "menu name is required")
		return
	}
	h.stamp(r, &m.Attribution)
	if err := h.menus.CreateMenu(r.Context(), &m); err != nil {
		h.logger.WithError(err).Error("creating menu failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, m)
}

func (h *menuHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid menu id")
		return
	}
	var m store.Menu
	if !httputil.ParseJSONOrError(w, r, &m) {
		return
	}
	m.ID = id
	if m.ParentID != nil && *m.ParentID == id {
		httputil.WriteBadRequest(w, "a menu cannot be its own parent")
		return
	}
	stampModifier(r, &m.Attribution)
	if err := h.menus.UpdateMenu(r.Context(), &m); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *menuHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid menu id")
		return
	}
	if err := h.menus.DeleteMenu(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "deleted")
}

// webRouter returns the caller's authorized menu tree, the payload the
// frontend builds its navigation from.
func (h *menuHandlers) webRouter(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		httputil.WriteUnauthorized(w, "")
		return
	}
	user, err := h.users.Get(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	tree, err := h.menuSvc.AuthorizedTree(r.Context(), user)
	if err != nil {
		h.logger.WithError(err).Error("loading menu tree failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, tree)
}

// permissionCodes returns the caller's flattened button permission values.
func (h *menuHandlers) permissionCodes(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		httputil.WriteUnauthorized(w, "")
		return
	}
	user, err := h.users.Get(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	codes, err := h.menuSvc.PermissionCodes(r.Context(), user)
	if err != nil {
		h.logger.WithError(err).Error("loading permission codes failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, codes)
}

func (h *menuHandlers) listButtons(w http.ResponseWriter, r *http.Request) {
	if menuID := httputil.QueryInt64(r, "menu", 0); menuID > 0 {
		buttons, err := h.menus.ButtonsByMenu(r.Context(), menuID)
		if err != nil {
			h.logger.WithError(err).Error("listing menu buttons failed")
			httputil.WriteInternalError(w)
			return
		}
		httputil.WriteSuccess(w, buttons)
		return
	}
	buttons, err := h.menus.AllButtons(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("listing menu buttons failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, buttons)
}

func (h *menuHandlers) createButton(w http.ResponseWriter, r *http.Request) {
	var b store.MenuButton
	if !httputil.ParseJSONOrError(w, r, &b) {
		return
	}
	if b.MenuID == 0 || b.Name == "" || b.Value == "" {
		httputil.WriteBadRequest(w, "menu, name and value are required")
		return
	}
	h.stamp(r, &b.Attribution)
	if err := h.menus.CreateButton(r.Context(), &b); err != nil {
		h.logger.WithError(err).Error("creating menu button failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, b)
}

func (h *menuHandlers) updateButton(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid button id")
		return
	}
	var b store.MenuButton
	if !httputil.ParseJSONOrError(w, r, &b) {
		return
	}
	b.ID = id
	stampModifier(r, &b.Attribution)
	if err := h.menus.UpdateButton(r.Context(), &b); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *menuHandlers) deleteButton(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid button id")
		return
	}
	if err := h.menus.DeleteButton(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "deleted")
}
