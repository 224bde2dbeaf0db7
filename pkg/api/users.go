package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type userHandlers struct {
	*Server
}

func newUserHandlers(s *Server) *userHandlers {
	return &userHandlers{Server: s}
}

func (h *userHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/user/", h.list, http.MethodGet)
	s.route("/api/system/user/", h.create, http.MethodPost)
	s.route("/api/system/user/export/", h.export, http.MethodGet)
	s.route("/api/system/user/user_info/", h.userInfo, http.MethodGet)
	s.route("/api/system/user/change_password/", h.changePassword, http.MethodPut)
	s.route("/api/system/user/{id}/", h.get, http.MethodGet)
	s.route("/api/system/user/{id}/", h.update, http.MethodPut)
	s.route("/api/system/user/{id}/", h.delete, http.MethodDelete)
	s.route("/api/system/user/{id}/reset_password/", h.resetPassword, http.MethodPut)
}

func (h *userHandlers) list(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	users, total, err := h.users.List(r.Context(), r.URL.Query().Get("search"), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing users failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, users)
}

func (h *userHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &user.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	httputil.WriteSuccess(w, user)
}

type createUserRequest struct {
	store.User
	Password string `json:"password"`
}

func (h *userHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Username == "" {
		httputil.WriteBadRequest(w, "username is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "password is required")
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
	if err != nil {
		h.logger.WithError(err).Error("hashing password failed")
		httputil.WriteInternalError(w)
		return
	}
	user := req.User
	user.Password = hash
	h.stamp(r, &user.Attribution)
	if err := h.users.Create(r.Context(), &user); err != nil {
		h.logger.WithError(err).Error("creating user failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *userHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	existing, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &existing.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}

	var user store.User
	if !httputil.ParseJSONOrError(w, r, &user) {
		return
	}
	user.ID = id
	stampModifier(r, &user.Attribution)
	if err := h.users.Update(r.Context(), &user); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *userHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	if ident := auth.FromContext(r.Context()); ident != nil && ident.UserID == id {
		httputil.WriteBadRequest(w, "cannot delete your own account")
		return
	}
	existing, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &existing.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	if err := h.users.Delete(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "deleted")
}

// userInfo returns the caller's profile plus menu grants, the payload the
// frontend loads after login.
func (h *userHandlers) userInfo(w http.ResponseWriter, r *http.Request) {
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

	menus, err := h.menuSvc.AuthorizedTree(r.Context(), user)
	if err != nil {
		h.logger.WithError(err).Error("loading menu tree failed")
		httputil.WriteInternalError(w)
		return
	}
	codes, err := h.menuSvc.PermissionCodes(r.Context(), user)
	if err != nil {
		h.logger.WithError(err).Error("loading permission codes failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"user":        user,
		"menus":       menus,
		"permissions": codes,
	})
}

type changePasswordRequest struct {
	OldPassword  string `json:"oldPassword"`
	NewPassword  string `json:"newPassword"`
	NewPassword2 string `json:"newPassword2"`
}

func (h *userHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		httputil.WriteUnauthorized(w, "")
		return
	}
	var req changePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.NewPassword == "" || req.NewPassword != req.NewPassword2 {
		httputil.WriteBadRequest(w, "new passwords do not match")
		return
	}

	user, err := h.users.Get(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := auth.CheckPassword(user.Password, req.OldPassword); err != nil {
		httputil.WriteBadRequest(w, "old password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, h.cfg.Auth.BcryptCost)
	if err != nil {
		h.logger.WithError(err).Error("hashing password failed")
		httputil.WriteInternalError(w)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "password changed")
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// resetPassword sets a user's password without the old one. Access is
// controlled by the permission gate like any other mutation.
func (h *userHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	var req resetPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "password is required")
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &user.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
	if err != nil {
		h.logger.WithError(err).Error("hashing password failed")
		httputil.WriteInternalError(w)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), id, hash); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "password reset")
}

var exportHeaders = []string{"Username", "Name", "Email", "Mobile", "Department", "Gender", "Active", "Created"}

// export streams the scope-visible users as an xlsx workbook.
func (h *userHandlers) export(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Scope: scopeFilter(r)}
	users, _, err := h.users.List(r.Context(), r.URL.Query().Get("search"), opts)
	if err != nil {
		h.logger.WithError(err).Error("exporting users failed")
		httputil.WriteInternalError(w)
		return
	}

	deptNames := make(map[int64]string)
	if depts, err := h.depts.AllEnabled(r.Context()); err == nil {
		for _, d := range depts {
			deptNames[d.ID] = d.Name
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Users"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	for row, u := range users {
		dept := ""
		if u.DeptID != nil {
			dept = deptNames[*u.DeptID]
		}
		active := "no"
		if u.IsActive {
			active = "yes"
		}
		values := []interface{}{
			u.Username, u.Name, u.Email, u.Mobile, dept,
			genderLabel(u.Gender), active, u.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("users-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		h.logger.WithError(err).Error("writing user export failed")
	}
}

func genderLabel(g int) string {
	switch g {
	case 1:
		return "male"
	case 2:
		return "female"
	default:
		return "unknown"
	}
}
