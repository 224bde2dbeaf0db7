package api

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type whitelistHandlers struct {
	*Server
}

func newWhitelistHandlers(s *Server) *whitelistHandlers {
	return &whitelistHandlers{Server: s}
}

func (h *whitelistHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/api_white_list/", h.list, http.MethodGet)
	s.route("/api/system/api_white_list/", h.create, http.MethodPost)
	s.route("/api/system/api_white_list/{id}/", h.update, http.MethodPut)
	s.route("/api/system/api_white_list/{id}/", h.delete, http.MethodDelete)
}

func (h *whitelistHandlers) list(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	entries, total, err := h.whitelist.List(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing whitelist failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, entries)
}

func (h *whitelistHandlers) create(w http.ResponseWriter, r *http.Request) {
	var entry store.WhitelistEntry
	if !httputil.ParseJSONOrError(w, r, &entry) {
		return
	}
	if entry.URL == "" || entry.Method == "" {
		httputil.WriteBadRequest(w, "url and method are required")
		return
	}
	h.stamp(r, &entry.Attribution)
	if err := h.whitelist.Create(r.Context(), &entry); err != nil {
		h.logger.WithError(err).Error("creating whitelist entry failed")
		httputil.WriteInternalError(w)
		return
	}
	h.gate.InvalidateWhitelist()
	httputil.WriteSuccess(w, entry)
}

func (h *whitelistHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid whitelist id")
		return
	}
	var entry store.WhitelistEntry
	if !httputil.ParseJSONOrError(w, r, &entry) {
		return
	}
	entry.ID = id
	stampModifier(r, &entry.Attribution)
	if err := h.whitelist.Update(r.Context(), &entry); err != nil {
		writeStoreError(w, err)
		return
	}
	h.gate.InvalidateWhitelist()
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *whitelistHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid whitelist id")
		return
	}
	if err := h.whitelist.Delete(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	h.gate.InvalidateWhitelist()
	httputil.WriteSuccessMsg(w, "deleted")
}
