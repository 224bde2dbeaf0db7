package api

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
)

type auditHandlers struct {
	*Server
}

func newAuditHandlers(s *Server) *auditHandlers {
	return &auditHandlers{Server: s}
}

func (h *auditHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/login_log/", h.loginLogList, http.MethodGet)
	s.route("/api/system/operation_log/", h.operationLogList, http.MethodGet)
}

func (h *auditHandlers) loginLogList(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	logs, total, err := h.loginLogs.List(r.Context(), r.URL.Query().Get("username"), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing login logs failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, logs)
}

func (h *auditHandlers) operationLogList(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	logs, total, err := h.opLogs.List(r.Context(), r.URL.Query().Get("request_path"), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing operation logs failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, logs)
}
