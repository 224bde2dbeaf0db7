package api

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/orgquery"
)

type orgHandlers struct {
	*Server
}

func newOrgHandlers(s *Server) *orgHandlers {
	return &orgHandlers{Server: s}
}

func (h *orgHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/org/parse_result/", h.parseResult, http.MethodPost)
}

type parseResultRequest struct {
	Selections []orgquery.Selection `json:"selections"`
}

// parseResult expands mixed department/user selections into a flat,
// de-duplicated user list.
func (h *orgHandlers) parseResult(w http.ResponseWriter, r *http.Request) {
	var req parseResultRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	users, err := h.resolver.Resolve(r.Context(), req.Selections)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteSuccess(w, users)
}
