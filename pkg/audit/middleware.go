package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// captureLimit bounds how much request and response body is stored per
// operation log entry.
const captureLimit = 16 << 10

// Middleware records an operation log for every mutating request.
type Middleware struct {
	recorder *Recorder
	users    *store.UserStore
}

// NewMiddleware creates the operation log middleware.
func NewMiddleware(recorder *Recorder, users *store.UserStore) *Middleware {
	return &Middleware{recorder: recorder, users: users}
}

// captureWriter tees the response body up to captureLimit.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if remaining := captureLimit - w.body.Len(); remaining > 0 {
		if len(b) > remaining {
			w.body.Write(b[:remaining])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// Handler wraps next, recording an operation log after mutating requests
// complete. GET/HEAD/OPTIONS and the login path are not recorded.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shouldRecord(r) {
			next.ServeHTTP(w, r)
			return
		}

		var reqBody []byte
		if r.Body != nil {
			reqBody, _ = io.ReadAll(io.LimitReader(r.Body, captureLimit))
			rest, _ := io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), bytes.NewReader(rest)))
		}

		cw := &captureWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)
		if cw.status == 0 {
			cw.status = http.StatusOK
		}

		browser, agentOS := ParseUserAgent(r.UserAgent())
		code, msg := parseEnvelope(cw.body.Bytes())
		entry := &store.OperationLog{
			RequestModular: modularFromPath(r.URL.Path),
			RequestPath:    r.URL.Path,
			RequestBody:    string(reqBody),
			RequestMethod:  r.Method,
			RequestMsg:     msg,
			RequestIP:      httputil.ClientIP(r),
			RequestBrowser: browser,
			RequestOS:      agentOS,
			ResponseCode:   cw.status,
			JSONResult:     cw.body.String(),
			Status:         cw.status < 400 && (code == 0 || code == httputil.CodeSuccess),
		}
		if ident := auth.FromContext(r.Context()); ident != nil {
			entry.Creator = &ident.UserID
			entry.Modifier = ident.Username
			if user, err := m.users.Get(r.Context(), ident.UserID); err == nil {
				entry.DeptBelongID = user.DeptID
			}
		}
		m.recorder.RecordOperation(r.Context(), entry)
	})
}

func shouldRecord(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	// Login attempts go to the login log instead.
	if strings.HasPrefix(r.URL.Path, "/api/login") || strings.HasPrefix(r.URL.Path, "/api/token") {
		return false
	}
	return true
}

// modularFromPath derives a module label from the request path, e.g.
// /api/system/user/3/ yields "system/user".
func modularFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/")
	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	keep := make([]string, 0, 2)
	for _, seg := range segments {
		if seg == "" || isNumeric(seg) {
			continue
		}
		keep = append(keep, seg)
		if len(keep) == 2 {
			break
		}
	}
	return strings.Join(keep, "/")
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// parseEnvelope pulls the application code and message out of a response
// body when it is a standard envelope; non-JSON bodies yield zero values.
func parseEnvelope(body []byte) (int, string) {
	var envelope struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, ""
	}
	return envelope.Code, envelope.Msg
}
