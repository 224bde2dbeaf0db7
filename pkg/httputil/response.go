package httputil

import (
	"encoding/json"
	"net/http"
)

// Response codes carried inside the JSON envelope. These are application
// codes, not HTTP status codes; clients switch on them.
const (
	CodeSuccess      = 2000
	CodeBadRequest   = 4000
	CodeUnauthorized = 4001
	CodeForbidden    = 4003
	CodeNotFound     = 4004
	CodeServerError  = 5000
)

// Response is the envelope every handler writes.
type Response struct {
	Code int         `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg"`
}

// Page wraps a paginated list result.
type Page struct {
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	Total   int         `json:"total"`
	Results interface{} `json:"data"`
}

// WriteJSON writes an arbitrary payload with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// WriteSuccess writes a 200 envelope around data.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Response{Code: CodeSuccess, Data: data, Msg: "success"})
}

// WriteSuccessMsg writes a 200 envelope with a custom message and no data.
func WriteSuccessMsg(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, Response{Code: CodeSuccess, Msg: msg})
}

// WritePage writes a 200 envelope around a paginated list.
func WritePage(w http.ResponseWriter, page, limit, total int, results interface{}) {
	WriteSuccess(w, Page{Page: page, Limit: limit, Total: total, Results: results})
}

// WriteError writes an error envelope with the given HTTP status and
// application code.
func WriteError(w http.ResponseWriter, status, code int, msg string) {
	WriteJSON(w, status, Response{Code: code, Msg: msg})
}

// WriteBadRequest writes a 400 with a client-facing message.
func WriteBadRequest(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, msg)
}

// WriteUnauthorized writes a 401 for missing or invalid credentials.
func WriteUnauthorized(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "authentication required"
	}
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
}

// WriteForbidden writes a 403 for an authenticated caller without permission.
func WriteForbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "permission denied"
	}
	WriteError(w, http.StatusForbidden, CodeForbidden, msg)
}

// WriteNotFound writes a 404.
func WriteNotFound(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "not found"
	}
	WriteError(w, http.StatusNotFound, CodeNotFound, msg)
}

// WriteInternalError writes a 500 with a generic message. Details belong in
// the log, not the response.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeServerError, "internal server error")
}
