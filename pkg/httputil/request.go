package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// ErrEmptyBody is returned by ParseJSON when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// ParseJSON decodes the request body into dst, rejecting unknown fields.
func ParseJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes the body into dst and writes a 400 on failure.
// Returns false when the response has already been written.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := ParseJSON(r, dst); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// QueryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func QueryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// QueryInt64 reads an int64 query parameter with a default.
func QueryInt64(r *http.Request, key string, def int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// Pagination extracts page/limit query parameters with sane bounds.
// limit=0 is allowed and means "no paging" on endpoints that support it.
func Pagination(r *http.Request) (page, limit int) {
	page = QueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = QueryInt(r, "limit", 10)
	if limit < 0 {
		limit = 10
	}
	if limit > 1000 {
		limit = 1000
	}
	return page, limit
}

// ClientIP returns the originating client address, honoring X-Forwarded-For
// and X-Real-IP set by the fronting proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	return r.RemoteAddr
}
