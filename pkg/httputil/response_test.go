package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"name": "ops"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != CodeSuccess {
		t.Errorf("expected code %d, got %d", CodeSuccess, resp.Code)
	}
	if resp.Msg != "success" {
		t.Errorf("unexpected msg %q", resp.Msg)
	}
}

func TestWriteForbiddenDefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteForbidden(rec, "")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != CodeForbidden {
		t.Errorf("expected code %d, got %d", CodeForbidden, resp.Code)
	}
	if resp.Msg != "permission denied" {
		t.Errorf("unexpected msg %q", resp.Msg)
	}
}

func TestWritePage(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePage(rec, 2, 10, 35, []string{"a", "b"})

	var resp struct {
		Code int  `json:"code"`
		Data Page `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Data.Page != 2 || resp.Data.Limit != 10 || resp.Data.Total != 35 {
		t.Errorf("unexpected page metadata: %+v", resp.Data)
	}
}

func TestParseJSONUnknownField(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","bogus":1}`))
	var dst struct {
		Name string `json:"name"`
	}
	if err := ParseJSON(r, &dst); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestPaginationBounds(t *testing.T) {
	r := httptest.NewRequest("GET", "/?page=-3&limit=5000", nil)
	page, limit := Pagination(r)
	if page != 1 {
		t.Errorf("expected page clamped to 1, got %d", page)
	}
	if limit != 1000 {
		t.Errorf("expected limit clamped to 1000, got %d", limit)
	}
}

func TestClientIPForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "10.1.2.3, 172.16.0.1")
	if ip := ClientIP(r); ip != "10.1.2.3" {
		t.Errorf("expected first forwarded address, got %q", ip)
	}
}
