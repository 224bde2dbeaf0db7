package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testManager() *TokenManager {
	return NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour, 24*time.Hour)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := testManager()
	ident := &Identity{UserID: 7, Username: "alice", IsSuperuser: true}

	pair, err := tm.IssuePair(ident)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	got, err := tm.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if got.UserID != 7 || got.Username != "alice" || !got.IsSuperuser {
		t.Errorf("unexpected identity %+v", got)
	}
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	tm := testManager()
	pair, err := tm.IssuePair(&Identity{UserID: 1, Username: "u"})
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if _, err := tm.ValidateAccess(pair.RefreshToken); !errors.Is(err, ErrWrongUse) {
		t.Errorf("expected ErrWrongUse, got %v", err)
	}
	if _, err := tm.ValidateRefresh(pair.AccessToken); !errors.Is(err, ErrWrongUse) {
		t.Errorf("expected ErrWrongUse for access-as-refresh, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	tm := NewTokenManager("0123456789abcdef0123456789abcdef", -time.Minute, time.Hour)
	pair, err := tm.IssuePair(&Identity{UserID: 1, Username: "u"})
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if _, err := tm.ValidateAccess(pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	tm := testManager()
	other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour, time.Hour)
	pair, err := tm.IssuePair(&Identity{UserID: 1, Username: "u"})
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if _, err := other.ValidateAccess(pair.AccessToken); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := CheckPassword(hash, "s3cret"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestMiddlewareBearerToken(t *testing.T) {
	tm := testManager()
	pair, err := tm.IssuePair(&Identity{UserID: 7, Username: "alice"})
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	var got *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})
	handler := NewMiddleware(tm, nil).Handler(next)

	r := httptest.NewRequest("GET", "/api/system/user/", nil)
	r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil || got.UserID != 7 {
		t.Errorf("expected identity attached, got %+v", got)
	}
}

func TestMiddlewareAnonymousPassesThrough(t *testing.T) {
	called := false
	var got *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got = FromContext(r.Context())
	})
	handler := NewMiddleware(testManager(), nil).Handler(next)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/login/", nil))

	if !called {
		t.Fatal("expected handler to run for anonymous request")
	}
	if got != nil {
		t.Errorf("expected no identity, got %+v", got)
	}
}

func TestMiddlewareQueryTokenOnlyOnExport(t *testing.T) {
	tm := testManager()
	pair, err := tm.IssuePair(&Identity{UserID: 7, Username: "alice"})
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	var got *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})
	handler := NewMiddleware(tm, nil).Handler(next)

	r := httptest.NewRequest("GET", "/api/system/user/export/?access_token="+pair.AccessToken, nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	if got == nil || got.UserID != 7 {
		t.Errorf("expected query token accepted on export path, got %+v", got)
	}

	got = nil
	r = httptest.NewRequest("GET", "/api/system/user/?access_token="+pair.AccessToken, nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	if got != nil {
		t.Errorf("expected query token ignored off export paths, got %+v", got)
	}
}
