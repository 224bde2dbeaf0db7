package audit

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type auditFixture struct {
	db       *sql.DB
	logins   *store.LoginLogStore
	ops      *store.OperationLogStore
	users    *store.UserStore
	recorder *Recorder
}

func newFixture(t *testing.T) *auditFixture {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(store.TestSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &auditFixture{
		db:     db,
		logins: store.NewLoginLogStore(db),
		ops:    store.NewOperationLogStore(db),
		users:  store.NewUserStore(db),
	}
	f.recorder = NewRecorder(f.logins, f.ops, nil, nil)
	return f
}

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		ua      string
		browser string
		os      string
	}{
		{chromeUA, "Chrome", "Windows"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Gecko/20100101 Firefox/121.0", "Firefox", "macOS"},
		{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0 Edg/120.0.0.0", "Edge", "Linux"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Safari/604.1", "Safari", "iOS"},
		{"curl/8.4.0", "", ""},
	}
	for _, tt := range tests {
		browser, os := ParseUserAgent(tt.ua)
		assert.Equal(t, tt.browser, browser, tt.ua)
		assert.Equal(t, tt.os, os, tt.ua)
	}
}

func TestRecordLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deptID := int64(7)
	user := &store.User{Username: "alice", Password: "x", DeptID: &deptID}
	require.NoError(t, f.users.Create(ctx, user))

	req := httptest.NewRequest(http.MethodPost, "/api/login/", nil)
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("X-Forwarded-For", "203.0.113.4")

	f.recorder.RecordLogin(ctx, req, "alice", user, true)
	f.recorder.RecordLogin(ctx, req, "mallory", nil, false)

	logs, total, err := f.logins.List(ctx, "", store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Newest first.
	assert.Equal(t, "mallory", logs[0].Username)
	assert.False(t, logs[0].Status)
	assert.Nil(t, logs[0].Creator)

	assert.Equal(t, "alice", logs[1].Username)
	assert.True(t, logs[1].Status)
	require.NotNil(t, logs[1].Creator)
	assert.Equal(t, user.ID, *logs[1].Creator)
	require.NotNil(t, logs[1].DeptBelongID)
	assert.Equal(t, deptID, *logs[1].DeptBelongID)
	assert.Equal(t, "203.0.113.4", logs[1].IP)
	assert.Equal(t, "Chrome", logs[1].Browser)

	byName, total, err := f.logins.List(ctx, "alice", store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "alice", byName[0].Username)
}

func TestMiddlewareRecordsMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := &store.User{Username: "alice", Password: "x"}
	require.NoError(t, f.users.Create(ctx, user))

	mw := NewMiddleware(f.recorder, f.users)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccessMsg(w, "created")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/system/user/", strings.NewReader(`{"username":"bob"}`))
	req.Header.Set("User-Agent", chromeUA)
	req = req.WithContext(auth.NewContext(req.Context(), &auth.Identity{UserID: user.ID, Username: "alice"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	logs, total, err := f.ops.List(ctx, "", store.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	entry := logs[0]
	assert.Equal(t, "system/user", entry.RequestModular)
	assert.Equal(t, "/api/system/user/", entry.RequestPath)
	assert.Equal(t, `{"username":"bob"}`, entry.RequestBody)
	assert.Equal(t, http.MethodPost, entry.RequestMethod)
	assert.Equal(t, "created", entry.RequestMsg)
	assert.Equal(t, http.StatusOK, entry.ResponseCode)
	assert.True(t, entry.Status)
	require.NotNil(t, entry.Creator)
	assert.Equal(t, user.ID, *entry.Creator)
	assert.Equal(t, "alice", entry.Modifier)
	assert.Equal(t, "Chrome", entry.RequestBrowser)
}

func TestMiddlewareSkipsReadsAndLogin(t *testing.T) {
	f := newFixture(t)
	mw := NewMiddleware(f.recorder, f.users)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, nil)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/system/user/", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/login/", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/token/refresh/", nil))

	_, total, err := f.ops.List(context.Background(), "", store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestMiddlewareMarksFailures(t *testing.T) {
	f := newFixture(t)
	mw := NewMiddleware(f.recorder, f.users)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteForbidden(w, "permission denied")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/system/role/3/", nil))

	logs, total, err := f.ops.List(context.Background(), "", store.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.False(t, logs[0].Status)
	assert.Equal(t, http.StatusForbidden, logs[0].ResponseCode)
	assert.Equal(t, "system/role", logs[0].RequestModular)
}

func TestPurgeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.logins.Create(ctx, &store.LoginLog{Username: "old"}))
	require.NoError(t, f.logins.Create(ctx, &store.LoginLog{Username: "recent"}))
	require.NoError(t, f.ops.Create(ctx, &store.OperationLog{RequestPath: "/api/old/"}))

	// Backdate the rows that should fall outside the retention window.
	stale := time.Now().Add(-72 * time.Hour)
	_, err := f.db.Exec("UPDATE login_logs SET create_datetime = $1 WHERE username = $2", stale, "old")
	require.NoError(t, err)
	_, err = f.db.Exec("UPDATE operation_logs SET create_datetime = $1", stale)
	require.NoError(t, err)

	purger, err := NewPurger(f.logins, f.ops, 1, nil)
	require.NoError(t, err)
	require.NoError(t, purger.PurgeOnce(ctx))

	logins, total, err := f.logins.List(ctx, "", store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "recent", logins[0].Username)

	_, opTotal, err := f.ops.List(ctx, "", store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, opTotal)
}

func TestNewPurgerRejectsNonPositiveRetention(t *testing.T) {
	f := newFixture(t)
	_, err := NewPurger(f.logins, f.ops, 0, nil)
	assert.Error(t, err)
}
