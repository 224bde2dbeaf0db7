package gate

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/orgtree"
	"github.com/gatehouse-io/gatehouse/pkg/scope"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type fixture struct {
	users     *store.UserStore
	roles     *store.RoleStore
	menus     *store.MenuStore
	whitelist *store.WhitelistStore
	gate      *Gate
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if _, err := db.Exec(store.TestSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		users:     store.NewUserStore(db),
		roles:     store.NewRoleStore(db),
		menus:     store.NewMenuStore(db),
		whitelist: store.NewWhitelistStore(db),
	}
	depts := store.NewDepartmentStore(db)
	resolver := scope.NewResolver(f.roles, orgtree.NewLoader(depts, nil, nil), nil, nil)
	f.gate = NewGate(f.whitelist, f.users, f.roles, f.menus, resolver, nil, nil)
	return f
}

func (f *fixture) whitelistEntry(t *testing.T, url, method string, enableDatasource bool) {
	t.Helper()
	e := &store.WhitelistEntry{URL: url, Method: method, EnableDatasource: enableDatasource}
	if err := f.whitelist.Create(context.Background(), e); err != nil {
		t.Fatalf("seeding whitelist: %v", err)
	}
}

func (f *fixture) userWithButton(t *testing.T, api, method string) (*store.User, *auth.Identity) {
	t.Helper()
	m := &store.Menu{Name: "Users", Status: true}
	if err := f.menus.CreateMenu(context.Background(), m); err != nil {
		t.Fatalf("seeding menu: %v", err)
	}
	b := &store.MenuButton{MenuID: m.ID, Name: "op", Value: "user:op", API: api, Method: method}
	if err := f.menus.CreateButton(context.Background(), b); err != nil {
		t.Fatalf("seeding button: %v", err)
	}
	r := &store.Role{Name: "r", Key: "r", Status: true, DataRange: store.DataRangeSelf,
		PermissionIDs: []int64{b.ID}}
	if err := f.roles.Create(context.Background(), r); err != nil {
		t.Fatalf("seeding role: %v", err)
	}
	u := &store.User{Username: "worker", Password: "x", IsActive: true, RoleIDs: []int64{r.ID}}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u, &auth.Identity{UserID: u.ID, Username: u.Username}
}

func TestWhitelistAllowsAnonymous(t *testing.T) {
	f := setup(t)
	f.whitelistEntry(t, "/api/login/", "POST", true)

	d, err := f.gate.Authorize(context.Background(), "POST", "/api/login/", nil)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Reason != ReasonWhitelist {
		t.Errorf("expected whitelist allow, got %+v", d)
	}
	if d.ScopeExempt {
		t.Error("expected enable_datasource entry not scope-exempt")
	}
}

func TestWhitelistScopeExempt(t *testing.T) {
	f := setup(t)
	f.whitelistEntry(t, "/api/init/settings/", "GET", false)

	d, err := f.gate.Authorize(context.Background(), "GET", "/api/init/settings/", nil)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || !d.ScopeExempt {
		t.Errorf("expected scope-exempt whitelist allow, got %+v", d)
	}
}

func TestWhitelistMethodMismatch(t *testing.T) {
	f := setup(t)
	f.whitelistEntry(t, "/api/login/", "POST", true)

	d, err := f.gate.Authorize(context.Background(), "GET", "/api/login/", nil)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != ReasonUnauthenticated {
		t.Errorf("expected unauthenticated deny, got %+v", d)
	}
}

func TestAnonymousDenied(t *testing.T) {
	f := setup(t)
	d, err := f.gate.Authorize(context.Background(), "GET", "/api/system/user/", nil)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != ReasonUnauthenticated {
		t.Errorf("expected unauthenticated deny, got %+v", d)
	}
}

func TestSuperuserBypassesPermissions(t *testing.T) {
	f := setup(t)
	u := &store.User{Username: "root", Password: "x", IsActive: true, IsSuperuser: true}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding superuser: %v", err)
	}

	d, err := f.gate.Authorize(context.Background(), "DELETE", "/api/system/user/5/",
		&auth.Identity{UserID: u.ID, Username: u.Username, IsSuperuser: true})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Reason != ReasonSuperuser {
		t.Errorf("expected superuser allow, got %+v", d)
	}
}

func TestPermissionCodeMatch(t *testing.T) {
	f := setup(t)
	_, ident := f.userWithButton(t, "/api/system/user/{id}/", "PUT")

	d, err := f.gate.Authorize(context.Background(), "PUT", "/api/system/user/42/", ident)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Reason != ReasonPermission {
		t.Errorf("expected permission allow, got %+v", d)
	}

	// Same path, different method.
	d, err = f.gate.Authorize(context.Background(), "DELETE", "/api/system/user/42/", ident)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != ReasonForbidden {
		t.Errorf("expected forbidden deny, got %+v", d)
	}
}

func TestInactiveUserDenied(t *testing.T) {
	f := setup(t)
	u := &store.User{Username: "left", Password: "x", IsActive: false}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	d, err := f.gate.Authorize(context.Background(), "GET", "/api/system/user/",
		&auth.Identity{UserID: u.ID, Username: u.Username})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != ReasonInactive {
		t.Errorf("expected inactive deny, got %+v", d)
	}
}

func TestMiddlewareStatusCodes(t *testing.T) {
	f := setup(t)
	f.whitelistEntry(t, "/api/login/", "POST", true)
	_, ident := f.userWithButton(t, "/api/system/user/", "GET")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := f.gate.Middleware(next)

	// Anonymous on a protected path: 401.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/system/user/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	// Anonymous on a whitelisted path: allowed through.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/login/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for whitelisted path, got %d", rec.Code)
	}

	// Authenticated without the right permission: 403.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest("DELETE", "/api/system/user/1/", nil)
	r = r.WithContext(auth.NewContext(r.Context(), ident))
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}

	// Authenticated with the permission: scope attached.
	var spec *scope.Spec
	scoped := f.gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		spec = scope.FromContext(r.Context())
	}))
	rec = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api/system/user/", nil)
	r = r.WithContext(auth.NewContext(r.Context(), ident))
	scoped.ServeHTTP(rec, r)
	if spec == nil || !spec.Self {
		t.Errorf("expected self scope attached, got %+v", spec)
	}
}

func TestMatchPath(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"/api/system/user/", "/api/system/user/", true},
		{"/api/system/user/{id}/", "/api/system/user/7/", true},
		{"/api/system/user/{id}/", "/api/system/user/7/extra/", false},
		{"/api/system/user/{id}/", "/api/system/user//", false},
		{"/api/system/user/", "/api/system/users/", false},
		{"/api/{app}/{model}/", "/api/system/role/", true},
	}
	for _, c := range cases {
		if got := matchPath(c.pattern, c.path); got != c.want {
			t.Errorf("matchPath(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}
