package scope

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gatehouse-io/gatehouse/pkg/orgtree"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type fixture struct {
	db       *sql.DB
	users    *store.UserStore
	roles    *store.RoleStore
	depts    *store.DepartmentStore
	resolver *Resolver
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
		db:    db,
		users: store.NewUserStore(db),
		roles: store.NewRoleStore(db),
		depts: store.NewDepartmentStore(db),
	}
	f.resolver = NewResolver(f.roles, orgtree.NewLoader(f.depts, nil, nil), nil, nil)
	return f
}

func (f *fixture) dept(t *testing.T, name string, parent *int64) int64 {
	t.Helper()
	d := &store.Department{Name: name, Status: true, ParentID: parent}
	if err := f.depts.Create(context.Background(), d); err != nil {
		t.Fatalf("seeding department: %v", err)
	}
	return d.ID
}

func (f *fixture) role(t *testing.T, key string, dr store.DataRange, admin bool, deptIDs ...int64) int64 {
	t.Helper()
	r := &store.Role{Name: key, Key: key, Status: true, Admin: admin, DataRange: dr, DeptIDs: deptIDs}
	if err := f.roles.Create(context.Background(), r); err != nil {
		t.Fatalf("seeding role: %v", err)
	}
	return r.ID
}

func (f *fixture) user(t *testing.T, username string, deptID *int64, superuser bool, roleIDs ...int64) *store.User {
	t.Helper()
	u := &store.User{Username: username, Password: "x", IsActive: true, IsSuperuser: superuser, DeptID: deptID, RoleIDs: roleIDs}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func TestResolveSuperuser(t *testing.T) {
	f := setup(t)
	u := f.user(t, "root", nil, true)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !spec.All {
		t.Error("expected unrestricted scope for superuser")
	}
}

func TestResolveNoRolesFailsSafe(t *testing.T) {
	f := setup(t)
	u := f.user(t, "norole", nil, false)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if spec.All || !spec.Self || len(spec.DeptIDs) != 0 {
		t.Errorf("expected self-only scope, got %+v", spec)
	}
}

func TestResolveAdminRoleShortCircuits(t *testing.T) {
	f := setup(t)
	deptID := f.dept(t, "Ops", nil)
	admin := f.role(t, "admin", store.DataRangeSelf, true)
	narrow := f.role(t, "narrow", store.DataRangeDept, false)
	u := f.user(t, "boss", &deptID, false, admin, narrow)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !spec.All {
		t.Error("expected admin role to grant unrestricted scope")
	}
}

func TestResolveDeptAndBelow(t *testing.T) {
	f := setup(t)
	root := f.dept(t, "HQ", nil)
	child := f.dept(t, "East", &root)
	grandchild := f.dept(t, "East-1", &child)
	sibling := f.dept(t, "West", &root)

	roleID := f.role(t, "regional", store.DataRangeDeptAndBelow, false)
	u := f.user(t, "lead", &child, false, roleID)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := map[int64]bool{child: true, grandchild: true}
	if len(spec.DeptIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, spec.DeptIDs)
	}
	for _, id := range spec.DeptIDs {
		if !want[id] {
			t.Errorf("unexpected dept %d in scope (sibling=%d)", id, sibling)
		}
	}
}

func TestResolveUnionAcrossRoles(t *testing.T) {
	f := setup(t)
	deptA := f.dept(t, "A", nil)
	deptB := f.dept(t, "B", nil)

	selfRole := f.role(t, "selfish", store.DataRangeSelf, false)
	customRole := f.role(t, "custom", store.DataRangeCustom, false, deptB)
	deptRole := f.role(t, "own-dept", store.DataRangeDept, false)
	u := f.user(t, "multi", &deptA, false, selfRole, customRole, deptRole)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !spec.Self {
		t.Error("expected self grant preserved in union")
	}
	if len(spec.DeptIDs) != 2 || spec.DeptIDs[0] != deptA || spec.DeptIDs[1] != deptB {
		t.Errorf("expected dept set [%d %d], got %v", deptA, deptB, spec.DeptIDs)
	}
	if spec.Kind() != "dept_set_self" {
		t.Errorf("unexpected kind %q", spec.Kind())
	}
}

func TestResolveDeptlessUserFallsBackToSelf(t *testing.T) {
	f := setup(t)
	roleID := f.role(t, "dept-scope", store.DataRangeDeptAndBelow, false)
	u := f.user(t, "floating", nil, false, roleID)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if spec.All || !spec.Self || len(spec.DeptIDs) != 0 {
		t.Errorf("expected self fallback for dept-less user, got %+v", spec)
	}
}

func TestResolveDanglingCustomDeptSkipped(t *testing.T) {
	f := setup(t)
	live := f.dept(t, "Live", nil)
	dead := f.dept(t, "Dead", nil)
	roleID := f.role(t, "mixed", store.DataRangeCustom, false, live, dead)
	if err := f.depts.Delete(context.Background(), dead, false); err != nil {
		t.Fatalf("deleting department: %v", err)
	}
	u := f.user(t, "viewer", nil, false, roleID)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(spec.DeptIDs) != 1 || spec.DeptIDs[0] != live {
		t.Errorf("expected only live dept %d, got %v", live, spec.DeptIDs)
	}
}

func TestResolveAllDanglingCustomFailsSafe(t *testing.T) {
	f := setup(t)
	dead := f.dept(t, "Gone", nil)
	roleID := f.role(t, "ghost", store.DataRangeCustom, false, dead)
	if err := f.depts.Delete(context.Background(), dead, false); err != nil {
		t.Fatalf("deleting department: %v", err)
	}
	u := f.user(t, "ghost-user", nil, false, roleID)

	spec, err := f.resolver.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !spec.Self || len(spec.DeptIDs) != 0 {
		t.Errorf("expected self fallback when every custom dept dangles, got %+v", spec)
	}
}

func TestRenderAll(t *testing.T) {
	spec := Unrestricted(7)
	expr, args := spec.Render(1)
	if expr != "" || len(args) != 0 {
		t.Errorf("expected empty predicate, got %q %v", expr, args)
	}
}

func TestRenderSelfOnly(t *testing.T) {
	spec := SelfOnly(7)
	expr, args := spec.Render(3)
	if expr != "creator = $3" {
		t.Errorf("unexpected predicate %q", expr)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Errorf("unexpected args %v", args)
	}
}

func TestRenderDeptSet(t *testing.T) {
	spec := &Spec{UserID: 7, DeptIDs: []int64{2, 5}}
	expr, args := spec.Render(1)
	if expr != "dept_belong_id IN ($1, $2)" {
		t.Errorf("unexpected predicate %q", expr)
	}
	if len(args) != 2 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestRenderDeptSetWithSelf(t *testing.T) {
	spec := &Spec{UserID: 7, Self: true, DeptIDs: []int64{2, 5}}
	expr, args := spec.Render(4)
	want := "(dept_belong_id IN ($4, $5) OR creator = $6)"
	if expr != want {
		t.Errorf("expected %q, got %q", want, expr)
	}
	if len(args) != 3 || args[2] != int64(7) {
		t.Errorf("unexpected args %v", args)
	}
}

func TestAllows(t *testing.T) {
	me := int64(7)
	other := int64(8)
	dept := int64(2)
	outside := int64(9)

	spec := &Spec{UserID: me, Self: true, DeptIDs: []int64{dept}}
	if !spec.Allows(&other, &dept) {
		t.Error("expected dept row visible")
	}
	if !spec.Allows(&me, nil) {
		t.Error("expected own row visible")
	}
	if spec.Allows(&other, &outside) {
		t.Error("expected foreign row hidden")
	}
	if spec.Allows(nil, nil) {
		t.Error("expected unattributed row hidden")
	}
	if !Unrestricted(me).Allows(nil, nil) {
		t.Error("expected unrestricted scope to allow anything")
	}
}
