package menu

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type fixture struct {
	menus   *store.MenuStore
	roles   *store.RoleStore
	users   *store.UserStore
	service *Service
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
		menus: store.NewMenuStore(db),
		roles: store.NewRoleStore(db),
		users: store.NewUserStore(db),
	}
	f.service = NewService(f.menus, f.roles, nil, nil)
	return f
}

func (f *fixture) menu(t *testing.T, name string, parent *int64, sortOrder int) *store.Menu {
	t.Helper()
	m := &store.Menu{Name: name, ParentID: parent, Sort: sortOrder, Status: true, Visible: true}
	if err := f.menus.CreateMenu(context.Background(), m); err != nil {
		t.Fatalf("seeding menu: %v", err)
	}
	return m
}

func (f *fixture) button(t *testing.T, menuID int64, value, api, method string) *store.MenuButton {
	t.Helper()
	b := &store.MenuButton{MenuID: menuID, Name: value, Value: value, API: api, Method: method}
	if err := f.menus.CreateButton(context.Background(), b); err != nil {
		t.Fatalf("seeding button: %v", err)
	}
	return b
}

func (f *fixture) userWithRole(t *testing.T, menuIDs, buttonIDs []int64) *store.User {
	t.Helper()
	r := &store.Role{Name: "r", Key: "r", Status: true, DataRange: store.DataRangeSelf,
		MenuIDs: menuIDs, PermissionIDs: buttonIDs}
	if err := f.roles.Create(context.Background(), r); err != nil {
		t.Fatalf("seeding role: %v", err)
	}
	u := &store.User{Username: "u", Password: "x", IsActive: true, RoleIDs: []int64{r.ID}}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func TestAuthorizedTreeRestrictsToGrants(t *testing.T) {
	f := setup(t)
	root := f.menu(t, "Root", nil, 1)
	m1 := f.menu(t, "M1", &root.ID, 1)
	m2 := f.menu(t, "M2", &root.ID, 2)

	u := f.userWithRole(t, []int64{root.ID, m1.ID}, nil)

	tree, err := f.service.AuthorizedTree(context.Background(), u)
	if err != nil {
		t.Fatalf("AuthorizedTree failed: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != root.ID {
		t.Fatalf("expected single root, got %+v", tree)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].ID != m1.ID {
		t.Errorf("expected only granted child %d, got %+v", m1.ID, tree[0].Children)
	}
	_ = m2
}

func TestAuthorizedTreeOrphanGrantBecomesRoot(t *testing.T) {
	f := setup(t)
	root := f.menu(t, "Root", nil, 1)
	child := f.menu(t, "Child", &root.ID, 1)

	// Child granted without its parent.
	u := f.userWithRole(t, []int64{child.ID}, nil)

	tree, err := f.service.AuthorizedTree(context.Background(), u)
	if err != nil {
		t.Fatalf("AuthorizedTree failed: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != child.ID {
		t.Errorf("expected orphan grant to root its subtree, got %+v", tree)
	}
}

func TestAuthorizedTreeButtonFiltering(t *testing.T) {
	f := setup(t)
	m := f.menu(t, "Users", nil, 1)
	granted := f.button(t, m.ID, "user:query", "/api/system/user/", "GET")
	denied := f.button(t, m.ID, "user:delete", "/api/system/user/{id}/", "DELETE")

	u := f.userWithRole(t, []int64{m.ID}, []int64{granted.ID})

	tree, err := f.service.AuthorizedTree(context.Background(), u)
	if err != nil {
		t.Fatalf("AuthorizedTree failed: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Buttons) != 1 {
		t.Fatalf("expected one button, got %+v", tree)
	}
	if tree[0].Buttons[0].ID != granted.ID {
		t.Errorf("expected button %d, got %d (denied=%d)", granted.ID, tree[0].Buttons[0].ID, denied.ID)
	}
}

func TestAuthorizedTreeSuperuserSeesAll(t *testing.T) {
	f := setup(t)
	root := f.menu(t, "Root", nil, 1)
	f.menu(t, "M1", &root.ID, 1)
	f.button(t, root.ID, "root:query", "/api/root/", "GET")

	u := &store.User{Username: "su", Password: "x", IsActive: true, IsSuperuser: true}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding superuser: %v", err)
	}

	tree, err := f.service.AuthorizedTree(context.Background(), u)
	if err != nil {
		t.Fatalf("AuthorizedTree failed: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Children) != 1 || len(tree[0].Buttons) != 1 {
		t.Errorf("expected full tree for superuser, got %+v", tree)
	}
}

func TestAuthorizedTreeSortOrder(t *testing.T) {
	f := setup(t)
	b := f.menu(t, "B", nil, 2)
	a := f.menu(t, "A", nil, 1)
	u := f.userWithRole(t, []int64{a.ID, b.ID}, nil)

	tree, err := f.service.AuthorizedTree(context.Background(), u)
	if err != nil {
		t.Fatalf("AuthorizedTree failed: %v", err)
	}
	if len(tree) != 2 || tree[0].ID != a.ID || tree[1].ID != b.ID {
		t.Errorf("expected ascending sort order, got %+v", tree)
	}
}

func TestPermissionCodes(t *testing.T) {
	f := setup(t)
	m := f.menu(t, "Users", nil, 1)
	b1 := f.button(t, m.ID, "user:query", "/api/system/user/", "GET")
	f.button(t, m.ID, "user:create", "/api/system/user/", "POST")

	u := f.userWithRole(t, []int64{m.ID}, []int64{b1.ID})

	codes, err := f.service.PermissionCodes(context.Background(), u)
	if err != nil {
		t.Fatalf("PermissionCodes failed: %v", err)
	}
	if len(codes) != 1 || codes[0] != "user:query" {
		t.Errorf("expected [user:query], got %v", codes)
	}
}

func TestPermissionCodesSuperuser(t *testing.T) {
	f := setup(t)
	m := f.menu(t, "Users", nil, 1)
	f.button(t, m.ID, "user:query", "/api/system/user/", "GET")
	f.button(t, m.ID, "user:create", "/api/system/user/", "POST")

	u := &store.User{Username: "su", Password: "x", IsActive: true, IsSuperuser: true}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding superuser: %v", err)
	}

	codes, err := f.service.PermissionCodes(context.Background(), u)
	if err != nil {
		t.Fatalf("PermissionCodes failed: %v", err)
	}
	if len(codes) != 2 {
		t.Errorf("expected all codes for superuser, got %v", codes)
	}
}
