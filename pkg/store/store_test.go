package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if _, err := db.Exec(TestSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDepartmentCRUD(t *testing.T) {
	db := setupTestDB(t)
	s := NewDepartmentStore(db)
	ctx := context.Background()

	dept := &Department{Name: "Engineering", Key: "eng", Sort: 1, Status: true}
	if err := s.Create(ctx, dept); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if dept.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	if dept.DeptBelongID == nil || *dept.DeptBelongID != dept.ID {
		t.Errorf("expected department attributed to itself, got %v", dept.DeptBelongID)
	}

	child := &Department{Name: "Platform", Sort: 2, Status: true, ParentID: &dept.ID}
	if err := s.Create(ctx, child); err != nil {
		t.Fatalf("Create child failed: %v", err)
	}

	got, err := s.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ParentID == nil || *got.ParentID != dept.ID {
		t.Errorf("expected parent %d, got %v", dept.ID, got.ParentID)
	}

	got.Name = "Platform Team"
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	hasChildren, err := s.HasChildren(ctx, dept.ID)
	if err != nil {
		t.Fatalf("HasChildren failed: %v", err)
	}
	if !hasChildren {
		t.Error("expected parent to have children")
	}
}

func TestDepartmentSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	s := NewDepartmentStore(db)
	ctx := context.Background()

	dept := &Department{Name: "Temp", Status: true}
	if err := s.Create(ctx, dept); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Delete(ctx, dept.ID, false); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := s.Get(ctx, dept.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after soft delete, got %v", err)
	}

	depts, total, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 0 || len(depts) != 0 {
		t.Errorf("expected soft-deleted row excluded from list, got %d rows", total)
	}

	// Administrative listing still sees the row.
	_, total, err = s.List(ctx, ListOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("List with deleted failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 row including deleted, got %d", total)
	}

	// Deleting again reports not found.
	if err := s.Delete(ctx, dept.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestUserRolesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	roles := NewRoleStore(db)
	ctx := context.Background()

	role := &Role{Name: "Viewer", Key: "viewer", Status: true, DataRange: DataRangeSelf}
	if err := roles.Create(ctx, role); err != nil {
		t.Fatalf("Create role failed: %v", err)
	}

	deptID := seedDept(t, db, "Ops", nil)
	u := &User{
		Username: "alice",
		Password: "$2a$10$hash",
		Name:     "Alice",
		IsActive: true,
		DeptID:   &deptID,
		RoleIDs:  []int64{role.ID},
	}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create user failed: %v", err)
	}
	if u.DeptBelongID == nil || *u.DeptBelongID != deptID {
		t.Errorf("expected dept_belong_id defaulted to dept, got %v", u.DeptBelongID)
	}

	got, err := users.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if len(got.RoleIDs) != 1 || got.RoleIDs[0] != role.ID {
		t.Errorf("expected role %d loaded, got %v", role.ID, got.RoleIDs)
	}

	got.RoleIDs = nil
	got.Name = "Alice B"
	if err := users.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err = users.Get(ctx, got.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.RoleIDs) != 0 {
		t.Errorf("expected roles cleared, got %v", got.RoleIDs)
	}
}

func TestRoleGrantSetsAndForUser(t *testing.T) {
	db := setupTestDB(t)
	roles := NewRoleStore(db)
	users := NewUserStore(db)
	menus := NewMenuStore(db)
	ctx := context.Background()

	menu := &Menu{Name: "System", Status: true}
	if err := menus.CreateMenu(ctx, menu); err != nil {
		t.Fatalf("CreateMenu failed: %v", err)
	}
	button := &MenuButton{MenuID: menu.ID, Name: "Query", Value: "system:query", API: "/api/system/", Method: "GET"}
	if err := menus.CreateButton(ctx, button); err != nil {
		t.Fatalf("CreateButton failed: %v", err)
	}
	deptID := seedDept(t, db, "Sales", nil)

	role := &Role{
		Name: "Manager", Key: "manager", Status: true, DataRange: DataRangeCustom,
		MenuIDs:       []int64{menu.ID},
		PermissionIDs: []int64{button.ID},
		DeptIDs:       []int64{deptID},
	}
	if err := roles.Create(ctx, role); err != nil {
		t.Fatalf("Create role failed: %v", err)
	}

	disabled := &Role{Name: "Old", Key: "old", Status: false, DataRange: DataRangeAll}
	if err := roles.Create(ctx, disabled); err != nil {
		t.Fatalf("Create disabled role failed: %v", err)
	}

	u := &User{Username: "bob", Password: "x", IsActive: true, RoleIDs: []int64{role.ID, disabled.ID}}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	active, err := roles.ForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ForUser failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected only enabled roles, got %d", len(active))
	}
	if len(active[0].DeptIDs) != 1 || active[0].DeptIDs[0] != deptID {
		t.Errorf("expected custom dept set loaded, got %v", active[0].DeptIDs)
	}
	if len(active[0].PermissionIDs) != 1 || active[0].PermissionIDs[0] != button.ID {
		t.Errorf("expected permission set loaded, got %v", active[0].PermissionIDs)
	}
}

func TestRoleRejectsInvalidDataRange(t *testing.T) {
	db := setupTestDB(t)
	roles := NewRoleStore(db)

	role := &Role{Name: "Broken", Key: "broken", Status: true, DataRange: DataRange(9)}
	if err := roles.Create(context.Background(), role); err == nil {
		t.Error("expected error for invalid data range")
	}
}

// creatorFilter restricts rows to a single creator, standing in for a
// resolved data scope.
type creatorFilter struct {
	userID int64
}

func (f creatorFilter) Render(argIndex int) (string, []interface{}) {
	return fmt.Sprintf("creator = $%d", argIndex), []interface{}{f.userID}
}

func TestUserListScopeFilter(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	creator := int64(101)
	other := int64(102)
	for i, c := range []int64{creator, creator, other} {
		u := &User{Username: fmt.Sprintf("user%d", i), Password: "x", IsActive: true}
		u.Creator = &c
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, total, err := users.List(ctx, "", ListOptions{Scope: creatorFilter{userID: creator}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("expected 2 scoped rows, got total=%d len=%d", total, len(got))
	}
	for _, u := range got {
		if u.Creator == nil || *u.Creator != creator {
			t.Errorf("row %d leaked through scope filter", u.ID)
		}
	}
}

func TestUserListPagination(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserStore(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		u := &User{Username: fmt.Sprintf("u%d", i), Password: "x", IsActive: true}
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, total, err := users.List(ctx, "", ListOptions{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 rows on page 2, got %d", len(got))
	}
	if len(got) > 0 && got[0].Username != "u2" {
		t.Errorf("expected page 2 to start at u2, got %s", got[0].Username)
	}
}

func TestWhitelistAll(t *testing.T) {
	db := setupTestDB(t)
	s := NewWhitelistStore(db)
	ctx := context.Background()

	entries := []*WhitelistEntry{
		{URL: "/api/login/", Method: "POST", EnableDatasource: true},
		{URL: "/api/captcha/", Method: "GET", EnableDatasource: false},
	}
	for _, e := range entries {
		if err := s.Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := s.Delete(ctx, entries[1].ID, false); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 1 || all[0].URL != "/api/login/" {
		t.Errorf("expected only live entries, got %+v", all)
	}
}

func TestDictionaryHardDeleteRemovesChildren(t *testing.T) {
	db := setupTestDB(t)
	s := NewDictionaryStore(db)
	ctx := context.Background()

	group := &Dictionary{Label: "Gender", Value: "gender", Status: true}
	if err := s.Create(ctx, group); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	entry := &Dictionary{Label: "Male", Value: "1", ParentID: &group.ID, Status: true}
	if err := s.Create(ctx, entry); err != nil {
		t.Fatalf("Create entry failed: %v", err)
	}

	if err := s.Delete(ctx, group.ID, true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, entry.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected child removed with parent, got %v", err)
	}
}

func TestSystemConfigRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	s := NewSystemConfigStore(db)
	ctx := context.Background()

	parent := &SystemConfig{Title: "Site", Key: "site", Status: true}
	if err := s.Create(ctx, parent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	child := &SystemConfig{ParentID: &parent.ID, Title: "Name", Key: "site_name", Value: `"Gatehouse"`, Status: true}
	if err := s.Create(ctx, child); err != nil {
		t.Fatalf("Create child failed: %v", err)
	}

	child.Value = `"Gatehouse Admin"`
	if err := s.Update(ctx, child); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := s.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Value != `"Gatehouse Admin"` {
		t.Errorf("unexpected value %q", got.Value)
	}
}

func seedDept(t *testing.T, db *sql.DB, name string, parentID *int64) int64 {
	t.Helper()
	s := NewDepartmentStore(db)
	d := &Department{Name: name, Status: true, ParentID: parentID}
	if err := s.Create(context.Background(), d); err != nil {
		t.Fatalf("seeding department %s: %v", name, err)
	}
	return d.ID
}
