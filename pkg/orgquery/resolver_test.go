package orgquery

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gatehouse-io/gatehouse/pkg/orgtree"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type fixture struct {
	depts    *store.DepartmentStore
	users    *store.UserStore
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
		depts: store.NewDepartmentStore(db),
		users: store.NewUserStore(db),
	}
	f.resolver = NewResolver(f.users, orgtree.NewLoader(f.depts, nil, nil), nil)
	return f
}

func (f *fixture) dept(t *testing.T, name string, parentID *int64) *store.Department {
	t.Helper()
	d := &store.Department{Name: name, Status: true, Sort: 1}
	d.ParentID = parentID
	if err := f.depts.Create(context.Background(), d); err != nil {
		t.Fatalf("seeding department %s: %v", name, err)
	}
	return d
}

func (f *fixture) user(t *testing.T, username string, deptID *int64) *store.User {
	t.Helper()
	u := &store.User{Username: username, Password: "x", IsActive: true, DeptID: deptID}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}

func TestResolveDepartmentIncludesDescendants(t *testing.T) {
	f := setup(t)
	root := f.dept(t, "company", nil)
	child := f.dept(t, "engineering", &root.ID)
	sibling := f.dept(t, "sales", &root.ID)

	f.user(t, "alice", &child.ID)
	f.user(t, "bob", &sibling.ID)
	f.user(t, "carol", &root.ID)

	users, err := f.resolver.Resolve(context.Background(), []Selection{
		{Kind: KindDepartment, IDs: []int64{child.ID}},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("expected only alice, got %+v", usernames(users))
	}

	// Selecting the root folds in every descendant's members.
	users, err = f.resolver.Resolve(context.Background(), []Selection{
		{Kind: KindDepartment, IDs: []int64{root.ID}},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("expected 3 users, got %v", usernames(users))
	}
}

func TestResolveDeduplicatesAcrossSelections(t *testing.T) {
	f := setup(t)
	dept := f.dept(t, "engineering", nil)
	alice := f.user(t, "alice", &dept.ID)
	dave := f.user(t, "dave", nil)

	users, err := f.resolver.Resolve(context.Background(), []Selection{
		{Kind: KindDepartment, IDs: []int64{dept.ID}},
		{Kind: KindUser, IDs: []int64{alice.ID, dave.ID}},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %v", usernames(users))
	}
	if users[0].ID != alice.ID || users[1].ID != dave.ID {
		t.Errorf("expected ascending id order, got %v", usernames(users))
	}
}

func TestResolveUnknownKindFails(t *testing.T) {
	f := setup(t)
	_, err := f.resolver.Resolve(context.Background(), []Selection{
		{Kind: SourceKind("tag"), IDs: []int64{1}},
	})
	if err == nil {
		t.Fatal("expected error for unknown source kind")
	}
}

func TestResolveEmptySelections(t *testing.T) {
	f := setup(t)
	users, err := f.resolver.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected no users, got %v", usernames(users))
	}
}

func usernames(users []*store.User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}
