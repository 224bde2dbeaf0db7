// Package orgquery resolves mixed member selections (departments, users)
// into a flat user list.
package orgquery

import (
	"context"
	"fmt"
	"sort"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/orgtree"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// SourceKind identifies where a selection's IDs come from. The set is
// closed: unrecognized kinds are an error, not a fallback.
type SourceKind string

const (
	KindDepartment SourceKind = "department"
	KindUser       SourceKind = "user"
)

// Valid reports whether k is a recognized source kind.
func (k SourceKind) Valid() bool {
	return k == KindDepartment || k == KindUser
}

// Selection is one group of member IDs from a single source.
type Selection struct {
	Kind SourceKind `json:"kind"`
	IDs  []int64    `json:"ids"`
}

// Resolver expands selections into users. Department selections include
// every sub-department.
type Resolver struct {
	users  *store.UserStore
	trees  *orgtree.Loader
	logger *observability.Logger
}

// NewResolver creates a resolver.
func NewResolver(users *store.UserStore, trees *orgtree.Loader, logger *observability.Logger) *Resolver {
	return &Resolver{users: users, trees: trees, logger: logger}
}

// Resolve expands the selections into a de-duplicated user list ordered by
// id. An unrecognized source kind fails the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, selections []Selection) ([]*store.User, error) {
	deptIDs := make(map[int64]bool)
	userIDs := make(map[int64]bool)

	var tree *orgtree.Tree
	for _, sel := range selections {
		switch sel.Kind {
		case KindDepartment:
			if tree == nil {
				snapshot, err := r.trees.Snapshot(ctx)
				if err != nil {
					return nil, fmt.Errorf("loading department tree: %w", err)
				}
				tree = snapshot
			}
			for _, id := range sel.IDs {
				descendants, _ := tree.Descendants(id)
				for _, d := range descendants {
					deptIDs[d] = true
				}
			}
		case KindUser:
			for _, id := range sel.IDs {
				userIDs[id] = true
			}
		default:
			return nil, fmt.Errorf("unknown member source %q", sel.Kind)
		}
	}

	seen := make(map[int64]bool)
	var users []*store.User

	if len(deptIDs) > 0 {
		byDept, err := r.users.ByDeptIDs(ctx, sortedIDs(deptIDs))
		if err != nil {
			return nil, fmt.Errorf("resolving department members: %w", err)
		}
		for _, u := range byDept {
			if !seen[u.ID] {
				seen[u.ID] = true
				users = append(users, u)
			}
		}
	}

	if len(userIDs) > 0 {
		direct, err := r.users.ByIDs(ctx, sortedIDs(userIDs))
		if err != nil {
			return nil, fmt.Errorf("resolving selected users: %w", err)
		}
		for _, u := range direct {
			if !seen[u.ID] {
				seen[u.ID] = true
				users = append(users, u)
			}
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
