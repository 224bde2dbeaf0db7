package scope

import (
	"context"
	"fmt"
	"sort"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/orgtree"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Resolver turns a user's enabled roles into a Spec.
type Resolver struct {
	roles   *store.RoleStore
	trees   *orgtree.Loader
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver creates a Resolver.
func NewResolver(roles *store.RoleStore, trees *orgtree.Loader, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{roles: roles, trees: trees, logger: logger, metrics: metrics}
}

// Resolve computes the union scope for a user.
//
// Superusers and admin roles see everything. Otherwise each role
// contributes by its data range: self rows, the user's own department, the
// department subtree, or the role's custom department set. Department
// breadths for a user without a department fall back to self, as does a
// user with no roles at all. Custom grants pointing at departments that no
// longer exist (or are disabled) are skipped.
func (r *Resolver) Resolve(ctx context.Context, user *store.User) (*Spec, error) {
	spec, err := r.resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.ScopeResolutionsTotal.WithLabelValues(spec.Kind()).Inc()
	}
	return spec, nil
}

func (r *Resolver) resolve(ctx context.Context, user *store.User) (*Spec, error) {
	if user.IsSuperuser {
		return Unrestricted(user.ID), nil
	}

	roles, err := r.roles.ForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading roles for scope resolution: %w", err)
	}
	if len(roles) == 0 {
		return SelfOnly(user.ID), nil
	}

	// Admin roles and ALL grants short-circuit; no need to expand trees.
	for _, role := range roles {
		if role.Admin || role.DataRange == store.DataRangeAll {
			return Unrestricted(user.ID), nil
		}
	}

	var tree *orgtree.Tree
	loadTree := func() (*orgtree.Tree, error) {
		if tree == nil {
			snapshot, err := r.trees.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			tree = snapshot
		}
		return tree, nil
	}

	spec := &Spec{UserID: user.ID}
	deptSet := make(map[int64]bool)

	for _, role := range roles {
		switch role.DataRange {
		case store.DataRangeSelf:
			spec.Self = true

		case store.DataRangeDept:
			if user.DeptID == nil {
				spec.Self = true
				continue
			}
			deptSet[*user.DeptID] = true

		case store.DataRangeDeptAndBelow:
			if user.DeptID == nil {
				spec.Self = true
				continue
			}
			t, err := loadTree()
			if err != nil {
				return nil, err
			}
			ids, _ := t.Descendants(*user.DeptID)
			for _, id := range ids {
				deptSet[id] = true
			}

		case store.DataRangeCustom:
			t, err := loadTree()
			if err != nil {
				return nil, err
			}
			for _, id := range role.DeptIDs {
				if t.Get(id) == nil {
					if r.logger != nil {
						r.logger.WithFields(map[string]interface{}{
							"role_id": role.ID,
							"dept_id": id,
						}).Warn("custom scope references a missing department, skipping")
					}
					continue
				}
				deptSet[id] = true
			}

		default:
			// Unknown breadth never widens access.
			if r.logger != nil {
				r.logger.WithFields(map[string]interface{}{
					"role_id":    role.ID,
					"data_range": int(role.DataRange),
				}).Warn("unknown data range, treating as self")
			}
			spec.Self = true
		}
	}

	if len(deptSet) == 0 {
		// Nothing but self grants (or all department grants collapsed).
		return SelfOnly(user.ID), nil
	}

	spec.DeptIDs = make([]int64, 0, len(deptSet))
	for id := range deptSet {
		spec.DeptIDs = append(spec.DeptIDs, id)
	}
	sort.Slice(spec.DeptIDs, func(i, j int) bool { return spec.DeptIDs[i] < spec.DeptIDs[j] })
	return spec, nil
}
