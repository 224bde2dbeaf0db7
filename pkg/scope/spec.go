package scope

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gatehouse-io/gatehouse/pkg/contextkeys"
)

// Spec is a resolved data scope for one user. The zero value denies
// everything except the user's own rows once UserID is set.
type Spec struct {
	UserID int64

	// All disables row filtering entirely.
	All bool

	// Self grants rows the user created. Combined with DeptIDs it widens
	// the result (OR), never narrows it.
	Self bool

	// DeptIDs grants rows attributed to these departments. Sorted,
	// de-duplicated.
	DeptIDs []int64
}

// Kind labels a Spec for logging and metrics.
func (s *Spec) Kind() string {
	switch {
	case s.All:
		return "all"
	case len(s.DeptIDs) > 0 && s.Self:
		return "dept_set_self"
	case len(s.DeptIDs) > 0:
		return "dept_set"
	default:
		return "self"
	}
}

// Render implements store.RowFilter. It produces a predicate over the
// attribution columns starting at placeholder $argIndex. The empty-set
// fall-back to creator-only rows lives here so no caller can bypass it.
func (s *Spec) Render(argIndex int) (string, []interface{}) {
	if s.All {
		return "", nil
	}
	if len(s.DeptIDs) == 0 {
		return fmt.Sprintf("creator = $%d", argIndex), []interface{}{s.UserID}
	}

	parts := make([]string, len(s.DeptIDs))
	args := make([]interface{}, 0, len(s.DeptIDs)+1)
	for i, id := range s.DeptIDs {
		parts[i] = fmt.Sprintf("$%d", argIndex+i)
		args = append(args, id)
	}
	in := fmt.Sprintf("dept_belong_id IN (%s)", strings.Join(parts, ", "))
	if !s.Self {
		return in, args
	}
	args = append(args, s.UserID)
	return fmt.Sprintf("(%s OR creator = $%d)", in, argIndex+len(s.DeptIDs)), args
}

// Allows reports whether a row with the given attribution is visible under
// the spec. Used for single-object permission checks outside SQL.
func (s *Spec) Allows(creator, deptBelongID *int64) bool {
	if s.All {
		return true
	}
	if len(s.DeptIDs) > 0 && deptBelongID != nil {
		i := sort.Search(len(s.DeptIDs), func(i int) bool { return s.DeptIDs[i] >= *deptBelongID })
		if i < len(s.DeptIDs) && s.DeptIDs[i] == *deptBelongID {
			return true
		}
	}
	if s.Self || len(s.DeptIDs) == 0 {
		return creator != nil && *creator == s.UserID
	}
	return false
}

// Unrestricted returns an all-access spec for the given user.
func Unrestricted(userID int64) *Spec {
	return &Spec{UserID: userID, All: true}
}

// SelfOnly returns the fail-safe creator-only spec.
func SelfOnly(userID int64) *Spec {
	return &Spec{UserID: userID, Self: true}
}

// FromContext returns the Spec stored by the gate middleware, or nil when
// the request is scope-exempt.
func FromContext(ctx context.Context) *Spec {
	if spec, ok := ctx.Value(contextkeys.ScopeKey).(*Spec); ok {
		return spec
	}
	return nil
}

// NewContext stores the spec for downstream handlers.
func NewContext(ctx context.Context, spec *Spec) context.Context {
	return contextkeys.WithScope(ctx, spec)
}
