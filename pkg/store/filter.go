package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// RowFilter renders a data-scope predicate over the attribution columns
// (creator, dept_belong_id). Render receives the index of the next free
// placeholder and returns the SQL fragment plus its arguments. An empty
// fragment means no restriction.
type RowFilter interface {
	Render(argIndex int) (string, []interface{})
}

// ListOptions control common list query behavior.
type ListOptions struct {
	Page  int
	Limit int // 0 disables paging

	// IncludeDeleted is set by store callers for administrative queries,
	// never from request input.
	IncludeDeleted bool

	// Scope restricts rows to the caller's data scope; nil means no
	// restriction (internal callers only).
	Scope RowFilter
}

// buildWhere assembles the soft-delete predicate, caller conditions and the
// scope filter into a WHERE clause. conds use placeholders starting at $1;
// their args are passed in order.
func buildWhere(opts ListOptions, conds []string, args []interface{}) (string, []interface{}) {
	where := make([]string, 0, len(conds)+2)
	if !opts.IncludeDeleted {
		where = append(where, "is_deleted = FALSE")
	}
	where = append(where, conds...)
	if opts.Scope != nil {
		expr, scopeArgs := opts.Scope.Render(len(args) + 1)
		if expr != "" {
			where = append(where, expr)
			args = append(args, scopeArgs...)
		}
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// pageClause appends LIMIT/OFFSET for paged queries.
func pageClause(opts ListOptions, argIndex int) (string, []interface{}) {
	if opts.Limit <= 0 {
		return "", nil
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1),
		[]interface{}{opts.Limit, (page - 1) * opts.Limit}
}

// placeholders renders $start..$start+n-1 for IN clauses.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
