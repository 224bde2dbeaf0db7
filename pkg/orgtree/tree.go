package orgtree

import (
	"context"
	"fmt"
	"sort"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Tree is an immutable snapshot of the enabled department forest. Build one
// per request (or per resolution) from DepartmentStore.AllEnabled; disabled
// and soft-deleted departments are absent, so their subtrees are
// unreachable.
type Tree struct {
	nodes    map[int64]*store.Department
	children map[int64][]int64
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger attaches a logger for cycle warnings.
func WithLogger(logger *observability.Logger) Option {
	return func(t *Tree) { t.logger = logger }
}

// WithMetrics attaches metrics for cycle counting.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tree) { t.metrics = m }
}

// New builds a Tree from a department snapshot.
func New(depts []*store.Department, opts ...Option) *Tree {
	t := &Tree{
		nodes:    make(map[int64]*store.Department, len(depts)),
		children: make(map[int64][]int64),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, d := range depts {
		t.nodes[d.ID] = d
	}
	for _, d := range depts {
		if d.ParentID != nil {
			t.children[*d.ParentID] = append(t.children[*d.ParentID], d.ID)
		}
	}
	// Children come back ordered by sort from the store; keep sibling order
	// stable by sort then id within the snapshot.
	for parent := range t.children {
		ids := t.children[parent]
		sort.Slice(ids, func(i, j int) bool {
			a, b := t.nodes[ids[i]], t.nodes[ids[j]]
			if a.Sort != b.Sort {
				return a.Sort < b.Sort
			}
			return a.ID < b.ID
		})
	}
	return t
}

// Get returns a department by ID, or nil when absent from the snapshot.
func (t *Tree) Get(id int64) *store.Department {
	return t.nodes[id]
}

// Len returns the number of departments in the snapshot.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Descendants returns the subtree rooted at id, including id itself, in
// depth-first order. Unknown ids yield a single-element result so a
// dangling reference still scopes to itself. The bool reports whether a
// parent-link cycle was encountered.
func (t *Tree) Descendants(id int64) ([]int64, bool) {
	visited := make(map[int64]bool)
	var out []int64
	cycle := t.walk(id, visited, &out)
	if cycle {
		t.warnCycle(id)
	}
	return out, cycle
}

func (t *Tree) walk(id int64, visited map[int64]bool, out *[]int64) bool {
	if visited[id] {
		return true
	}
	visited[id] = true
	*out = append(*out, id)
	cycle := false
	for _, child := range t.children[id] {
		if t.walk(child, visited, out) {
			cycle = true
		}
	}
	return cycle
}

// Ancestors returns the parent chain of id from nearest to root, excluding
// id itself. The chain stops at the first repeated node.
func (t *Tree) Ancestors(id int64) ([]int64, bool) {
	visited := map[int64]bool{id: true}
	var out []int64
	node := t.nodes[id]
	for node != nil && node.ParentID != nil {
		parent := *node.ParentID
		if visited[parent] {
			t.warnCycle(id)
			return out, true
		}
		visited[parent] = true
		if t.nodes[parent] == nil {
			break
		}
		out = append(out, parent)
		node = t.nodes[parent]
	}
	return out, false
}

// Children returns the direct children of id in sibling order.
func (t *Tree) Children(id int64) []int64 {
	out := make([]int64, len(t.children[id]))
	copy(out, t.children[id])
	return out
}

// Roots returns the departments with no parent in the snapshot, in sort
// order.
func (t *Tree) Roots() []int64 {
	var roots []int64
	for id, d := range t.nodes {
		if d.ParentID == nil || t.nodes[*d.ParentID] == nil {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		a, b := t.nodes[roots[i]], t.nodes[roots[j]]
		if a.Sort != b.Sort {
			return a.Sort < b.Sort
		}
		return a.ID < b.ID
	})
	return roots
}

func (t *Tree) warnCycle(id int64) {
	if t.logger != nil {
		t.logger.WithField("dept_id", id).Warn("department parent chain contains a cycle")
	}
	if t.metrics != nil {
		t.metrics.CycleWarningsTotal.WithLabelValues("department").Inc()
	}
}

// Loader builds Tree snapshots from the department store.
type Loader struct {
	depts   *store.DepartmentStore
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader.
func NewLoader(depts *store.DepartmentStore, logger *observability.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{depts: depts, logger: logger, metrics: metrics}
}

// Snapshot loads the current enabled forest.
func (l *Loader) Snapshot(ctx context.Context) (*Tree, error) {
	depts, err := l.depts.AllEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading department snapshot: %w", err)
	}
	opts := []Option{}
	if l.logger != nil {
		opts = append(opts, WithLogger(l.logger))
	}
	if l.metrics != nil {
		opts = append(opts, WithMetrics(l.metrics))
	}
	return New(depts, opts...), nil
}
