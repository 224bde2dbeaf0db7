// Package orgtree provides traversal over the department forest: subtree
// expansion for data-scope resolution, ancestor chains and child listing.
//
// The database does not guarantee acyclic parent links, so every traversal
// carries a visited set. A node whose parent chain loops back on itself is
// treated as a leaf; the loop is logged and counted but never fails the
// request.
package orgtree
