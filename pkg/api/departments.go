package api

import (
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/auth"
	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

type departmentHandlers struct {
	*Server
}

func newDepartmentHandlers(s *Server) *departmentHandlers {
	return &departmentHandlers{Server: s}
}

func (h *departmentHandlers) RegisterRoutes(s *Server) {
	s.route("/api/system/dept/", h.list, http.MethodGet)
	s.route("/api/system/dept/", h.create, http.MethodPost)
	s.route("/api/system/dept/dept_tree/", h.tree, http.MethodGet)
	s.route("/api/system/dept/dept_lazy_tree/", h.lazyTree, http.MethodGet)
	s.route("/api/system/dept/{id}/", h.get, http.MethodGet)
	s.route("/api/system/dept/{id}/", h.update, http.MethodPut)
	s.route("/api/system/dept/{id}/", h.delete, http.MethodDelete)
}

func (h *departmentHandlers) list(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	depts, total, err := h.depts.List(r.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("listing departments failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WritePage(w, opts.Page, opts.Limit, total, depts)
}

func (h *departmentHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid department id")
		return
	}
	dept, err := h.depts.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &dept.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	httputil.WriteSuccess(w, dept)
}

func (h *departmentHandlers) create(w http.ResponseWriter, r *http.Request) {
	var dept store.Department
	if !httputil.ParseJSONOrError(w, r, &dept) {
		return
	}
	if dept.Name == "" {
		httputil.WriteBadRequest(w, "department name is required")
		return
	}
	h.stamp(r, &dept.Attribution)
	if err := h.depts.Create(r.Context(), &dept); err != nil {
		h.logger.WithError(err).Error("creating department failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, dept)
}

func (h *departmentHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid department id")
		return
	}
	existing, err := h.depts.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &existing.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}

	var dept store.Department
	if !httputil.ParseJSONOrError(w, r, &dept) {
		return
	}
	dept.ID = id
	if dept.ParentID != nil && *dept.ParentID == id {
		httputil.WriteBadRequest(w, "a department cannot be its own parent")
		return
	}
	stampModifier(r, &dept.Attribution)
	if err := h.depts.Update(r.Context(), &dept); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "updated")
}

func (h *departmentHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid department id")
		return
	}
	existing, err := h.depts.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !scopeAllows(r, &existing.Attribution) {
		httputil.WriteNotFound(w, "")
		return
	}
	hasChildren, err := h.depts.HasChildren(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}
	if hasChildren {
		httputil.WriteBadRequest(w, "department has sub-departments")
		return
	}
	if err := h.depts.Delete(r.Context(), id, hardDelete(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccessMsg(w, "deleted")
}

// deptNode is a department with its children, for the tree endpoint.
type deptNode struct {
	*store.Department
	Children []*deptNode `json:"children,omitempty"`
}

// tree returns the full enabled forest.
func (h *departmentHandlers) tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.trees.Snapshot(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("loading department tree failed")
		httputil.WriteInternalError(w)
		return
	}

	visited := make(map[int64]bool)
	var build func(id int64) *deptNode
	build = func(id int64) *deptNode {
		dept := tree.Get(id)
		if dept == nil || visited[id] {
			return nil
		}
		visited[id] = true
		node := &deptNode{Department: dept}
		for _, childID := range tree.Children(id) {
			if child := build(childID); child != nil {
				node.Children = append(node.Children, child)
			}
		}
		return node
	}

	roots := make([]*deptNode, 0)
	for _, id := range tree.Roots() {
		if node := build(id); node != nil {
			roots = append(roots, node)
		}
	}
	httputil.WriteSuccess(w, roots)
}

// lazyTree returns one level of children; parent absent means roots. Each
// entry carries hasChild so the client knows whether to expand. Non-superusers
// without an explicit parent start at their own department instead of the
// forest roots.
func (h *departmentHandlers) lazyTree(w http.ResponseWriter, r *http.Request) {
	var parentID *int64
	if p := httputil.QueryInt64(r, "parent", 0); p > 0 {
		parentID = &p
	}
	if parentID == nil {
		if ident := auth.FromContext(r.Context()); ident != nil && !ident.IsSuperuser {
			if user, err := h.users.Get(r.Context(), ident.UserID); err == nil && user.DeptID != nil {
				if own, err := h.depts.Get(r.Context(), *user.DeptID); err == nil {
					hasChild, err := h.depts.HasChildren(r.Context(), own.ID)
					if err != nil {
						httputil.WriteInternalError(w)
						return
					}
					httputil.WriteSuccess(w, []interface{}{struct {
						*store.Department
						HasChild bool `json:"hasChild"`
					}{own, hasChild}})
					return
				}
			}
		}
	}
	depts, err := h.depts.Children(r.Context(), parentID)
	if err != nil {
		h.logger.WithError(err).Error("loading department children failed")
		httputil.WriteInternalError(w)
		return
	}

	type lazyNode struct {
		*store.Department
		HasChild bool `json:"hasChild"`
	}
	nodes := make([]*lazyNode, 0, len(depts))
	for _, d := range depts {
		hasChild, err := h.depts.HasChildren(r.Context(), d.ID)
		if err != nil {
			httputil.WriteInternalError(w)
			return
		}
		nodes = append(nodes, &lazyNode{Department: d, HasChild: hasChild})
	}
	httputil.WriteSuccess(w, nodes)
}
