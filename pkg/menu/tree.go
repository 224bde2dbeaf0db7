package menu

import (
	"context"
	"fmt"
	"sort"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Node is a menu with its authorized children and buttons.
type Node struct {
	*store.Menu
	Children []*Node             `json:"children,omitempty"`
	Buttons  []*store.MenuButton `json:"menu_button,omitempty"`
}

// Service builds authorized menu trees and permission code sets.
type Service struct {
	menus   *store.MenuStore
	roles   *store.RoleStore
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a menu service.
func NewService(menus *store.MenuStore, roles *store.RoleStore, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{menus: menus, roles: roles, logger: logger, metrics: metrics}
}

// AuthorizedTree returns the menu tree visible to the user: the full tree
// for superusers, otherwise the subgraph of menus their roles grant.
// Buttons are filtered to granted permission IDs.
func (s *Service) AuthorizedTree(ctx context.Context, user *store.User) ([]*Node, error) {
	menus, err := s.menus.AllMenus(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading menus: %w", err)
	}
	buttons, err := s.menus.AllButtons(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading menu buttons: %w", err)
	}

	if user.IsSuperuser {
		return s.assemble(menus, buttons, nil, nil), nil
	}

	grantedMenus, grantedButtons, err := s.grants(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.assemble(menus, buttons, grantedMenus, grantedButtons), nil
}

// FullTree returns the complete menu tree with all buttons, for role
// authorization screens.
func (s *Service) FullTree(ctx context.Context) ([]*Node, error) {
	menus, err := s.menus.AllMenus(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading menus: %w", err)
	}
	buttons, err := s.menus.AllButtons(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading menu buttons: %w", err)
	}
	return s.assemble(menus, buttons, nil, nil), nil
}

// PermissionCodes returns the distinct button values the user's roles
// grant, sorted. Superusers get every live button value.
func (s *Service) PermissionCodes(ctx context.Context, user *store.User) ([]string, error) {
	var buttons []*store.MenuButton
	var err error
	if user.IsSuperuser {
		buttons, err = s.menus.AllButtons(ctx)
	} else {
		var grantedButtons map[int64]bool
		if _, grantedButtons, err = s.grants(ctx, user.ID); err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(grantedButtons))
		for id := range grantedButtons {
			ids = append(ids, id)
		}
		buttons, err = s.menus.ButtonsByIDs(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("loading permission buttons: %w", err)
	}

	seen := make(map[string]bool, len(buttons))
	codes := make([]string, 0, len(buttons))
	for _, b := range buttons {
		if b.Value == "" || seen[b.Value] {
			continue
		}
		seen[b.Value] = true
		codes = append(codes, b.Value)
	}
	sort.Strings(codes)
	return codes, nil
}

// grants returns the union of menu and button IDs across the user's
// enabled roles.
func (s *Service) grants(ctx context.Context, userID int64) (map[int64]bool, map[int64]bool, error) {
	roles, err := s.roles.ForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading roles for menu grants: %w", err)
	}
	menus := make(map[int64]bool)
	buttons := make(map[int64]bool)
	for _, role := range roles {
		for _, id := range role.MenuIDs {
			menus[id] = true
		}
		for _, id := range role.PermissionIDs {
			buttons[id] = true
		}
	}
	return menus, buttons, nil
}

// assemble builds the tree. grantedMenus nil means everything is included;
// grantedButtons nil means all buttons attach.
func (s *Service) assemble(menus []*store.Menu, buttons []*store.MenuButton, grantedMenus, grantedButtons map[int64]bool) []*Node {
	included := make(map[int64]*store.Menu)
	for _, m := range menus {
		if grantedMenus == nil || grantedMenus[m.ID] {
			included[m.ID] = m
		}
	}

	buttonsByMenu := make(map[int64][]*store.MenuButton)
	for _, b := range buttons {
		if grantedButtons != nil && !grantedButtons[b.ID] {
			continue
		}
		buttonsByMenu[b.MenuID] = append(buttonsByMenu[b.MenuID], b)
	}

	childIDs := make(map[int64][]int64)
	var rootIDs []int64
	for _, m := range menus {
		if included[m.ID] == nil {
			continue
		}
		// A granted menu under an ungranted (or absent) parent roots its
		// own subtree.
		if m.ParentID != nil && included[*m.ParentID] != nil {
			childIDs[*m.ParentID] = append(childIDs[*m.ParentID], m.ID)
		} else {
			rootIDs = append(rootIDs, m.ID)
		}
	}

	sortIDs := func(ids []int64) {
		sort.Slice(ids, func(i, j int) bool {
			a, b := included[ids[i]], included[ids[j]]
			if a.Sort != b.Sort {
				return a.Sort < b.Sort
			}
			return a.ID < b.ID
		})
	}
	sortIDs(rootIDs)
	for id := range childIDs {
		sortIDs(childIDs[id])
	}

	visited := make(map[int64]bool)
	var build func(id int64) *Node
	build = func(id int64) *Node {
		if visited[id] {
			s.warnCycle(id)
			return nil
		}
		visited[id] = true
		node := &Node{Menu: included[id], Buttons: buttonsByMenu[id]}
		for _, childID := range childIDs[id] {
			if child := build(childID); child != nil {
				node.Children = append(node.Children, child)
			}
		}
		return node
	}

	var out []*Node
	for _, id := range rootIDs {
		if node := build(id); node != nil {
			out = append(out, node)
		}
	}
	return out
}

func (s *Service) warnCycle(id int64) {
	if s.logger != nil {
		s.logger.WithField("menu_id", id).Warn("menu parent chain contains a cycle")
	}
	if s.metrics != nil {
		s.metrics.CycleWarningsTotal.WithLabelValues("menu").Inc()
	}
}
