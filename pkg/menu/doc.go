// Package menu assembles the navigation tree a user is allowed to see and
// the permission codes their roles grant.
//
// Tree assembly is restricted to the menu IDs granted by the caller's
// enabled roles; a menu whose parent is outside the grant becomes a root of
// its own subtree. Buttons attach to their menus filtered by the granted
// permission IDs. Superusers get the full tree. Parent links are not
// guaranteed acyclic, so assembly carries a visited set and treats loops as
// leaves.
package menu
