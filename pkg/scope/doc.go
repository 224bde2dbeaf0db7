// Package scope resolves a user's roles into a data-scope specification and
// renders it as a row filter for list and retrieve queries.
//
// A Spec is the union of what every enabled role grants: an unrestricted
// scope short-circuits everything, department grants accumulate into one
// set, and a self grant widens a department set with the user's own rows
// rather than narrowing it. Users without roles, and users whose roles
// resolve to an empty department set, fall back to seeing only rows they
// created.
package scope
