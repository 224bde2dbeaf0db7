// Package store implements PostgreSQL persistence for all domain entities:
// departments, users, roles, menus and menu buttons, the API whitelist,
// dictionaries, system configs and uploaded file records.
//
// Every domain table carries the same attribution columns (creator,
// dept_belong_id, modifier, is_deleted plus timestamps). List queries
// exclude soft-deleted rows by default and accept an optional RowFilter
// that restricts results to the caller's data scope. The filter is rendered
// into the WHERE clause server-side; request parameters can never disable
// it.
//
// Queries use database/sql directly with $N placeholders against the
// primary, and read replicas round-robin through ConnectionManager.
package store
