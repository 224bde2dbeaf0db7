package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DepartmentStore persists the organizational forest.
type DepartmentStore struct {
	db *sql.DB
}

// NewDepartmentStore creates a department store.
func NewDepartmentStore(db *sql.DB) *DepartmentStore {
	return &DepartmentStore{db: db}
}

const deptColumns = `id, name, key, sort, owner, phone, email, status, parent_id,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanDepartment(row interface{ Scan(...interface{}) error }) (*Department, error) {
	var d Department
	var parentID, creator, deptBelong sql.NullInt64
	err := row.Scan(
		&d.ID, &d.Name, &d.Key, &d.Sort, &d.Owner, &d.Phone, &d.Email, &d.Status,
		&parentID, &d.Description, &creator, &d.Modifier, &deptBelong,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.ParentID = int64Ptr(parentID)
	d.Creator = int64Ptr(creator)
	d.DeptBelongID = int64Ptr(deptBelong)
	return &d, nil
}

// Create inserts a department and fills in its ID and timestamps.
func (s *DepartmentStore) Create(ctx context.Context, d *Department) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO departments (name, key, sort, owner, phone, email, status, parent_id,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		d.Name, d.Key, d.Sort, d.Owner, d.Phone, d.Email, d.Status, nullInt64(d.ParentID),
		d.Description, nullInt64(d.Creator), d.Modifier, nullInt64(d.DeptBelongID), now, now,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("creating department: %w", err)
	}
	// A department row is attributed to itself so data scopes that include
	// the department can see and manage it.
	if _, err := s.db.ExecContext(ctx,
		"UPDATE departments SET dept_belong_id = $1 WHERE id = $1", d.ID); err != nil {
		return fmt.Errorf("attributing department %d: %w", d.ID, err)
	}
	d.DeptBelongID = &d.ID
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

// Get retrieves a department by ID, excluding soft-deleted rows.
func (s *DepartmentStore) Get(ctx context.Context, id int64) (*Department, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+deptColumns+" FROM departments WHERE id = $1 AND is_deleted = FALSE", id)
	d, err := scanDepartment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting department %d: %w", id, err)
	}
	return d, nil
}

// Update rewrites the mutable fields of a department.
func (s *DepartmentStore) Update(ctx context.Context, d *Department) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE departments
		SET name = $1, key = $2, sort = $3, owner = $4, phone = $5, email = $6,
			status = $7, parent_id = $8, description = $9, modifier = $10,
			update_datetime = $11
		WHERE id = $12 AND is_deleted = FALSE`,
		d.Name, d.Key, d.Sort, d.Owner, d.Phone, d.Email, d.Status,
		nullInt64(d.ParentID), d.Description, d.Modifier, time.Now(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating department %d: %w", d.ID, err)
	}
	return requireRowAffected(res)
}

// Delete soft-deletes by default; hard=true removes the row entirely.
func (s *DepartmentStore) Delete(ctx context.Context, id int64, hard bool) error {
	var res sql.Result
	var err error
	if hard {
		res, err = s.db.ExecContext(ctx, "DELETE FROM departments WHERE id = $1", id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE departments SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("deleting department %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// List returns departments under opts, ordered by sort then id.
func (s *DepartmentStore) List(ctx context.Context, opts ListOptions) ([]*Department, int, error) {
	whereClause, args := buildWhere(opts, nil, nil)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM departments"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting departments: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+deptColumns+" FROM departments"+whereClause+" ORDER BY sort, id"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing departments: %w", err)
	}
	defer rows.Close()

	var depts []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning department: %w", err)
		}
		depts = append(depts, d)
	}
	return depts, total, rows.Err()
}

// AllEnabled returns every enabled, non-deleted department. Tree traversal
// works on this snapshot.
func (s *DepartmentStore) AllEnabled(ctx context.Context) ([]*Department, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+deptColumns+" FROM departments WHERE is_deleted = FALSE AND status = TRUE ORDER BY sort, id")
	if err != nil {
		return nil, fmt.Errorf("loading departments: %w", err)
	}
	defer rows.Close()

	var depts []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

// Children returns the direct enabled children of parentID; parentID nil
// returns the roots.
func (s *DepartmentStore) Children(ctx context.Context, parentID *int64) ([]*Department, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = s.db.QueryContext(ctx,
			"SELECT "+deptColumns+" FROM departments WHERE is_deleted = FALSE AND status = TRUE AND parent_id IS NULL ORDER BY sort, id")
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT "+deptColumns+" FROM departments WHERE is_deleted = FALSE AND status = TRUE AND parent_id = $1 ORDER BY sort, id",
			*parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading department children: %w", err)
	}
	defer rows.Close()

	var depts []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

// HasChildren reports whether any live department points at id.
func (s *DepartmentStore) HasChildren(ctx context.Context, id int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM departments WHERE parent_id = $1 AND is_deleted = FALSE", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking department children: %w", err)
	}
	return count > 0, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
