package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RoleStore persists roles and their grant sets.
type RoleStore struct {
	db *sql.DB
}

// NewRoleStore creates a role store.
func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

const roleColumns = `id, name, key, sort, status, admin, data_range, remark,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanRole(row interface{ Scan(...interface{}) error }) (*Role, error) {
	var r Role
	var creator, deptBelong sql.NullInt64
	err := row.Scan(
		&r.ID, &r.Name, &r.Key, &r.Sort, &r.Status, &r.Admin, &r.DataRange, &r.Remark,
		&r.Description, &creator, &r.Modifier, &deptBelong, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Creator = int64Ptr(creator)
	r.DeptBelongID = int64Ptr(deptBelong)
	return &r, nil
}

// Create inserts a role with its grant sets.
func (s *RoleStore) Create(ctx context.Context, r *Role) error {
	if !r.DataRange.Valid() {
		return fmt.Errorf("invalid data range %d", r.DataRange)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO roles (name, key, sort, status, admin, data_range, remark,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		r.Name, r.Key, r.Sort, r.Status, r.Admin, r.DataRange, r.Remark,
		r.Description, nullInt64(r.Creator), r.Modifier, nullInt64(r.DeptBelongID), now, now,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("creating role: %w", err)
	}

	if err := replaceGrantSet(ctx, tx, "role_menus", "menu_id", r.ID, r.MenuIDs); err != nil {
		return err
	}
	if err := replaceGrantSet(ctx, tx, "role_menu_buttons", "button_id", r.ID, r.PermissionIDs); err != nil {
		return err
	}
	if err := replaceGrantSet(ctx, tx, "role_depts", "dept_id", r.ID, r.DeptIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing role: %w", err)
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// Get retrieves a role with its grant sets loaded.
func (s *RoleStore) Get(ctx context.Context, id int64) (*Role, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id = $1 AND is_deleted = FALSE", id)
	r, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting role %d: %w", id, err)
	}
	if err := s.loadGrantSets(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update rewrites a role and replaces its grant sets.
func (s *RoleStore) Update(ctx context.Context, r *Role) error {
	if !r.DataRange.Valid() {
		return fmt.Errorf("invalid data range %d", r.DataRange)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE roles
		SET name = $1, key = $2, sort = $3, status = $4, admin = $5, data_range = $6,
			remark = $7, description = $8, modifier = $9, update_datetime = $10
		WHERE id = $11 AND is_deleted = FALSE`,
		r.Name, r.Key, r.Sort, r.Status, r.Admin, r.DataRange,
		r.Remark, r.Description, r.Modifier, time.Now(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating role %d: %w", r.ID, err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	if err := replaceGrantSet(ctx, tx, "role_menus", "menu_id", r.ID, r.MenuIDs); err != nil {
		return err
	}
	if err := replaceGrantSet(ctx, tx, "role_menu_buttons", "button_id", r.ID, r.PermissionIDs); err != nil {
		return err
	}
	if err := replaceGrantSet(ctx, tx, "role_depts", "dept_id", r.ID, r.DeptIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing role update: %w", err)
	}
	return nil
}

// Delete soft-deletes by default; hard=true removes the role and its grants.
func (s *RoleStore) Delete(ctx context.Context, id int64, hard bool) error {
	if !hard {
		res, err := s.db.ExecContext(ctx,
			"UPDATE roles SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
		if err != nil {
			return fmt.Errorf("deleting role %d: %w", id, err)
		}
		return requireRowAffected(res)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()
	for _, table := range []string{"role_menus", "role_menu_buttons", "role_depts", "user_roles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE role_id = $1", id); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM roles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting role %d: %w", id, err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns roles under opts ordered by sort then id.
func (s *RoleStore) List(ctx context.Context, opts ListOptions) ([]*Role, int, error) {
	whereClause, args := buildWhere(opts, nil, nil)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM roles"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting roles: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles"+whereClause+" ORDER BY sort, id"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, total, rows.Err()
}

// ForUser returns the enabled, non-deleted roles assigned to a user, with
// custom dept sets loaded. Scope resolution runs on this.
func (s *RoleStore) ForUser(ctx context.Context, userID int64) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		JOIN user_roles ON user_roles.role_id = roles.id
		WHERE user_roles.user_id = $1 AND roles.is_deleted = FALSE AND roles.status = TRUE
		ORDER BY roles.sort, roles.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading roles for user %d: %w", userID, err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, r := range roles {
		if err := s.loadGrantSets(ctx, r); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (s *RoleStore) loadGrantSets(ctx context.Context, r *Role) error {
	var err error
	if r.MenuIDs, err = s.grantSet(ctx, "role_menus", "menu_id", r.ID); err != nil {
		return err
	}
	if r.PermissionIDs, err = s.grantSet(ctx, "role_menu_buttons", "button_id", r.ID); err != nil {
		return err
	}
	if r.DeptIDs, err = s.grantSet(ctx, "role_depts", "dept_id", r.ID); err != nil {
		return err
	}
	return nil
}

func (s *RoleStore) grantSet(ctx context.Context, table, column string, roleID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+" FROM "+table+" WHERE role_id = $1 ORDER BY "+column, roleID)
	if err != nil {
		return nil, fmt.Errorf("loading %s for role %d: %w", table, roleID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", column, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func replaceGrantSet(ctx context.Context, tx *sql.Tx, table, column string, roleID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE role_id = $1", roleID); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (role_id, "+column+") VALUES ($1, $2)", roleID, id); err != nil {
			return fmt.Errorf("granting %s %d: %w", column, id, err)
		}
	}
	return nil
}
