package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserStore persists users and their role assignments.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, password, name, email, mobile, avatar, gender, user_type,
	is_superuser, is_active, dept_id, last_login_at,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	var deptID, creator, deptBelong sql.NullInt64
	var lastLogin sql.NullTime
	err := row.Scan(
		&u.ID, &u.Username, &u.Password, &u.Name, &u.Email, &u.Mobile, &u.Avatar,
		&u.Gender, &u.UserType, &u.IsSuperuser, &u.IsActive, &deptID, &lastLogin,
		&u.Description, &creator, &u.Modifier, &deptBelong, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.DeptID = int64Ptr(deptID)
	u.Creator = int64Ptr(creator)
	u.DeptBelongID = int64Ptr(deptBelong)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// Create inserts a user and assigns its roles. The user's dept_belong_id
// defaults to its department when unset.
func (s *UserStore) Create(ctx context.Context, u *User) error {
	if u.DeptBelongID == nil && u.DeptID != nil {
		u.DeptBelongID = u.DeptID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, password, name, email, mobile, avatar, gender, user_type,
			is_superuser, is_active, dept_id,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		u.Username, u.Password, u.Name, u.Email, u.Mobile, u.Avatar, u.Gender, u.UserType,
		u.IsSuperuser, u.IsActive, nullInt64(u.DeptID),
		u.Description, nullInt64(u.Creator), u.Modifier, nullInt64(u.DeptBelongID), now, now,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	if err := replaceUserRoles(ctx, tx, u.ID, u.RoleIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user: %w", err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// Get retrieves a user by ID with role IDs loaded.
func (s *UserStore) Get(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND is_deleted = FALSE", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	if u.RoleIDs, err = s.roleIDs(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByUsername retrieves an active user for login.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 AND is_deleted = FALSE", username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", username, err)
	}
	if u.RoleIDs, err = s.roleIDs(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// Update rewrites profile fields and role assignments. Password is not
// touched here; use UpdatePassword.
func (s *UserStore) Update(ctx context.Context, u *User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// dept_belong_id is set once at creation and never rewritten here.
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET username = $1, name = $2, email = $3, mobile = $4, avatar = $5, gender = $6,
			user_type = $7, is_active = $8, dept_id = $9, description = $10,
			modifier = $11, update_datetime = $12
		WHERE id = $13 AND is_deleted = FALSE`,
		u.Username, u.Name, u.Email, u.Mobile, u.Avatar, u.Gender,
		u.UserType, u.IsActive, nullInt64(u.DeptID), u.Description,
		u.Modifier, time.Now(), u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	if err := replaceUserRoles(ctx, tx, u.ID, u.RoleIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user update: %w", err)
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET password = $1, update_datetime = $2 WHERE id = $3 AND is_deleted = FALSE",
		hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// TouchLastLogin records a successful login time.
func (s *UserStore) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), id)
	if err != nil {
		return fmt.Errorf("touching last login for user %d: %w", id, err)
	}
	return nil
}

// Delete soft-deletes by default; hard=true removes the row and its role
// assignments.
func (s *UserStore) Delete(ctx context.Context, id int64, hard bool) error {
	if !hard {
		res, err := s.db.ExecContext(ctx,
			"UPDATE users SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
		if err != nil {
			return fmt.Errorf("deleting user %d: %w", id, err)
		}
		return requireRowAffected(res)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = $1", id); err != nil {
		return fmt.Errorf("deleting user roles: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns users matching opts and an optional username/name search,
// ordered by id. Scope filtering applies here.
func (s *UserStore) List(ctx context.Context, search string, opts ListOptions) ([]*User, int, error) {
	var conds []string
	var args []interface{}
	if search != "" {
		conds = append(conds, "(username LIKE $1 OR name LIKE $1)")
		args = append(args, "%"+search+"%")
	}
	whereClause, args := buildWhere(opts, conds, args)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+whereClause+" ORDER BY id"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, u := range users {
		if u.RoleIDs, err = s.roleIDs(ctx, u.ID); err != nil {
			return nil, 0, err
		}
	}
	return users, total, nil
}

// ByIDs returns live users matching the given IDs, de-duplicated by the
// query itself.
func (s *UserStore) ByIDs(ctx context.Context, ids []int64) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_deleted = FALSE AND id IN ("+placeholders(1, len(ids))+") ORDER BY id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("loading users by ids: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ByDeptIDs returns live users belonging to any of the given departments.
func (s *UserStore) ByDeptIDs(ctx context.Context, deptIDs []int64) ([]*User, error) {
	if len(deptIDs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(deptIDs))
	for i, id := range deptIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_deleted = FALSE AND dept_id IN ("+placeholders(1, len(deptIDs))+") ORDER BY id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("loading users by departments: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *UserStore) roleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id", userID)
	if err != nil {
		return nil, fmt.Errorf("loading roles for user %d: %w", userID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning role id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func replaceUserRoles(ctx context.Context, tx *sql.Tx, userID int64, roleIDs []int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("clearing user roles: %w", err)
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)", userID, roleID); err != nil {
			return fmt.Errorf("assigning role %d: %w", roleID, err)
		}
	}
	return nil
}
