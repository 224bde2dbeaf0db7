package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DictionaryStore persists the two-level dictionary catalogue.
type DictionaryStore struct {
	db *sql.DB
}

// NewDictionaryStore creates a dictionary store.
func NewDictionaryStore(db *sql.DB) *DictionaryStore {
	return &DictionaryStore{db: db}
}

const dictColumns = `id, label, value, parent_id, status, sort, color, remark,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanDictionary(row interface{ Scan(...interface{}) error }) (*Dictionary, error) {
	var d Dictionary
	var parentID, creator, deptBelong sql.NullInt64
	err := row.Scan(
		&d.ID, &d.Label, &d.Value, &parentID, &d.Status, &d.Sort, &d.Color, &d.Remark,
		&d.Description, &creator, &d.Modifier, &deptBelong, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.ParentID = int64Ptr(parentID)
	d.Creator = int64Ptr(creator)
	d.DeptBelongID = int64Ptr(deptBelong)
	return &d, nil
}

// Create inserts a dictionary row.
func (s *DictionaryStore) Create(ctx context.Context, d *Dictionary) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO dictionaries (label, value, parent_id, status, sort, color, remark,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		d.Label, d.Value, nullInt64(d.ParentID), d.Status, d.Sort, d.Color, d.Remark,
		d.Description, nullInt64(d.Creator), d.Modifier, nullInt64(d.DeptBelongID), now, now,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("creating dictionary: %w", err)
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

// Get retrieves a dictionary row by ID.
func (s *DictionaryStore) Get(ctx context.Context, id int64) (*Dictionary, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+dictColumns+" FROM dictionaries WHERE id = $1 AND is_deleted = FALSE", id)
	d, err := scanDictionary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting dictionary %d: %w", id, err)
	}
	return d, nil
}

// Update rewrites a dictionary row.
func (s *DictionaryStore) Update(ctx context.Context, d *Dictionary) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE dictionaries
		SET label = $1, value = $2, parent_id = $3, status = $4, sort = $5, color = $6,
			remark = $7, description = $8, modifier = $9, update_datetime = $10
		WHERE id = $11 AND is_deleted = FALSE`,
		d.Label, d.Value, nullInt64(d.ParentID), d.Status, d.Sort, d.Color,
		d.Remark, d.Description, d.Modifier, time.Now(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating dictionary %d: %w", d.ID, err)
	}
	return requireRowAffected(res)
}

// Delete soft-deletes by default; hard=true removes the row and its
// children.
func (s *DictionaryStore) Delete(ctx context.Context, id int64, hard bool) error {
	var res sql.Result
	var err error
	if hard {
		if _, err = s.db.ExecContext(ctx, "DELETE FROM dictionaries WHERE parent_id = $1", id); err != nil {
			return fmt.Errorf("deleting dictionary children: %w", err)
		}
		res, err = s.db.ExecContext(ctx, "DELETE FROM dictionaries WHERE id = $1", id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE dictionaries SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("deleting dictionary %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// List returns dictionary rows under opts ordered by sort then id.
func (s *DictionaryStore) List(ctx context.Context, opts ListOptions) ([]*Dictionary, int, error) {
	whereClause, args := buildWhere(opts, nil, nil)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM dictionaries"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting dictionaries: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+dictColumns+" FROM dictionaries"+whereClause+" ORDER BY sort, id"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing dictionaries: %w", err)
	}
	defer rows.Close()

	var dicts []*Dictionary
	for rows.Next() {
		d, err := scanDictionary(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning dictionary: %w", err)
		}
		dicts = append(dicts, d)
	}
	return dicts, total, rows.Err()
}

// AllEnabled returns every enabled dictionary row for cache building.
func (s *DictionaryStore) AllEnabled(ctx context.Context) ([]*Dictionary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+dictColumns+" FROM dictionaries WHERE is_deleted = FALSE AND status = TRUE ORDER BY sort, id")
	if err != nil {
		return nil, fmt.Errorf("loading dictionaries: %w", err)
	}
	defer rows.Close()

	var dicts []*Dictionary
	for rows.Next() {
		d, err := scanDictionary(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dictionary: %w", err)
		}
		dicts = append(dicts, d)
	}
	return dicts, rows.Err()
}

// SystemConfigStore persists keyed configuration values.
type SystemConfigStore struct {
	db *sql.DB
}

// NewSystemConfigStore creates a system config store.
func NewSystemConfigStore(db *sql.DB) *SystemConfigStore {
	return &SystemConfigStore{db: db}
}

const sysConfigColumns = `id, parent_id, title, key, value, sort, status, form_item_type,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanSystemConfig(row interface{ Scan(...interface{}) error }) (*SystemConfig, error) {
	var c SystemConfig
	var parentID, creator, deptBelong sql.NullInt64
	err := row.Scan(
		&c.ID, &parentID, &c.Title, &c.Key, &c.Value, &c.Sort, &c.Status, &c.FormItemType,
		&c.Description, &creator, &c.Modifier, &deptBelong, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ParentID = int64Ptr(parentID)
	c.Creator = int64Ptr(creator)
	c.DeptBelongID = int64Ptr(deptBelong)
	return &c, nil
}

// Create inserts a system config row.
func (s *SystemConfigStore) Create(ctx context.Context, c *SystemConfig) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO system_configs (parent_id, title, key, value, sort, status, form_item_type,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		nullInt64(c.ParentID), c.Title, c.Key, c.Value, c.Sort, c.Status, c.FormItemType,
		c.Description, nullInt64(c.Creator), c.Modifier, nullInt64(c.DeptBelongID), now, now,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("creating system config: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// Get retrieves a system config row by ID.
func (s *SystemConfigStore) Get(ctx context.Context, id int64) (*SystemConfig, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sysConfigColumns+" FROM system_configs WHERE id = $1 AND is_deleted = FALSE", id)
	c, err := scanSystemConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting system config %d: %w", id, err)
	}
	return c, nil
}

// Update rewrites a system config row.
func (s *SystemConfigStore) Update(ctx context.Context, c *SystemConfig) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE system_configs
		SET parent_id = $1, title = $2, key = $3, value = $4, sort = $5, status = $6,
			form_item_type = $7, description = $8, modifier = $9, update_datetime = $10
		WHERE id = $11 AND is_deleted = FALSE`,
		nullInt64(c.ParentID), c.Title, c.Key, c.Value, c.Sort, c.Status,
		c.FormItemType, c.Description, c.Modifier, time.Now(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating system config %d: %w", c.ID, err)
	}
	return requireRowAffected(res)
}

// Delete soft-deletes by default; hard=true removes the row and its
// children.
func (s *SystemConfigStore) Delete(ctx context.Context, id int64, hard bool) error {
	var res sql.Result
	var err error
	if hard {
		if _, err = s.db.ExecContext(ctx, "DELETE FROM system_configs WHERE parent_id = $1", id); err != nil {
			return fmt.Errorf("deleting system config children: %w", err)
		}
		res, err = s.db.ExecContext(ctx, "DELETE FROM system_configs WHERE id = $1", id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE system_configs SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("deleting system config %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// List returns system config rows under opts ordered by sort then id.
func (s *SystemConfigStore) List(ctx context.Context, opts ListOptions) ([]*SystemConfig, int, error) {
	whereClause, args := buildWhere(opts, nil, nil)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM system_configs"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting system configs: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sysConfigColumns+" FROM system_configs"+whereClause+" ORDER BY sort, id"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing system configs: %w", err)
	}
	defer rows.Close()

	var configs []*SystemConfig
	for rows.Next() {
		c, err := scanSystemConfig(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning system config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, total, rows.Err()
}

// AllEnabled returns every enabled system config row for cache building.
func (s *SystemConfigStore) AllEnabled(ctx context.Context) ([]*SystemConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sysConfigColumns+" FROM system_configs WHERE is_deleted = FALSE AND status = TRUE ORDER BY sort, id")
	if err != nil {
		return nil, fmt.Errorf("loading system configs: %w", err)
	}
	defer rows.Close()

	var configs []*SystemConfig
	for rows.Next() {
		c, err := scanSystemConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning system config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
