package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MenuStore persists the navigation tree and its action buttons.
type MenuStore struct {
	db *sql.DB
}

// NewMenuStore creates a menu store.
func NewMenuStore(db *sql.DB) *MenuStore {
	return &MenuStore{db: db}
}

const menuColumns = `id, parent_id, icon, name, sort, is_link, is_catalog, web_path,
	component, component_name, status, visible, cache,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

const buttonColumns = `id, menu_id, name, value, api, method,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanMenu(row interface{ Scan(...interface{}) error }) (*Menu, error) {
	var m Menu
	var parentID, creator, deptBelong sql.NullInt64
	err := row.Scan(
		&m.ID, &parentID, &m.Icon, &m.Name, &m.Sort, &m.IsLink, &m.IsCatalog, &m.WebPath,
		&m.Component, &m.ComponentName, &m.Status, &m.Visible, &m.Cache,
		&m.Description, &creator, &m.Modifier, &deptBelong, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ParentID = int64Ptr(parentID)
	m.Creator = int64Ptr(creator)
	m.DeptBelongID = int64Ptr(deptBelong)
	return &m, nil
}

func scanButton(row interface{ Scan(...interface{}) error }) (*MenuButton, error) {
	var b MenuButton
	var creator, deptBelong sql.NullInt64
	err := row.Scan(
		&b.ID, &b.MenuID, &b.Name, &b.Value, &b.API, &b.Method,
		&b.Description, &creator, &b.Modifier, &deptBelong, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Creator = int64Ptr(creator)
	b.DeptBelongID = int64Ptr(deptBelong)
	return &b, nil
}

// CreateMenu inserts a menu node.
func (s *MenuStore) CreateMenu(ctx context.Context, m *Menu) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO menus (parent_id, icon, name, sort, is_link, is_catalog, web_path,
			component, component_name, status, visible, cache,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		nullInt64(m.ParentID), m.Icon, m.Name, m.Sort, m.IsLink, m.IsCatalog, m.WebPath,
		m.Component, m.ComponentName, m.Status, m.Visible, m.Cache,
		m.Description, nullInt64(m.Creator), m.Modifier, nullInt64(m.DeptBelongID), now, now,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("creating menu: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// GetMenu retrieves a menu by ID.
func (s *MenuStore) GetMenu(ctx context.Context, id int64) (*Menu, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+menuColumns+" FROM menus WHERE id = $1 AND is_deleted = FALSE", id)
	m, err := scanMenu(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting menu %d: %w", id, err)
	}
	return m, nil
}

// UpdateMenu rewrites a menu node.
func (s *MenuStore) UpdateMenu(ctx context.Context, m *Menu) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE menus
		SET parent_id = $1, icon = $2, name = $3, sort = $4, is_link = $5, is_catalog = $6,
			web_path = $7, component = $8, component_name = $9, status = $10, visible = $11,
			cache = $12, description = $13, modifier = $14, update_datetime = $15
		WHERE id = $16 AND is_deleted = FALSE`,
		nullInt64(m.ParentID), m.Icon, m.Name, m.Sort, m.IsLink, m.IsCatalog,
		m.WebPath, m.Component, m.ComponentName, m.Status, m.Visible,
		m.Cache, m.Description, m.Modifier, time.Now(), m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating menu %d: %w", m.ID, err)
	}
	return requireRowAffected(res)
}

// DeleteMenu soft-deletes by default; hard=true removes the row and its
// buttons.
func (s *MenuStore) DeleteMenu(ctx context.Context, id int64, hard bool) error {
	if !hard {
		res, err := s.db.ExecContext(ctx,
			"UPDATE menus SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
		if err != nil {
			return fmt.Errorf("deleting menu %d: %w", id, err)
		}
		return requireRowAffected(res)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM menu_buttons WHERE menu_id = $1", id); err != nil {
		return fmt.Errorf("deleting menu buttons: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM menus WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting menu %d: %w", id, err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// AllMenus returns every enabled, non-deleted menu ordered by sort then id.
// Tree assembly runs on this snapshot.
func (s *MenuStore) AllMenus(ctx context.Context) ([]*Menu, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+menuColumns+" FROM menus WHERE is_deleted = FALSE AND status = TRUE ORDER BY sort, id")
	if err != nil {
		return nil, fmt.Errorf("loading menus: %w", err)
	}
	defer rows.Close()

	var menus []*Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning menu: %w", err)
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

// ListMenus returns menus under opts ordered by sort then id.
func (s *MenuStore) ListMenus(ctx context.Context, opts ListOptions) ([]*Menu, int, error) {
	whereClause, args := buildWhere(opts, nil, nil)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM menus"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting menus: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+menuColumns+" FROM menus"+whereClause+" ORDER BY sort, id"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing menus: %w", err)
	}
	defer rows.Close()

	var menus []*Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning menu: %w", err)
		}
		menus = append(menus, m)
	}
	return menus, total, rows.Err()
}

// CreateButton inserts a menu button.
func (s *MenuStore) CreateButton(ctx context.Context, b *MenuButton) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO menu_buttons (menu_id, name, value, api, method,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		b.MenuID, b.Name, b.Value, b.API, b.Method,
		b.Description, nullInt64(b.Creator), b.Modifier, nullInt64(b.DeptBelongID), now, now,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("creating menu button: %w", err)
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// GetButton retrieves a button by ID.
func (s *MenuStore) GetButton(ctx context.Context, id int64) (*MenuButton, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+buttonColumns+" FROM menu_buttons WHERE id = $1 AND is_deleted = FALSE", id)
	b, err := scanButton(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting menu button %d: %w", id, err)
	}
	return b, nil
}

// UpdateButton rewrites a button.
func (s *MenuStore) UpdateButton(ctx context.Context, b *MenuButton) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE menu_buttons
		SET menu_id = $1, name = $2, value = $3, api = $4, method = $5,
			description = $6, modifier = $7, update_datetime = $8
		WHERE id = $9 AND is_deleted = FALSE`,
		b.MenuID, b.Name, b.Value, b.API, b.Method,
		b.Description, b.Modifier, time.Now(), b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating menu button %d: %w", b.ID, err)
	}
	return requireRowAffected(res)
}

// DeleteButton soft-deletes by default; hard=true removes the row.
func (s *MenuStore) DeleteButton(ctx context.Context, id int64, hard bool) error {
	var res sql.Result
	var err error
	if hard {
		res, err = s.db.ExecContext(ctx, "DELETE FROM menu_buttons WHERE id = $1", id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE menu_buttons SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("deleting menu button %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// ButtonsByMenu returns the live buttons of one menu ordered by id.
func (s *MenuStore) ButtonsByMenu(ctx context.Context, menuID int64) ([]*MenuButton, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+buttonColumns+" FROM menu_buttons WHERE menu_id = $1 AND is_deleted = FALSE ORDER BY id",
		menuID)
	if err != nil {
		return nil, fmt.Errorf("loading buttons for menu %d: %w", menuID, err)
	}
	defer rows.Close()

	var buttons []*MenuButton
	for rows.Next() {
		b, err := scanButton(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning menu button: %w", err)
		}
		buttons = append(buttons, b)
	}
	return buttons, rows.Err()
}

// AllButtons returns every live button ordered by menu then id.
func (s *MenuStore) AllButtons(ctx context.Context) ([]*MenuButton, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+buttonColumns+" FROM menu_buttons WHERE is_deleted = FALSE ORDER BY menu_id, id")
	if err != nil {
		return nil, fmt.Errorf("loading menu buttons: %w", err)
	}
	defer rows.Close()

	var buttons []*MenuButton
	for rows.Next() {
		b, err := scanButton(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning menu button: %w", err)
		}
		buttons = append(buttons, b)
	}
	return buttons, rows.Err()
}

// ButtonsByIDs returns live buttons matching the given IDs.
func (s *MenuStore) ButtonsByIDs(ctx context.Context, ids []int64) ([]*MenuButton, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+buttonColumns+" FROM menu_buttons WHERE is_deleted = FALSE AND id IN ("+placeholders(1, len(ids))+") ORDER BY id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("loading buttons by ids: %w", err)
	}
	defer rows.Close()

	var buttons []*MenuButton
	for rows.Next() {
		b, err := scanButton(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning menu button: %w", err)
		}
		buttons = append(buttons, b)
	}
	return buttons, rows.Err()
}
