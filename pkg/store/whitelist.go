package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// WhitelistStore persists API whitelist entries.
type WhitelistStore struct {
	db *sql.DB
}

// NewWhitelistStore creates a whitelist store.
func NewWhitelistStore(db *sql.DB) *WhitelistStore {
	return &WhitelistStore{db: db}
}

const whitelistColumns = `id, url, method, enable_datasource,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanWhitelist(row interface{ Scan(...interface{}) error }) (*WhitelistEntry, error) {
	var w WhitelistEntry
	var creator, deptBelong sql.NullInt64
	err := row.Scan(
		&w.ID, &w.URL, &w.Method, &w.EnableDatasource,
		&w.Description, &creator, &w.Modifier, &deptBelong, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Creator = int64Ptr(creator)
	w.DeptBelongID = int64Ptr(deptBelong)
	return &w, nil
}

// Create inserts a whitelist entry.
func (s *WhitelistStore) Create(ctx context.Context, w *WhitelistEntry) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_whitelist (url, method, enable_datasource,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		w.URL, w.Method, w.EnableDatasource,
		w.Description, nullInt64(w.Creator), w.Modifier, nullInt64(w.DeptBelongID), now, now,
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("creating whitelist entry: %w", err)
	}
	w.CreatedAt = now
	w.UpdatedAt = now
	return nil
}

// Get retrieves a whitelist entry by ID.
func (s *WhitelistStore) Get(ctx context.Context, id int64) (*WhitelistEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+whitelistColumns+" FROM api_whitelist WHERE id = $1 AND is_deleted = FALSE", id)
	w, err := scanWhitelist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting whitelist entry %d: %w", id, err)
	}
	return w, nil
}

// Update rewrites a whitelist entry.
func (s *WhitelistStore) Update(ctx context.Context, w *WhitelistEntry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_whitelist
		SET url = $1, method = $2, enable_datasource = $3, description = $4,
			modifier = $5, update_datetime = $6
		WHERE id = $7 AND is_deleted = FALSE`,
		w.URL, w.Method, w.EnableDatasource, w.Description, w.Modifier, time.Now(), w.ID,
	)
	if err != nil {
		return fmt.Errorf("updating whitelist entry %d: %w", w.ID, err)
	}
	return requireRowAffected(res)
}

// Delete soft-deletes by default; hard=true removes the row.
func (s *WhitelistStore) Delete(ctx context.Context, id int64, hard bool) error {
	var res sql.Result
	var err error
	if hard {
		res, err = s.db.ExecContext(ctx, "DELETE FROM api_whitelist WHERE id = $1", id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE api_whitelist SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("deleting whitelist entry %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// List returns whitelist entries under opts ordered by id.
func (s *WhitelistStore) List(ctx context.Context, opts ListOptions) ([]*WhitelistEntry, int, error) {
	whereClause, args := buildWhere(opts, nil, nil)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM api_whitelist"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting whitelist entries: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+whitelistColumns+" FROM api_whitelist"+whereClause+" ORDER BY id"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing whitelist entries: %w", err)
	}
	defer rows.Close()

	var entries []*WhitelistEntry
	for rows.Next() {
		w, err := scanWhitelist(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning whitelist entry: %w", err)
		}
		entries = append(entries, w)
	}
	return entries, total, rows.Err()
}

// All returns every live whitelist entry ordered by id. The gate consults
// this on each request (through its cache).
func (s *WhitelistStore) All(ctx context.Context) ([]*WhitelistEntry, error) {
	entries, _, err := s.List(ctx, ListOptions{})
	return entries, err
}
