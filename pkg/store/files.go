package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FileStore persists uploaded file records.
type FileStore struct {
	db *sql.DB
}

// NewFileStore creates a file store.
func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{db: db}
}

const fileColumns = `id, name, url, md5sum, size, mime_type,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanFileRecord(row interface{ Scan(...interface{}) error }) (*FileRecord, error) {
	var f FileRecord
	var creator, deptBelong sql.NullInt64
	err := row.Scan(
		&f.ID, &f.Name, &f.URL, &f.MD5Sum, &f.Size, &f.Mime,
		&f.Description, &creator, &f.Modifier, &deptBelong, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Creator = int64Ptr(creator)
	f.DeptBelongID = int64Ptr(deptBelong)
	return &f, nil
}

// Create inserts a file record.
func (s *FileStore) Create(ctx context.Context, f *FileRecord) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO file_records (name, url, md5sum, size, mime_type,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		f.Name, f.URL, f.MD5Sum, f.Size, f.Mime,
		f.Description, nullInt64(f.Creator), f.Modifier, nullInt64(f.DeptBelongID), now, now,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("creating file record: %w", err)
	}
	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

// Get retrieves a file record by ID.
func (s *FileStore) Get(ctx context.Context, id int64) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM file_records WHERE id = $1 AND is_deleted = FALSE", id)
	f, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting file record %d: %w", id, err)
	}
	return f, nil
}

// Delete soft-deletes by default; hard=true removes the row. The file on
// disk is left in place: other records may share the same md5 path.
func (s *FileStore) Delete(ctx context.Context, id int64, hard bool) error {
	var res sql.Result
	var err error
	if hard {
		res, err = s.db.ExecContext(ctx, "DELETE FROM file_records WHERE id = $1", id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE file_records SET is_deleted = TRUE, update_datetime = $1 WHERE id = $2 AND is_deleted = FALSE",
			time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("deleting file record %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// List returns file records under opts ordered by id descending (newest
// first). Scope filtering applies here.
func (s *FileStore) List(ctx context.Context, opts ListOptions) ([]*FileRecord, int, error) {
	whereClause, args := buildWhere(opts, nil, nil)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM file_records"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting file records: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM file_records"+whereClause+" ORDER BY id DESC"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing file records: %w", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning file record: %w", err)
		}
		files = append(files, f)
	}
	return files, total, rows.Err()
}
