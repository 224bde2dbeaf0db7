package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LoginLogStore persists authentication attempt records.
type LoginLogStore struct {
	db *sql.DB
}

// NewLoginLogStore creates a login log store.
func NewLoginLogStore(db *sql.DB) *LoginLogStore {
	return &LoginLogStore{db: db}
}

const loginLogColumns = `id, username, ip, agent, browser, os, status,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanLoginLog(row interface{ Scan(...interface{}) error }) (*LoginLog, error) {
	var l LoginLog
	var creator, deptBelong sql.NullInt64
	err := row.Scan(
		&l.ID, &l.Username, &l.IP, &l.Agent, &l.Browser, &l.OS, &l.Status,
		&l.Description, &creator, &l.Modifier, &deptBelong, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Creator = int64Ptr(creator)
	l.DeptBelongID = int64Ptr(deptBelong)
	return &l, nil
}

// Create inserts a login log entry.
func (s *LoginLogStore) Create(ctx context.Context, l *LoginLog) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO login_logs (username, ip, agent, browser, os, status,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		l.Username, l.IP, l.Agent, l.Browser, l.OS, l.Status,
		l.Description, nullInt64(l.Creator), l.Modifier, nullInt64(l.DeptBelongID), now, now,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("creating login log: %w", err)
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

// List returns login logs under opts, newest first. An optional username
// narrows the result.
func (s *LoginLogStore) List(ctx context.Context, username string, opts ListOptions) ([]*LoginLog, int, error) {
	var conds []string
	var condArgs []interface{}
	if username != "" {
		conds = append(conds, fmt.Sprintf("username = $%d", len(condArgs)+1))
		condArgs = append(condArgs, username)
	}
	whereClause, args := buildWhere(opts, conds, condArgs)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM login_logs"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting login logs: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+loginLogColumns+" FROM login_logs"+whereClause+" ORDER BY id DESC"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing login logs: %w", err)
	}
	defer rows.Close()

	var logs []*LoginLog
	for rows.Next() {
		l, err := scanLoginLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning login log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

// PurgeBefore hard-deletes login logs created before the cutoff.
func (s *LoginLogStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM login_logs WHERE create_datetime < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging login logs: %w", err)
	}
	return res.RowsAffected()
}

// OperationLogStore persists mutating API request records.
type OperationLogStore struct {
	db *sql.DB
}

// NewOperationLogStore creates an operation log store.
func NewOperationLogStore(db *sql.DB) *OperationLogStore {
	return &OperationLogStore{db: db}
}

const operationLogColumns = `id, request_modular, request_path, request_body, request_method,
	request_msg, request_ip, request_browser, request_os, response_code, json_result, status,
	description, creator, modifier, dept_belong_id, create_datetime, update_datetime`

func scanOperationLog(row interface{ Scan(...interface{}) error }) (*OperationLog, error) {
	var o OperationLog
	var creator, deptBelong sql.NullInt64
	err := row.Scan(
		&o.ID, &o.RequestModular, &o.RequestPath, &o.RequestBody, &o.RequestMethod,
		&o.RequestMsg, &o.RequestIP, &o.RequestBrowser, &o.RequestOS, &o.ResponseCode, &o.JSONResult, &o.Status,
		&o.Description, &creator, &o.Modifier, &deptBelong, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Creator = int64Ptr(creator)
	o.DeptBelongID = int64Ptr(deptBelong)
	return &o, nil
}

// Create inserts an operation log entry.
func (s *OperationLogStore) Create(ctx context.Context, o *OperationLog) error {
	now := time.Now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO operation_logs (request_modular, request_path, request_body, request_method,
			request_msg, request_ip, request_browser, request_os, response_code, json_result, status,
			description, creator, modifier, dept_belong_id, create_datetime, update_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		o.RequestModular, o.RequestPath, o.RequestBody, o.RequestMethod,
		o.RequestMsg, o.RequestIP, o.RequestBrowser, o.RequestOS, o.ResponseCode, o.JSONResult, o.Status,
		o.Description, nullInt64(o.Creator), o.Modifier, nullInt64(o.DeptBelongID), now, now,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("creating operation log: %w", err)
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

// List returns operation logs under opts, newest first. An optional path
// substring narrows the result.
func (s *OperationLogStore) List(ctx context.Context, path string, opts ListOptions) ([]*OperationLog, int, error) {
	var conds []string
	var condArgs []interface{}
	if path != "" {
		conds = append(conds, fmt.Sprintf("request_path LIKE $%d", len(condArgs)+1))
		condArgs = append(condArgs, "%"+path+"%")
	}
	whereClause, args := buildWhere(opts, conds, condArgs)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM operation_logs"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting operation logs: %w", err)
	}

	limitClause, limitArgs := pageClause(opts, len(args)+1)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+operationLogColumns+" FROM operation_logs"+whereClause+" ORDER BY id DESC"+limitClause,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing operation logs: %w", err)
	}
	defer rows.Close()

	var logs []*OperationLog
	for rows.Next() {
		o, err := scanOperationLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning operation log: %w", err)
		}
		logs = append(logs, o)
	}
	return logs, total, rows.Err()
}

// PurgeBefore hard-deletes operation logs created before the cutoff.
func (s *OperationLogStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM operation_logs WHERE create_datetime < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging operation logs: %w", err)
	}
	return res.RowsAffected()
}
