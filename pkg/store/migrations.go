package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// attributionColumns is shared by every domain table.
const attributionColumns = `
	description TEXT NOT NULL DEFAULT '',
	creator BIGINT,
	modifier VARCHAR(255) NOT NULL DEFAULT '',
	dept_belong_id BIGINT,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	create_datetime TIMESTAMP NOT NULL DEFAULT NOW(),
	update_datetime TIMESTAMP NOT NULL DEFAULT NOW()
`

// GetMigrations returns all schema migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create departments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS departments (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					key VARCHAR(255) NOT NULL DEFAULT '',
					sort INT NOT NULL DEFAULT 1,
					owner VARCHAR(255) NOT NULL DEFAULT '',
					phone VARCHAR(64) NOT NULL DEFAULT '',
					email VARCHAR(255) NOT NULL DEFAULT '',
					status BOOLEAN NOT NULL DEFAULT TRUE,
					parent_id BIGINT REFERENCES departments(id) ON DELETE SET NULL,
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_departments_parent_id ON departments(parent_id);
			`,
		},
		{
			Version:     2,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(150) NOT NULL UNIQUE,
					password VARCHAR(255) NOT NULL,
					name VARCHAR(150) NOT NULL DEFAULT '',
					email VARCHAR(255) NOT NULL DEFAULT '',
					mobile VARCHAR(64) NOT NULL DEFAULT '',
					avatar TEXT NOT NULL DEFAULT '',
					gender INT NOT NULL DEFAULT 0,
					user_type INT NOT NULL DEFAULT 0,
					is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					dept_id BIGINT REFERENCES departments(id) ON DELETE SET NULL,
					last_login_at TIMESTAMP,
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_users_dept_id ON users(dept_id);
				CREATE INDEX IF NOT EXISTS idx_users_dept_belong_id ON users(dept_belong_id);
			`,
		},
		{
			Version:     3,
			Description: "Create roles and grant tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					key VARCHAR(255) NOT NULL UNIQUE,
					sort INT NOT NULL DEFAULT 1,
					status BOOLEAN NOT NULL DEFAULT TRUE,
					admin BOOLEAN NOT NULL DEFAULT FALSE,
					data_range INT NOT NULL DEFAULT 0,
					remark TEXT NOT NULL DEFAULT '',
					` + attributionColumns + `
				);

				CREATE TABLE IF NOT EXISTS user_roles (
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					PRIMARY KEY (user_id, role_id)
				);

				CREATE TABLE IF NOT EXISTS role_depts (
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					dept_id BIGINT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, dept_id)
				);
			`,
		},
		{
			Version:     4,
			Description: "Create menus and menu buttons",
			SQL: `
				CREATE TABLE IF NOT EXISTS menus (
					id BIGSERIAL PRIMARY KEY,
					parent_id BIGINT REFERENCES menus(id) ON DELETE SET NULL,
					icon VARCHAR(255) NOT NULL DEFAULT '',
					name VARCHAR(255) NOT NULL,
					sort INT NOT NULL DEFAULT 1,
					is_link BOOLEAN NOT NULL DEFAULT FALSE,
					is_catalog BOOLEAN NOT NULL DEFAULT FALSE,
					web_path VARCHAR(255) NOT NULL DEFAULT '',
					component VARCHAR(255) NOT NULL DEFAULT '',
					component_name VARCHAR(255) NOT NULL DEFAULT '',
					status BOOLEAN NOT NULL DEFAULT TRUE,
					visible BOOLEAN NOT NULL DEFAULT TRUE,
					cache BOOLEAN NOT NULL DEFAULT FALSE,
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_menus_parent_id ON menus(parent_id);

				CREATE TABLE IF NOT EXISTS menu_buttons (
					id BIGSERIAL PRIMARY KEY,
					menu_id BIGINT NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					value VARCHAR(255) NOT NULL UNIQUE,
					api VARCHAR(255) NOT NULL DEFAULT '',
					method VARCHAR(16) NOT NULL DEFAULT 'GET',
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_menu_buttons_menu_id ON menu_buttons(menu_id);

				CREATE TABLE IF NOT EXISTS role_menus (
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					menu_id BIGINT NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, menu_id)
				);

				CREATE TABLE IF NOT EXISTS role_menu_buttons (
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					button_id BIGINT NOT NULL REFERENCES menu_buttons(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, button_id)
				);
			`,
		},
		{
			Version:     5,
			Description: "Create api whitelist",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_whitelist (
					id BIGSERIAL PRIMARY KEY,
					url VARCHAR(255) NOT NULL,
					method VARCHAR(16) NOT NULL DEFAULT 'GET',
					enable_datasource BOOLEAN NOT NULL DEFAULT TRUE,
					` + attributionColumns + `,
					UNIQUE (url, method)
				);
			`,
		},
		{
			Version:     6,
			Description: "Create dictionaries and system configs",
			SQL: `
				CREATE TABLE IF NOT EXISTS dictionaries (
					id BIGSERIAL PRIMARY KEY,
					label VARCHAR(255) NOT NULL,
					value VARCHAR(255) NOT NULL,
					parent_id BIGINT REFERENCES dictionaries(id) ON DELETE CASCADE,
					status BOOLEAN NOT NULL DEFAULT TRUE,
					sort INT NOT NULL DEFAULT 1,
					color VARCHAR(32) NOT NULL DEFAULT '',
					remark TEXT NOT NULL DEFAULT '',
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_dictionaries_parent_id ON dictionaries(parent_id);

				CREATE TABLE IF NOT EXISTS system_configs (
					id BIGSERIAL PRIMARY KEY,
					parent_id BIGINT REFERENCES system_configs(id) ON DELETE CASCADE,
					title VARCHAR(255) NOT NULL,
					key VARCHAR(255) NOT NULL,
					value TEXT NOT NULL DEFAULT '',
					sort INT NOT NULL DEFAULT 1,
					status BOOLEAN NOT NULL DEFAULT TRUE,
					form_item_type INT NOT NULL DEFAULT 0,
					` + attributionColumns + `,
					UNIQUE (parent_id, key)
				);
			`,
		},
		{
			Version:     7,
			Description: "Create file records",
			SQL: `
				CREATE TABLE IF NOT EXISTS file_records (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					url VARCHAR(512) NOT NULL,
					md5sum VARCHAR(64) NOT NULL,
					size BIGINT NOT NULL DEFAULT 0,
					mime_type VARCHAR(255) NOT NULL DEFAULT '',
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_file_records_md5sum ON file_records(md5sum);
			`,
		},
		{
			Version:     8,
			Description: "Create audit log tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS login_logs (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(150) NOT NULL,
					ip VARCHAR(45) NOT NULL DEFAULT '',
					agent TEXT NOT NULL DEFAULT '',
					browser VARCHAR(255) NOT NULL DEFAULT '',
					os VARCHAR(255) NOT NULL DEFAULT '',
					status BOOLEAN NOT NULL DEFAULT TRUE,
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_login_logs_username ON login_logs(username);
				CREATE INDEX IF NOT EXISTS idx_login_logs_create_datetime ON login_logs(create_datetime);

				CREATE TABLE IF NOT EXISTS operation_logs (
					id BIGSERIAL PRIMARY KEY,
					request_modular VARCHAR(255) NOT NULL DEFAULT '',
					request_path TEXT NOT NULL DEFAULT '',
					request_body TEXT NOT NULL DEFAULT '',
					request_method VARCHAR(16) NOT NULL DEFAULT '',
					request_msg TEXT NOT NULL DEFAULT '',
					request_ip VARCHAR(45) NOT NULL DEFAULT '',
					request_browser VARCHAR(255) NOT NULL DEFAULT '',
					request_os VARCHAR(255) NOT NULL DEFAULT '',
					response_code INT NOT NULL DEFAULT 0,
					json_result TEXT NOT NULL DEFAULT '',
					status BOOLEAN NOT NULL DEFAULT TRUE,
					` + attributionColumns + `
				);

				CREATE INDEX IF NOT EXISTS idx_operation_logs_create_datetime ON operation_logs(create_datetime);
			`,
		},
		{
			Version:     9,
			Description: "Seed login whitelist",
			SQL: `
				INSERT INTO api_whitelist (url, method, enable_datasource)
				VALUES
					('/api/login/', 'POST', TRUE),
					('/api/token/refresh/', 'POST', TRUE),
					('/api/captcha/', 'GET', TRUE)
				ON CONFLICT (url, method) DO NOTHING;
			`,
		},
	}
}

// RunMigrations applies pending migrations inside transactions, tracking
// them in the schema_migrations table.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("querying applied migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("scanning migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
