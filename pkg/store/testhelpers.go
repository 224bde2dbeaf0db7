package store

// TestSchema is a sqlite-compatible rendition of the postgres schema, used
// by package tests against an in-memory database. Kept in sync with
// GetMigrations by hand; column names and order must match the queries.
const TestSchema = `
	CREATE TABLE departments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		key TEXT NOT NULL DEFAULT '',
		sort INTEGER NOT NULL DEFAULT 1,
		owner TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		status BOOLEAN NOT NULL DEFAULT TRUE,
		parent_id INTEGER,
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		gender INTEGER NOT NULL DEFAULT 0,
		user_type INTEGER NOT NULL DEFAULT 0,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		dept_id INTEGER,
		last_login_at TIMESTAMP,
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE roles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		key TEXT NOT NULL UNIQUE,
		sort INTEGER NOT NULL DEFAULT 1,
		status BOOLEAN NOT NULL DEFAULT TRUE,
		admin BOOLEAN NOT NULL DEFAULT FALSE,
		data_range INTEGER NOT NULL DEFAULT 0,
		remark TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE user_roles (
		user_id INTEGER NOT NULL,
		role_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, role_id)
	);

	CREATE TABLE role_depts (
		role_id INTEGER NOT NULL,
		dept_id INTEGER NOT NULL,
		PRIMARY KEY (role_id, dept_id)
	);

	CREATE TABLE menus (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER,
		icon TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		sort INTEGER NOT NULL DEFAULT 1,
		is_link BOOLEAN NOT NULL DEFAULT FALSE,
		is_catalog BOOLEAN NOT NULL DEFAULT FALSE,
		web_path TEXT NOT NULL DEFAULT '',
		component TEXT NOT NULL DEFAULT '',
		component_name TEXT NOT NULL DEFAULT '',
		status BOOLEAN NOT NULL DEFAULT TRUE,
		visible BOOLEAN NOT NULL DEFAULT TRUE,
		cache BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE menu_buttons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		menu_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL UNIQUE,
		api TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT 'GET',
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE role_menus (
		role_id INTEGER NOT NULL,
		menu_id INTEGER NOT NULL,
		PRIMARY KEY (role_id, menu_id)
	);

	CREATE TABLE role_menu_buttons (
		role_id INTEGER NOT NULL,
		button_id INTEGER NOT NULL,
		PRIMARY KEY (role_id, button_id)
	);

	CREATE TABLE api_whitelist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT 'GET',
		enable_datasource BOOLEAN NOT NULL DEFAULT TRUE,
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (url, method)
	);

	CREATE TABLE dictionaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		value TEXT NOT NULL,
		parent_id INTEGER,
		status BOOLEAN NOT NULL DEFAULT TRUE,
		sort INTEGER NOT NULL DEFAULT 1,
		color TEXT NOT NULL DEFAULT '',
		remark TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE system_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER,
		title TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		sort INTEGER NOT NULL DEFAULT 1,
		status BOOLEAN NOT NULL DEFAULT TRUE,
		form_item_type INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (parent_id, key)
	);

	CREATE TABLE file_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		md5sum TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		mime_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE login_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		ip TEXT NOT NULL DEFAULT '',
		agent TEXT NOT NULL DEFAULT '',
		browser TEXT NOT NULL DEFAULT '',
		os TEXT NOT NULL DEFAULT '',
		status BOOLEAN NOT NULL DEFAULT TRUE,
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE operation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_modular TEXT NOT NULL DEFAULT '',
		request_path TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		request_method TEXT NOT NULL DEFAULT '',
		request_msg TEXT NOT NULL DEFAULT '',
		request_ip TEXT NOT NULL DEFAULT '',
		request_browser TEXT NOT NULL DEFAULT '',
		request_os TEXT NOT NULL DEFAULT '',
		response_code INTEGER NOT NULL DEFAULT 0,
		json_result TEXT NOT NULL DEFAULT '',
		status BOOLEAN NOT NULL DEFAULT TRUE,
		description TEXT NOT NULL DEFAULT '',
		creator INTEGER,
		modifier TEXT NOT NULL DEFAULT '',
		dept_belong_id INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		create_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		update_datetime TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`
