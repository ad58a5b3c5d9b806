package storage

const schemaVersion = 1

const schema = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE monitor_groups (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	description   TEXT NOT NULL DEFAULT '',
	color         TEXT NOT NULL DEFAULT '',
	display_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE monitors (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	type                TEXT NOT NULL,
	active              INTEGER NOT NULL DEFAULT 1,
	interval_secs       INTEGER NOT NULL DEFAULT 60,
	timeout_secs        INTEGER NOT NULL DEFAULT 10,
	retries             INTEGER NOT NULL DEFAULT 0,
	retry_interval_secs INTEGER NOT NULL DEFAULT 60,
	resend_interval     INTEGER NOT NULL DEFAULT 0,
	upside_down         INTEGER NOT NULL DEFAULT 0,
	settings            TEXT NOT NULL DEFAULT '{}',
	group_id            TEXT REFERENCES monitor_groups(id) ON DELETE SET NULL,
	description         TEXT NOT NULL DEFAULT '',
	last_check_at       TEXT,
	last_status         INTEGER,
	last_message        TEXT NOT NULL DEFAULT '',
	last_ping           INTEGER,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);

CREATE TABLE monitor_statuses (
	id         TEXT PRIMARY KEY,
	monitor_id TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
	status     INTEGER NOT NULL,
	message    TEXT,
	ping       INTEGER,
	details    TEXT,
	timestamp  TEXT NOT NULL
);

CREATE INDEX idx_statuses_monitor_time ON monitor_statuses(monitor_id, timestamp);
CREATE INDEX idx_statuses_monitor_status_time ON monitor_statuses(monitor_id, status, timestamp);
CREATE INDEX idx_statuses_time ON monitor_statuses(timestamp);

CREATE TABLE notification_channels (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	enabled    INTEGER NOT NULL DEFAULT 1,
	settings   TEXT NOT NULL DEFAULT '{}',
	is_default INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE notification_bindings (
	monitor_id TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
	channel_id TEXT NOT NULL REFERENCES notification_channels(id) ON DELETE CASCADE,
	enabled    INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (monitor_id, channel_id)
);

CREATE TABLE status_pages (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE TABLE status_page_monitors (
	page_id      TEXT NOT NULL REFERENCES status_pages(id) ON DELETE CASCADE,
	monitor_id   TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
	display_name TEXT NOT NULL DEFAULT '',
	sort_order   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (page_id, monitor_id)
);
`

type migration struct {
	version int
	sql     string
}

// migrations are applied in order on top of the base schema. The base
// schema always creates the latest layout; entries here only matter for
// databases created by older builds.
var migrations = []migration{}
