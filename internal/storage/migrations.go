package storage

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. The SQL is kept to
// the subset shared by SQLite and PostgreSQL: dates are YYYY-MM-DD text and
// booleans are 0/1 integers.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS planning_tasks (
	id                  TEXT PRIMARY KEY,
	project_id          TEXT NOT NULL,
	name                TEXT NOT NULL,
	description         TEXT,
	task_type           TEXT NOT NULL DEFAULT 'task',
	phase               TEXT,
	cfc_line_id         TEXT,
	start_date          TEXT NOT NULL,
	end_date            TEXT NOT NULL,
	actual_start_date   TEXT,
	actual_end_date     TEXT,
	progress            INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'not_started',
	responsible_user_id TEXT,
	parent_task_id      TEXT,
	priority            TEXT NOT NULL DEFAULT 'medium',
	created_at          TIMESTAMP NOT NULL,
	updated_at          TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS planning_alerts (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	task_id     TEXT,
	alert_type  TEXT NOT NULL,
	severity    TEXT NOT NULL,
	message     TEXT NOT NULL,
	resolved    INTEGER NOT NULL DEFAULT 0,
	resolved_at TIMESTAMP,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_planning_tasks_project ON planning_tasks(project_id, start_date);
CREATE INDEX IF NOT EXISTS idx_planning_alerts_project ON planning_alerts(project_id, resolved);
CREATE UNIQUE INDEX IF NOT EXISTS idx_planning_alerts_open_key
	ON planning_alerts(project_id, COALESCE(task_id, ''), alert_type) WHERE resolved = 0;

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS site_diary_entries (
	id                TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	entry_date        TEXT NOT NULL,
	weather           TEXT,
	notes             TEXT,
	workforce         TEXT NOT NULL DEFAULT '[]',
	issues            TEXT NOT NULL DEFAULT '[]',
	planning_phase_id TEXT,
	created_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_site_diary_project ON site_diary_entries(project_id, entry_date);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
