package postgres

// schema is applied by Store.Start (NewStore does not touch the database). It mirrors the teacher's
// migration-free "apply DDL on boot" style for a single scheduler table:
// the job is a self-describing record keyed by id (spec.md §6), indexed on
// next_run_time so the range query backing GetDueJobs never does a full
// table scan, and the index update rides in the same UPDATE as the job row
// so it can never go stale relative to it.
const schema = `
CREATE TABLE IF NOT EXISTS scheduler_jobs (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL DEFAULT '',
	next_run_time       TIMESTAMPTZ,
	trigger_spec        JSONB NOT NULL,
	registry_name       TEXT NOT NULL,
	args                JSONB NOT NULL DEFAULT '{}',
	misfire_grace_secs  INTEGER,
	coalesce_misses     BOOLEAN NOT NULL DEFAULT true,
	max_instances       INTEGER NOT NULL DEFAULT 1,
	executor_name       TEXT NOT NULL DEFAULT 'default',
	store_name          TEXT NOT NULL DEFAULT 'default',
	alert_on_error      BOOLEAN NOT NULL DEFAULT false,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS scheduler_jobs_next_run_time_idx
	ON scheduler_jobs (next_run_time ASC NULLS LAST, id ASC);
`
