package repository

// DDL shared by both backends; types are chosen to be valid in SQLite and Postgres.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id                 TEXT PRIMARY KEY,
		source_path        TEXT NOT NULL,
		is_scanned         BOOLEAN NOT NULL,
		processing_method  TEXT NOT NULL,
		page_count         INTEGER NOT NULL,
		total_characters   INTEGER NOT NULL,
		total_words        INTEGER NOT NULL,
		average_confidence DOUBLE PRECISION NOT NULL,
		engine             TEXT NOT NULL DEFAULT '',
		language           TEXT NOT NULL DEFAULT '',
		preset             TEXT NOT NULL DEFAULT '',
		duration_ms        BIGINT NOT NULL,
		created_at         TIMESTAMP NOT NULL,
		payload            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_created_at_idx ON documents (created_at)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id                 TEXT PRIMARY KEY,
		batch_size         INTEGER NOT NULL,
		total_pages        INTEGER NOT NULL,
		total_characters   INTEGER NOT NULL,
		average_confidence DOUBLE PRECISION NOT NULL,
		merged             BOOLEAN NOT NULL,
		document_ids       TEXT NOT NULL,
		created_at         TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id            TEXT PRIMARY KEY,
		source_path   TEXT NOT NULL,
		status        TEXT NOT NULL,
		document_id   TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		started_at    TIMESTAMP NOT NULL,
		finished_at   TIMESTAMP NULL
	)`,
}
