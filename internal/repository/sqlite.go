package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
)

// SQLite stores results in a single SQLite database through database/sql.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening sqlite database", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, dbError("open sqlite", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	for _, stmt := range append([]string{"PRAGMA busy_timeout = 5000"}, schema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			logger.Error("failed to apply sqlite schema", "error", err)
			return nil, dbError("apply schema", err)
		}
	}
	logger.Info("sqlite database ready", "path", path)
	return &SQLite{db: db, path: path, logger: logger}, nil
}

func (s *SQLite) Close() error {
	s.logger.Info("closing sqlite database", "path", s.path)
	return s.db.Close()
}

func (s *SQLite) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.db.PingContext(ctx)
}

func (s *SQLite) location(kind, id string) string {
	return fmt.Sprintf("sqlite://%s#%s/%s", s.path, kind, id)
}

func (s *SQLite) SaveDocument(ctx context.Context, doc *pipeline.DocumentResult) (string, error) {
	payload, err := marshalDocument(doc)
	if err != nil {
		return "", err
	}
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_path, is_scanned, processing_method, page_count, total_characters,
			total_words, average_confidence, engine, language, preset, duration_ms, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source_path = excluded.source_path, is_scanned = excluded.is_scanned,
			processing_method = excluded.processing_method, page_count = excluded.page_count,
			total_characters = excluded.total_characters, total_words = excluded.total_words,
			average_confidence = excluded.average_confidence, engine = excluded.engine,
			language = excluded.language, preset = excluded.preset,
			duration_ms = excluded.duration_ms, payload = excluded.payload`,
		doc.ID, doc.SourcePath, doc.IsScanned, doc.ProcessingMethod, doc.PageCount, doc.TotalCharacters,
		doc.TotalWords, doc.AverageConfidence, doc.Engine, doc.Language, doc.Preset,
		doc.Duration.Milliseconds(), created, string(payload))
	if err != nil {
		s.logger.Error("save document failed", "document_id", doc.ID, "error", err)
		return "", dbError("save document", err)
	}
	s.logger.Info("document saved", "document_id", doc.ID, "pages", doc.PageCount)
	return s.location("documents", doc.ID), nil
}

func (s *SQLite) SaveBatch(ctx context.Context, batch *pipeline.BatchResult) ([]string, error) {
	ids, err := documentIDs(batch)
	if err != nil {
		return nil, err
	}
	idsJSON, _ := json.Marshal(ids)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("begin batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	locations := make([]string, 0, len(batch.Documents)+1)
	for _, d := range batch.Documents {
		payload, err := marshalDocument(d)
		if err != nil {
			return nil, err
		}
		created := d.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO documents (id, source_path, is_scanned, processing_method, page_count,
				total_characters, total_words, average_confidence, engine, language, preset, duration_ms,
				created_at, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.SourcePath, d.IsScanned, d.ProcessingMethod, d.PageCount, d.TotalCharacters,
			d.TotalWords, d.AverageConfidence, d.Engine, d.Language, d.Preset,
			d.Duration.Milliseconds(), created, string(payload)); err != nil {
			return nil, dbError("save batch document", err)
		}
		locations = append(locations, s.location("documents", d.ID))
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO batches (id, batch_size, total_pages, total_characters, average_confidence,
			merged, document_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.BatchSize, batch.TotalPages, batch.TotalCharacters, batch.AverageConfidence,
		batch.Merged, string(idsJSON), time.Now().UTC()); err != nil {
		return nil, dbError("save batch", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbError("commit batch", err)
	}
	locations = append(locations, s.location("batches", batch.ID))
	s.logger.Info("batch saved", "batch_id", batch.ID, "documents", len(ids))
	return locations, nil
}

func (s *SQLite) GetDocument(ctx context.Context, id string) (*pipeline.DocumentResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("document", id)
	}
	if err != nil {
		return nil, dbError("get document", err)
	}
	return unmarshalDocument(id, []byte(payload))
}

func (s *SQLite) ListDocuments(ctx context.Context, limit int) ([]DocumentSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_path, is_scanned, processing_method, page_count, total_characters, total_words,
			average_confidence, engine, language, preset, created_at
		FROM documents ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, dbError("list documents", err)
	}
	defer rows.Close()
	var out []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		if err := rows.Scan(&d.ID, &d.SourcePath, &d.IsScanned, &d.ProcessingMethod, &d.PageCount,
			&d.TotalCharacters, &d.TotalWords, &d.AverageConfidence, &d.Engine, &d.Language, &d.Preset,
			&d.CreatedAt); err != nil {
			return nil, dbError("scan document", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list documents", err)
	}
	return out, nil
}

func (s *SQLite) StartJob(ctx context.Context, sourcePath string) (*Job, error) {
	job := &Job{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		Status:     constants.JobStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, source_path, status, started_at) VALUES (?, ?, ?, ?)`,
		job.ID, job.SourcePath, string(job.Status), job.StartedAt); err != nil {
		s.logger.Error("job start failed", "path", sourcePath, "error", err)
		return nil, dbError("start job", err)
	}
	s.logger.Info("job started", "job_id", job.ID, "path", sourcePath)
	return job, nil
}

func (s *SQLite) FinishJob(ctx context.Context, jobID, documentID string) error {
	return s.finish(ctx, jobID, constants.JobStatusDone, documentID, "")
}

func (s *SQLite) FailJob(ctx context.Context, jobID, message string) error {
	return s.finish(ctx, jobID, constants.JobStatusFailed, "", message)
}

func (s *SQLite) finish(ctx context.Context, jobID string, status constants.JobStatus, documentID, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, document_id = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), documentID, message, time.Now().UTC(), jobID)
	if err != nil {
		return dbError("finish job", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("job", jobID)
	}
	if status == constants.JobStatusFailed {
		s.logger.Warn("job finished (FAILED)", "job_id", jobID, "error", message)
	} else {
		s.logger.Info("job finished", "job_id", jobID, "document_id", documentID)
	}
	return nil
}

func (s *SQLite) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var (
		job      Job
		status   string
		finished sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, status, document_id, error_message, started_at, finished_at FROM jobs WHERE id = ?`,
		jobID).Scan(&job.ID, &job.SourcePath, &status, &job.DocumentID, &job.ErrorMessage, &job.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("job", jobID)
	}
	if err != nil {
		return nil, dbError("get job", err)
	}
	job.Status = constants.JobStatus(status)
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}
