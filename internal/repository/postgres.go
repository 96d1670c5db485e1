package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
)

// Postgres stores results through a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool from cfg and applies the schema.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, dbError("parse dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "dococr"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, dbError("connect", err)
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(dialCtx, stmt); err != nil {
			pool.Close()
			logger.Error("failed to apply schema", "error", err)
			return nil, dbError("apply schema", err)
		}
	}

	logger.Info("successfully connected to database")
	return &Postgres{pool: pool, logger: logger}, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.logger.Info("closing database connections")
	p.pool.Close()
	p.logger.Info("database connections closed")
	return nil
}

// HealthCheck pings the pool to catch DSN issues early.
func (p *Postgres) HealthCheck(ctx context.Context, timeout time.Duration) error {
	p.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := p.pool.Ping(ctx); err != nil {
		return dbError("ping", err)
	}
	p.logger.Debug("database ping successful")
	return nil
}

const upsertDocumentPG = `
	INSERT INTO documents (id, source_path, is_scanned, processing_method, page_count, total_characters,
		total_words, average_confidence, engine, language, preset, duration_ms, created_at, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		source_path = EXCLUDED.source_path, is_scanned = EXCLUDED.is_scanned,
		processing_method = EXCLUDED.processing_method, page_count = EXCLUDED.page_count,
		total_characters = EXCLUDED.total_characters, total_words = EXCLUDED.total_words,
		average_confidence = EXCLUDED.average_confidence, engine = EXCLUDED.engine,
		language = EXCLUDED.language, preset = EXCLUDED.preset,
		duration_ms = EXCLUDED.duration_ms, payload = EXCLUDED.payload`

func documentArgs(doc *pipeline.DocumentResult, payload []byte) []any {
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []any{doc.ID, doc.SourcePath, doc.IsScanned, doc.ProcessingMethod, doc.PageCount, doc.TotalCharacters,
		doc.TotalWords, doc.AverageConfidence, doc.Engine, doc.Language, doc.Preset,
		doc.Duration.Milliseconds(), created, string(payload)}
}

func (p *Postgres) SaveDocument(ctx context.Context, doc *pipeline.DocumentResult) (string, error) {
	payload, err := marshalDocument(doc)
	if err != nil {
		return "", err
	}
	if _, err := p.pool.Exec(ctx, upsertDocumentPG, documentArgs(doc, payload)...); err != nil {
		p.logger.Error("save document failed", "document_id", doc.ID, "error", err)
		return "", dbError("save document", err)
	}
	p.logger.Info("document saved", "document_id", doc.ID, "pages", doc.PageCount)
	return "postgres://documents/" + doc.ID, nil
}

func (p *Postgres) SaveBatch(ctx context.Context, batch *pipeline.BatchResult) ([]string, error) {
	ids, err := documentIDs(batch)
	if err != nil {
		return nil, err
	}
	idsJSON, _ := json.Marshal(ids)

	var locations []string
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, d := range batch.Documents {
			payload, err := marshalDocument(d)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, upsertDocumentPG, documentArgs(d, payload)...); err != nil {
				return dbError("save batch document", err)
			}
			locations = append(locations, "postgres://documents/"+d.ID)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO batches (id, batch_size, total_pages, total_characters, average_confidence, merged,
				document_ids, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			batch.ID, batch.BatchSize, batch.TotalPages, batch.TotalCharacters, batch.AverageConfidence,
			batch.Merged, string(idsJSON), time.Now().UTC())
		if err != nil {
			return dbError("save batch", err)
		}
		return nil
	})
	if err != nil {
		p.logger.Error("save batch failed", "batch_id", batch.ID, "error", err)
		return nil, err
	}
	locations = append(locations, "postgres://batches/"+batch.ID)
	p.logger.Info("batch saved", "batch_id", batch.ID, "documents", len(ids))
	return locations, nil
}

func (p *Postgres) GetDocument(ctx context.Context, id string) (*pipeline.DocumentResult, error) {
	var payload string
	err := p.pool.QueryRow(ctx, `SELECT payload FROM documents WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("document", id)
	}
	if err != nil {
		return nil, dbError("get document", err)
	}
	return unmarshalDocument(id, []byte(payload))
}

func (p *Postgres) ListDocuments(ctx context.Context, limit int) ([]DocumentSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, source_path, is_scanned, processing_method, page_count, total_characters, total_words,
			average_confidence, engine, language, preset, created_at
		FROM documents ORDER BY created_at DESC, id LIMIT $1`, limit)
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

func (p *Postgres) StartJob(ctx context.Context, sourcePath string) (*Job, error) {
	job := &Job{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		Status:     constants.JobStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO jobs (id, source_path, status, started_at) VALUES ($1, $2, $3, $4)`,
		job.ID, job.SourcePath, string(job.Status), job.StartedAt); err != nil {
		p.logger.Error("job start failed", "path", sourcePath, "error", err)
		return nil, dbError("start job", err)
	}
	p.logger.Info("job started", "job_id", job.ID, "path", sourcePath)
	return job, nil
}

func (p *Postgres) FinishJob(ctx context.Context, jobID, documentID string) error {
	return p.finish(ctx, jobID, constants.JobStatusDone, documentID, "")
}

func (p *Postgres) FailJob(ctx context.Context, jobID, message string) error {
	return p.finish(ctx, jobID, constants.JobStatusFailed, "", message)
}

func (p *Postgres) finish(ctx context.Context, jobID string, status constants.JobStatus, documentID, message string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, document_id = $2, error_message = $3, finished_at = $4 WHERE id = $5`,
		string(status), documentID, message, time.Now().UTC(), jobID)
	if err != nil {
		return dbError("finish job", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("job", jobID)
	}
	if status == constants.JobStatusFailed {
		p.logger.Warn("job finished (FAILED)", "job_id", jobID, "error", message)
	} else {
		p.logger.Info("job finished", "job_id", jobID, "document_id", documentID)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var (
		job    Job
		status string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, source_path, status, document_id, error_message, started_at, finished_at FROM jobs WHERE id = $1`,
		jobID).Scan(&job.ID, &job.SourcePath, &status, &job.DocumentID, &job.ErrorMessage, &job.StartedAt, &job.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("job", jobID)
	}
	if err != nil {
		return nil, dbError("get job", err)
	}
	job.Status = constants.JobStatus(status)
	return &job, nil
}
