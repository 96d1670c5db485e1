package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
)

// ResultRepository persists document and batch results and returns where they were stored.
type ResultRepository interface {
	SaveDocument(ctx context.Context, doc *pipeline.DocumentResult) (string, error)
	SaveBatch(ctx context.Context, batch *pipeline.BatchResult) ([]string, error)
	GetDocument(ctx context.Context, id string) (*pipeline.DocumentResult, error)
	ListDocuments(ctx context.Context, limit int) ([]DocumentSummary, error)
}

// JobRepository tracks documents submitted to the background queue.
type JobRepository interface {
	StartJob(ctx context.Context, sourcePath string) (*Job, error)
	FinishJob(ctx context.Context, jobID, documentID string) error
	FailJob(ctx context.Context, jobID, message string) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// Store is a database backend implementing both repositories.
type Store interface {
	ResultRepository
	JobRepository
	HealthCheck(ctx context.Context, timeout time.Duration) error
	Close() error
}

// DocumentSummary is a document row without pages or text.
type DocumentSummary struct {
	ID                string
	SourcePath        string
	IsScanned         bool
	ProcessingMethod  string
	PageCount         int
	TotalCharacters   int
	TotalWords        int
	AverageConfidence float64
	Engine            string
	Language          string
	Preset            string
	CreatedAt         time.Time
}

type Job struct {
	ID           string
	SourcePath   string
	Status       constants.JobStatus
	DocumentID   string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Open picks the backend from cfg: a postgres:// DSN selects Postgres,
// anything else opens SQLite at SQLitePath (":memory:" when empty).
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(ctx, cfg, logger)
	}
	path := cfg.SQLitePath
	if path == "" {
		path = ":memory:"
	}
	return OpenSQLite(ctx, path, logger)
}

func marshalDocument(doc *pipeline.DocumentResult) ([]byte, error) {
	if doc == nil || doc.ID == "" {
		return nil, common.NewValidationError("document result must have an id")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, common.Internal(err, "marshal document "+doc.ID)
	}
	return b, nil
}

func unmarshalDocument(id string, payload []byte) (*pipeline.DocumentResult, error) {
	var doc pipeline.DocumentResult
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", fmt.Sprintf("decode document %s", id), common.ErrDatabase)
	}
	return &doc, nil
}

func documentIDs(batch *pipeline.BatchResult) ([]string, error) {
	if batch == nil || batch.ID == "" {
		return nil, common.NewValidationError("batch result must have an id")
	}
	ids := make([]string, 0, len(batch.Documents))
	for _, d := range batch.Documents {
		if d == nil || d.ID == "" {
			return nil, common.NewValidationError("batch contains a document without id")
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func notFound(kind, id string) error {
	return &common.AppError{
		Kind:    common.KindFile,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %s not found", kind, id),
		Details: map[string]any{"id": id},
		Cause:   common.ErrNotFound,
	}
}

func dbError(op string, err error) error {
	return common.NewAppError("DATABASE_ERROR", op, fmt.Errorf("%w: %w", common.ErrDatabase, err))
}
