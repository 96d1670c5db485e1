package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/storage"
)

// ObjectPutter uploads bytes under a key.
type ObjectPutter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (storage.UploadResult, error)
}

// Archive writes results to the database and uploads each document as JSON to
// an object store. Returned locations are the s3:// URIs of the uploads.
type Archive struct {
	ResultRepository
	sink   ObjectPutter
	prefix string
	logger *slog.Logger
}

func NewArchive(repo ResultRepository, sink ObjectPutter, prefix string, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "results"
	}
	return &Archive{ResultRepository: repo, sink: sink, prefix: prefix, logger: logger}
}

func (a *Archive) SaveDocument(ctx context.Context, doc *pipeline.DocumentResult) (string, error) {
	if _, err := a.ResultRepository.SaveDocument(ctx, doc); err != nil {
		return "", err
	}
	return a.upload(ctx, "documents", doc.ID, doc)
}

func (a *Archive) SaveBatch(ctx context.Context, batch *pipeline.BatchResult) ([]string, error) {
	if _, err := a.ResultRepository.SaveBatch(ctx, batch); err != nil {
		return nil, err
	}
	locations := make([]string, 0, len(batch.Documents)+1)
	for _, d := range batch.Documents {
		loc, err := a.upload(ctx, "documents", d.ID, d)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	loc, err := a.upload(ctx, "batches", batch.ID, batch)
	if err != nil {
		return nil, err
	}
	return append(locations, loc), nil
}

func (a *Archive) upload(ctx context.Context, kind, id string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", common.Internal(err, "marshal "+kind+" "+id)
	}
	res, err := a.sink.Put(ctx, storage.ResultKey(a.prefix, kind, id+".json"), data, "application/json")
	if err != nil {
		a.logger.Error("result upload failed", "kind", kind, "id", id, "error", err)
		return "", common.Internal(err, "upload "+kind+" "+id)
	}
	a.logger.Info("result uploaded", "kind", kind, "id", id, "uri", res.URI())
	return res.URI(), nil
}
