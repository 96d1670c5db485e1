// Package app wires configuration into the pipeline and its collaborators for the binaries.
package app

import (
	"context"
	"log/slog"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr/gosseract"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pdf"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/preprocess"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/repository"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/runner"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/storage"
)

type App struct {
	Config       *common.Config
	Logger       *slog.Logger
	Runner       runner.Runner
	Files        *storage.FileStore
	Source       *pdf.Poppler
	Registry     *ocr.Registry
	Preprocessor *preprocess.Processor
	Orchestrator *pipeline.Orchestrator
}

// New builds the pipeline from cfg. A nil runner means real subprocesses.
func New(cfg *common.Config, r runner.Runner, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = runner.NewExec(logger)
	}

	files := storage.NewFileStore(storage.Config{
		WorkDir:       cfg.Storage.WorkDir,
		HeicConverter: cfg.Storage.HeicConverter,
	}, r, logger)
	source := pdf.NewPoppler(pdf.Config{
		Pdfinfo:     cfg.PDF.Pdfinfo,
		Pdftotext:   cfg.PDF.Pdftotext,
		Pdftoppm:    cfg.PDF.Pdftoppm,
		Pdfunite:    cfg.PDF.Pdfunite,
		Pdfseparate: cfg.PDF.Pdfseparate,
		WorkDir:     cfg.Storage.WorkDir,
	}, r, logger)

	reg := ocr.NewRegistry(ocr.EngineConfig{
		Language:    cfg.OCR.Language,
		Binary:      cfg.OCR.Tesseract,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		Runner:      r,
		Logger:      logger,
	})
	gosseract.Register(reg)

	pre := preprocess.NewProcessor(preprocess.ConfigFrom(cfg.Preprocess), files, logger)
	orch, err := pipeline.NewOrchestrator(pipeline.OptionsFromConfig(cfg), pipeline.Deps{
		Source:       source,
		Registry:     reg,
		Preprocessor: pre,
		Images:       files,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return &App{
		Config:       cfg,
		Logger:       logger,
		Runner:       r,
		Files:        files,
		Source:       source,
		Registry:     reg,
		Preprocessor: pre,
		Orchestrator: orch,
	}, nil
}

// OpenResults opens the configured database. When an object store is configured the
// returned repository also archives every result there; close releases everything.
func (a *App) OpenResults(ctx context.Context) (repository.ResultRepository, repository.Store, error) {
	store, err := repository.Open(ctx, a.Config.Database, a.Logger)
	if err != nil {
		return nil, nil, err
	}
	if a.Config.ObjectStore.Endpoint == "" {
		return store, store, nil
	}
	sink, err := storage.NewObjectSink(storage.ObjectConfig{
		Endpoint:  a.Config.ObjectStore.Endpoint,
		AccessKey: a.Config.ObjectStore.AccessKey,
		SecretKey: a.Config.ObjectStore.SecretKey,
		Bucket:    a.Config.ObjectStore.Bucket,
		Region:    a.Config.ObjectStore.Region,
		UseSSL:    a.Config.ObjectStore.UseSSL,
	}, a.Logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if err := sink.EnsureBucket(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return repository.NewArchive(store, sink, "results", a.Logger), store, nil
}
