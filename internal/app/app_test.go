package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/repository"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type nopRunner struct{}

func (nopRunner) Run(context.Context, string, ...string) ([]byte, []byte, error) {
	return nil, nil, nil
}

func TestNewWiresEngines(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Storage.WorkDir = t.TempDir()
	a, err := New(cfg, nopRunner{}, quiet)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	names := a.Registry.Names()
	if len(names) != 2 || names[0] != "gosseract" || names[1] != "tesseract" {
		t.Fatalf("engines = %v", names)
	}
	if info := a.Orchestrator.Info(); info.DefaultEngine != cfg.OCR.DefaultEngine {
		t.Fatalf("info = %+v", info)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.PDF.DPI = 10
	if _, err := New(cfg, nopRunner{}, quiet); common.KindOf(err) != common.KindValidation {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenResultsWithoutObjectStore(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Storage.WorkDir = t.TempDir()
	cfg.Database.DSN = ""
	cfg.Database.SQLitePath = ":memory:"
	cfg.ObjectStore.Endpoint = ""
	a, err := New(cfg, nopRunner{}, quiet)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	results, store, err := a.OpenResults(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if _, ok := results.(*repository.SQLite); !ok {
		t.Fatalf("results = %T", results)
	}
}
