package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/async"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"b.pdf", "a.PNG", "notes.txt", "sub/c.tiff", ".hidden/d.pdf", ".e.jpg"} {
		touch(t, filepath.Join(root, p))
	}

	paths, stats, err := ScanDirectory(context.Background(), root, nil, true)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{filepath.Join(root, "a.PNG"), filepath.Join(root, "b.pdf"), filepath.Join(root, "sub", "c.tiff")}
	if !reflect.DeepEqual(paths, want) || stats.Matched != 3 {
		t.Fatalf("paths = %v stats = %+v", paths, stats)
	}

	paths, _, _ = ScanDirectory(context.Background(), root, []string{".PDF"}, false)
	if len(paths) != 2 {
		t.Fatalf("pdf only = %v", paths)
	}
	if _, _, err := ScanDirectory(context.Background(), " ", nil, false); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestWatcherInitialScanAndDebounce(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    50 * time.Millisecond,
		Logger:      quiet,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for event")
		}
		return ""
	}
	if got := next(); got != filepath.Join(root, "existing.pdf") {
		t.Fatalf("initial = %q", got)
	}

	target := filepath.Join(root, "scan.png")
	for i := 0; i < 5; i++ {
		touch(t, target)
	}
	touch(t, filepath.Join(root, "ignored.txt"))
	if got := next(); got != target {
		t.Fatalf("event = %q", got)
	}
	select {
	case p := <-events:
		t.Fatalf("burst not coalesced, extra event %q", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range events {
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{Logger: quiet}); err == nil {
		t.Fatalf("expected error")
	}
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (r *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	if job.Path == "reject.pdf" {
		return async.ErrQueueClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingQueue) Shutdown(context.Context) error { return nil }

func TestFeed(t *testing.T) {
	paths := make(chan string, 3)
	paths <- "a.pdf"
	paths <- "reject.pdf"
	paths <- "b.png"
	close(paths)

	q := &recordingQueue{}
	n := Feed(context.Background(), paths, q, pipeline.DocumentOptions{Preset: "form"}, quiet)
	if n != 2 || len(q.jobs) != 2 || q.jobs[1].Options.Preset != "form" {
		t.Fatalf("n = %d jobs = %+v", n, q.jobs)
	}
	if !errors.Is(q.Enqueue(context.Background(), async.Job{Path: "reject.pdf"}), async.ErrQueueClosed) {
		t.Fatalf("fake queue misbehaves")
	}
}
