package ingest

import (
	"context"
	"log/slog"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/async"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
)

// Feed enqueues every path received until paths closes or ctx ends, and
// returns how many jobs were accepted.
func Feed(ctx context.Context, paths <-chan string, q async.Queue, opts pipeline.DocumentOptions, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n
		case p, ok := <-paths:
			if !ok {
				return n
			}
			if err := q.Enqueue(ctx, async.Job{Path: p, Options: opts}); err != nil {
				logger.Warn("failed to enqueue document", "path", p, "error", err)
				continue
			}
			n++
		}
	}
}
