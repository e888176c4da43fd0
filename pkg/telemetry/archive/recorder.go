package archive

import (
	"context"
	"log/slog"
	"time"

	"github.com/wilhg/ghostd/pkg/snippet"
)

// Recorder adapts a Store to the snippet finalization callback. Writes are
// best effort: a failure is logged and the snippet is dropped from the
// archive, never retried.
type Recorder struct {
	store   *Store
	logger  *slog.Logger
	timeout time.Duration
}

// NewRecorder wraps store. logger may be nil.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, timeout: 5 * time.Second}
}

// SnippetFinalized persists one finalized snippet.
func (r *Recorder) SnippetFinalized(uri, _ string, rec snippet.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.AppendFinalized(ctx, uri, rec); err != nil {
		r.logger.Error("archive write failed", "snippet_id", rec.ID, "uri", uri, "error", err)
	}
}
