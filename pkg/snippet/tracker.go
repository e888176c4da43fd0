package snippet

import (
	"log/slog"
	"strings"

	"github.com/wilhg/ghostd/pkg/attribution"
	"github.com/wilhg/ghostd/pkg/textdiff"
)

// FinalizedSink receives a finalized record together with the file URI and
// text that triggered finalization. Delivery is best-effort: sink failures
// never roll back or retry the tracker's state transitions.
type FinalizedSink interface {
	SnippetFinalized(uri, text string, rec Record)
}

// ChangeSink is notified of every file text change after finalization
// processing, so longer-running per-file statistics can keep following the
// file after the snippet itself is done.
type ChangeSink interface {
	FileTextChanged(uri, text string)
}

// Observer counts lifecycle outcomes, typically into process metrics.
type Observer interface {
	SnippetFinalized(remainingFraction float64)
	SnippetAbandoned()
}

// Tracker is the lifecycle orchestrator. It is the only component allowed
// to mutate store records, and it serializes every entry point on the
// store's lock. Diff work is pure CPU and runs under the lock; sink
// delivery happens after the lock is released.
type Tracker struct {
	store    *Store
	sinks    []FinalizedSink
	changes  []ChangeSink
	observer Observer
	log      *slog.Logger
}

// TrackerOption configures a Tracker at construction time.
type TrackerOption func(*Tracker)

// WithFinalizedSink registers a collaborator for finalized snippets.
func WithFinalizedSink(s FinalizedSink) TrackerOption {
	return func(t *Tracker) { t.sinks = append(t.sinks, s) }
}

// WithChangeSink registers a collaborator for post-finalization file changes.
func WithChangeSink(s ChangeSink) TrackerOption {
	return func(t *Tracker) { t.changes = append(t.changes, s) }
}

// WithObserver registers a lifecycle outcome observer.
func WithObserver(o Observer) TrackerOption {
	return func(t *Tracker) { t.observer = o }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.log = l }
}

// NewTracker wires a Tracker around an injected store.
func NewTracker(store *Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CompletionServed registers a new record for a served completion and
// returns its id. Completions without a usable finish reason are not
// tracked; the caller must check ok before echoing the id to the client.
func (t *Tracker) CompletionServed(model string, in Inputs, suggested, finishReason string) (uint64, bool) {
	if finishReason == "" {
		return 0, false
	}
	t.store.mu.Lock()
	id := t.store.register(model, in, suggested)
	t.store.mu.Unlock()
	t.log.Debug("snippet registered", "id", id, "model", model, "file", in.Cursor.File)
	return id, true
}

// CompletionAccepted marks the record as accepted by the client. Unknown or
// already-finished ids report false and mutate nothing.
func (t *Tracker) CompletionAccepted(id uint64) bool {
	t.store.mu.Lock()
	ok := t.store.markAccepted(id)
	t.store.mu.Unlock()
	if !ok {
		t.log.Debug("accept for unknown or finished snippet", "id", id)
	}
	return ok
}

// FileChanged applies a full-text file change to every accepted, unfinished
// record whose original cursor file is a suffix of uri. For each such
// record the edit is classified against the file's original snapshot:
//
//   - attributable: the corrected text and remaining fraction are updated
//     and the record stays in progress.
//   - not attributable with a prior valid score: the record is finalized
//     and delivered once to every finalized sink, in finalization order.
//   - not attributable with no valid score: the acceptance is reset, the
//     record drops out of tracking and is never finalized.
//
// Callers must deliver changes for a single URI in arrival order; each
// call's before state is the previous call's after state.
func (t *Tracker) FileChanged(uri, text string) {
	t.store.mu.Lock()
	var finished []Record
	abandoned := 0
	for _, rec := range t.store.records {
		if rec.AcceptedAt == 0 || rec.FinishedAt != 0 {
			continue
		}
		if !strings.HasSuffix(uri, rec.Inputs.Cursor.File) {
			continue
		}
		orig, ok := rec.Inputs.Sources[rec.Inputs.Cursor.File]
		if !ok {
			// No snapshot for this file; leave the record untouched.
			continue
		}
		corrected, attributable := attribution.Classify(orig, text, rec.SuggestedText)
		if attributable {
			rec.CorrectedText = corrected
			rec.RemainingFraction = textdiff.CharSimilarity(corrected, rec.SuggestedText)
			continue
		}
		if rec.RemainingFraction >= 0 {
			rec.FinishedAt = t.store.now().Unix()
			finished = append(finished, rec.Clone())
		} else {
			// Accepted but never attributably evaluated: abandonment.
			rec.AcceptedAt = 0
			abandoned++
		}
	}
	t.store.mu.Unlock()

	for _, rec := range finished {
		t.log.Info("snippet finalized",
			"id", rec.ID, "model", rec.Model, "remaining", rec.RemainingFraction)
		if t.observer != nil {
			t.observer.SnippetFinalized(rec.RemainingFraction)
		}
		for _, s := range t.sinks {
			s.SnippetFinalized(uri, text, rec)
		}
	}
	if abandoned > 0 && t.observer != nil {
		for i := 0; i < abandoned; i++ {
			t.observer.SnippetAbandoned()
		}
	}
	for _, s := range t.changes {
		s.FileTextChanged(uri, text)
	}
}
