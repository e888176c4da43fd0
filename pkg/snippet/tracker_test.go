package snippet

import (
	"testing"
)

type captureSink struct {
	finalized []Record
	uris      []string
	changes   []string
}

func (c *captureSink) SnippetFinalized(uri, text string, rec Record) {
	c.finalized = append(c.finalized, rec)
	c.uris = append(c.uris, uri)
}

func (c *captureSink) FileTextChanged(uri, text string) {
	c.changes = append(c.changes, uri)
}

type countObserver struct {
	finalized int
	abandoned int
}

func (o *countObserver) SnippetFinalized(float64) { o.finalized++ }
func (o *countObserver) SnippetAbandoned()        { o.abandoned++ }

func TestLifecycleUpdateThenFinalize(t *testing.T) {
	st := NewStore()
	sink := &captureSink{}
	tr := NewTracker(st, WithFinalizedSink(sink), WithChangeSink(sink))

	id, ok := tr.CompletionServed("model-x", testInputs("src/main.go", "func main() {\n}\n"), "\tprintln(1)\n", "stop")
	if !ok {
		t.Fatal("registration failed")
	}
	if !tr.CompletionAccepted(id) {
		t.Fatal("accept failed")
	}

	// User keeps the suggestion: attributable, full score.
	tr.FileChanged("file:///work/src/main.go", "func main() {\n\tprintln(1)\n}\n")
	rec := st.Snapshot()[0]
	if rec.RemainingFraction != 1.0 {
		t.Fatalf("remaining=%v want 1.0", rec.RemainingFraction)
	}
	if rec.CorrectedText != "\tprintln(1)\n" {
		t.Fatalf("corrected=%q", rec.CorrectedText)
	}
	if rec.FinishedAt != 0 {
		t.Fatal("record finished too early")
	}
	if len(sink.finalized) != 0 {
		t.Fatal("sink notified before finalization")
	}

	// Unrelated disjoint edit: not attributable, prior score exists, so the
	// record finalizes and reaches the sink exactly once.
	tr.FileChanged("file:///work/src/main.go", "package x\nfunc other() {}\nvar y = 2\n")
	rec = st.Snapshot()[0]
	if rec.FinishedAt == 0 {
		t.Fatal("record not finalized")
	}
	if len(sink.finalized) != 1 {
		t.Fatalf("sink got %d records, want 1", len(sink.finalized))
	}
	if sink.finalized[0].ID != id || sink.finalized[0].RemainingFraction != 1.0 {
		t.Fatalf("unexpected finalized record %+v", sink.finalized[0])
	}

	// Further changes must not re-finalize.
	tr.FileChanged("file:///work/src/main.go", "more\nchanges\n")
	if len(sink.finalized) != 1 {
		t.Fatalf("record delivered %d times, want once", len(sink.finalized))
	}
}

func TestAbandonmentResetsAcceptanceWithoutFinalizing(t *testing.T) {
	st := NewStore()
	sink := &captureSink{}
	obs := &countObserver{}
	tr := NewTracker(st, WithFinalizedSink(sink), WithObserver(obs))

	id, _ := tr.CompletionServed("m", testInputs("a.go", "one\ntwo\n"), "added\n", "stop")
	tr.CompletionAccepted(id)

	// First observed change is already unattributable: no valid score ever
	// existed, so the record is abandoned, not finalized.
	tr.FileChanged("a.go", "ONE\ntwo changed\n")

	rec := st.Snapshot()[0]
	if rec.AcceptedAt != 0 {
		t.Fatal("accepted_at not reset on abandonment")
	}
	if rec.FinishedAt != 0 {
		t.Fatal("abandoned record must not be finalized")
	}
	if len(sink.finalized) != 0 {
		t.Fatal("abandoned record must never reach sinks")
	}
	if obs.abandoned != 1 || obs.finalized != 0 {
		t.Fatalf("observer abandoned=%d finalized=%d", obs.abandoned, obs.finalized)
	}

	// The record is now untracked: further changes ignore it.
	tr.FileChanged("a.go", "whatever\n")
	if st.Snapshot()[0].FinishedAt != 0 {
		t.Fatal("untracked record mutated")
	}
}

func TestFileChangedIgnoresNonMatchingURI(t *testing.T) {
	st := NewStore()
	tr := NewTracker(st)
	id, _ := tr.CompletionServed("m", testInputs("pkg/a.go", "x\n"), "y\n", "stop")
	tr.CompletionAccepted(id)

	tr.FileChanged("file:///elsewhere/b.go", "totally different\n")
	rec := st.Snapshot()[0]
	if rec.AcceptedAt == 0 || rec.FinishedAt != 0 || rec.RemainingFraction != NotEvaluated {
		t.Fatalf("record touched by non-matching uri: %+v", rec)
	}
}

func TestFileChangedSuffixMatch(t *testing.T) {
	st := NewStore()
	tr := NewTracker(st)
	id, _ := tr.CompletionServed("m", testInputs("pkg/a.go", "x\n"), "y\n", "stop")
	tr.CompletionAccepted(id)

	tr.FileChanged("file:///home/user/project/pkg/a.go", "x\ny\n")
	if got := st.Snapshot()[0].RemainingFraction; got != 1.0 {
		t.Fatalf("remaining=%v want 1.0 via suffix-matched uri", got)
	}
}

func TestFileChangedMissingSourceSnapshot(t *testing.T) {
	st := NewStore()
	tr := NewTracker(st)
	in := Inputs{Cursor: Cursor{File: "a.go"}, Sources: map[string]string{"other.go": "x\n"}}
	id, _ := tr.CompletionServed("m", in, "y\n", "stop")
	tr.CompletionAccepted(id)

	tr.FileChanged("a.go", "anything\n")
	rec := st.Snapshot()[0]
	if rec.AcceptedAt == 0 || rec.FinishedAt != 0 {
		t.Fatalf("record without snapshot must stay untouched: %+v", rec)
	}
}

func TestUnacceptedRecordsAreNotEvaluated(t *testing.T) {
	st := NewStore()
	tr := NewTracker(st)
	tr.CompletionServed("m", testInputs("a.go", "x\n"), "y\n", "stop")

	tr.FileChanged("a.go", "x\ny\n")
	if got := st.Snapshot()[0].RemainingFraction; got != NotEvaluated {
		t.Fatalf("unaccepted record evaluated: remaining=%v", got)
	}
}

func TestChangeSinkSeesEveryChange(t *testing.T) {
	st := NewStore()
	sink := &captureSink{}
	tr := NewTracker(st, WithChangeSink(sink))

	tr.FileChanged("a.go", "1\n")
	tr.FileChanged("b.go", "2\n")
	if len(sink.changes) != 2 || sink.changes[0] != "a.go" || sink.changes[1] != "b.go" {
		t.Fatalf("changes=%v", sink.changes)
	}
}

func TestFinalizationOrderFollowsInsertionOrder(t *testing.T) {
	st := NewStore()
	sink := &captureSink{}
	tr := NewTracker(st, WithFinalizedSink(sink))

	id1, _ := tr.CompletionServed("m", testInputs("a.go", "base\n"), "one\n", "stop")
	id2, _ := tr.CompletionServed("m", testInputs("a.go", "base\n"), "one\n", "stop")
	tr.CompletionAccepted(id1)
	tr.CompletionAccepted(id2)

	// Both score, then both finalize in the same pass.
	tr.FileChanged("a.go", "base\none\n")
	tr.FileChanged("a.go", "X\nunrelated\nedits\n")

	if len(sink.finalized) != 2 {
		t.Fatalf("finalized %d records, want 2", len(sink.finalized))
	}
	if sink.finalized[0].ID != id1 || sink.finalized[1].ID != id2 {
		t.Fatalf("finalization order %d,%d want %d,%d",
			sink.finalized[0].ID, sink.finalized[1].ID, id1, id2)
	}
}
