package telemetry

import (
	"testing"
	"time"

	"github.com/wilhg/ghostd/pkg/snippet"
)

func TestCompCountersSealsWindows(t *testing.T) {
	cc := NewCompCounters()
	clock := time.Unix(1000, 0)
	cc.now = func() time.Time { return clock }

	cc.SnippetFinalized("a.go", "before\nkept line\nafter\n", snippet.Record{
		ID: 7, Model: "m", CorrectedText: "kept line\n", RemainingFraction: 0.9,
	})

	// Within the first window: nothing sealed yet.
	clock = time.Unix(1010, 0)
	cc.FileTextChanged("a.go", "before\nkept line\nafter\n")
	st := cc.Stats()[0]
	if st.SurvivalAfter30 != -1 {
		t.Fatalf("30s sealed too early: %v", st.SurvivalAfter30)
	}

	// Past 30s with the line still intact.
	clock = time.Unix(1035, 0)
	cc.FileTextChanged("a.go", "before\nkept line\nafter\n")
	st = cc.Stats()[0]
	if st.SurvivalAfter30 != 1.0 {
		t.Fatalf("30s survival=%v want 1.0", st.SurvivalAfter30)
	}
	if st.SurvivalAfter90 != -1 {
		t.Fatalf("90s sealed too early: %v", st.SurvivalAfter90)
	}

	// Past 90s after the user rewrote the line.
	clock = time.Unix(1095, 0)
	cc.FileTextChanged("a.go", "before\nsomething else\nafter\n")
	st = cc.Stats()[0]
	if st.SurvivalAfter90 >= 1.0 || st.SurvivalAfter90 < 0 {
		t.Fatalf("90s survival=%v want partial", st.SurvivalAfter90)
	}
	// The 30s mark must not move once sealed.
	if st.SurvivalAfter30 != 1.0 {
		t.Fatalf("30s resealed: %v", st.SurvivalAfter30)
	}

	// Past the last window the accumulator stops following the file.
	clock = time.Unix(1400, 0)
	cc.FileTextChanged("a.go", "gone\n")
	sealed := cc.Stats()[0]
	clock = time.Unix(2000, 0)
	cc.FileTextChanged("a.go", "back\nkept line\n")
	if cc.Stats()[0] != sealed {
		t.Fatal("accumulator mutated after final window")
	}
}

func TestCompCountersIgnoresOtherFiles(t *testing.T) {
	cc := NewCompCounters()
	clock := time.Unix(0, 0)
	cc.now = func() time.Time { return clock }

	cc.SnippetFinalized("a.go", "kept\n", snippet.Record{ID: 1, CorrectedText: "kept\n"})
	clock = time.Unix(40, 0)
	cc.FileTextChanged("b.go", "unrelated\n")

	if got := cc.Stats()[0].SurvivalAfter30; got != -1 {
		t.Fatalf("sealed from wrong file: %v", got)
	}
}
