package telemetry

import (
	"sync"
	"time"

	"github.com/wilhg/ghostd/pkg/snippet"
	"github.com/wilhg/ghostd/pkg/textdiff"
)

// survivalWindows are the seconds-after-finalization marks at which a
// snippet's survival in the file is sampled.
var survivalWindows = [...]int64{30, 90, 180, 360}

// CompletionStat tracks how much of one finalized completion is still
// present in its file as the user keeps editing. A window value of -1
// means the mark has not been reached yet.
type CompletionStat struct {
	SnippetID         uint64  `json:"snippet_id"`
	URI               string  `json:"uri"`
	Model             string  `json:"model"`
	FinalizedAt       int64   `json:"finalized_at"`
	RemainingFraction float64 `json:"remaining_fraction"`

	SurvivalAfter30  float64 `json:"survival_after_30s"`
	SurvivalAfter90  float64 `json:"survival_after_90s"`
	SurvivalAfter180 float64 `json:"survival_after_180s"`
	SurvivalAfter360 float64 `json:"survival_after_360s"`
}

type compAccum struct {
	stat      CompletionStat
	corrected string
	lastScore float64
	done      bool
}

// CompCounters builds longer-running per-file statistics for finalized
// snippets. Each accumulator follows its file's subsequent changes and
// records, at fixed windows, how similar the kept completion still is to
// what is in the file.
type CompCounters struct {
	mu     sync.Mutex
	accums []*compAccum

	// now is swappable for tests.
	now func() time.Time
}

// NewCompCounters returns an empty accumulator list.
func NewCompCounters() *CompCounters {
	return &CompCounters{now: time.Now}
}

// SnippetFinalized opens an accumulator for the finalized record.
func (cc *CompCounters) SnippetFinalized(uri, text string, rec snippet.Record) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	score := textdiff.AlignmentScore(text, rec.CorrectedText)
	cc.accums = append(cc.accums, &compAccum{
		stat: CompletionStat{
			SnippetID:         rec.ID,
			URI:               uri,
			Model:             rec.Model,
			FinalizedAt:       cc.now().Unix(),
			RemainingFraction: rec.RemainingFraction,
			SurvivalAfter30:   -1,
			SurvivalAfter90:   -1,
			SurvivalAfter180:  -1,
			SurvivalAfter360:  -1,
		},
		corrected: rec.CorrectedText,
		lastScore: score,
	})
}

// FileTextChanged refreshes the survival score of every open accumulator
// for uri and seals any window marks that have elapsed.
func (cc *CompCounters) FileTextChanged(uri, text string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	nowTS := cc.now().Unix()
	for _, a := range cc.accums {
		if a.done || a.stat.URI != uri || a.corrected == "" {
			continue
		}
		a.lastScore = textdiff.AlignmentScore(text, a.corrected)
		elapsed := nowTS - a.stat.FinalizedAt
		for _, w := range survivalWindows {
			if elapsed < w {
				break
			}
			a.sealWindow(w)
		}
		if elapsed >= survivalWindows[len(survivalWindows)-1] {
			a.done = true
		}
	}
}

// sealWindow records lastScore at the given mark if not already recorded.
func (a *compAccum) sealWindow(w int64) {
	switch {
	case w == 30 && a.stat.SurvivalAfter30 < 0:
		a.stat.SurvivalAfter30 = a.lastScore
	case w == 90 && a.stat.SurvivalAfter90 < 0:
		a.stat.SurvivalAfter90 = a.lastScore
	case w == 180 && a.stat.SurvivalAfter180 < 0:
		a.stat.SurvivalAfter180 = a.lastScore
	case w == 360 && a.stat.SurvivalAfter360 < 0:
		a.stat.SurvivalAfter360 = a.lastScore
	}
}

// Stats returns a copy of all accumulated completion stats.
func (cc *CompCounters) Stats() []CompletionStat {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	out := make([]CompletionStat, 0, len(cc.accums))
	for _, a := range cc.accums {
		out = append(out, a.stat)
	}
	return out
}
