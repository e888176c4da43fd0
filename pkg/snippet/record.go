// Package snippet tracks the lifecycle of AI-suggested completions: a
// record is created when a completion is served, marked accepted when the
// client says so, updated while the user's edits still look like the same
// completion, and finalized (or abandoned) when they no longer do.
package snippet

// Cursor locates the completion request inside its file.
type Cursor struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

// Inputs is the completion request context captured at suggestion time.
// Sources maps file paths to their full content snapshots.
type Inputs struct {
	Cursor    Cursor            `json:"cursor"`
	Sources   map[string]string `json:"sources"`
	Multiline bool              `json:"multiline"`
}

// NotEvaluated is the RemainingFraction sentinel for records that have not
// received a valid similarity score yet.
const NotEvaluated = -1.0

// Record is one served completion that may be tracked through acceptance.
// Timestamps are unix seconds; zero means the event has not happened.
// A record with FinishedAt != 0 is immutable.
type Record struct {
	ID            uint64 `json:"id"`
	Model         string `json:"model"`
	Inputs        Inputs `json:"inputs"`
	SuggestedText string `json:"suggested_text"`

	// CorrectedText is the text the user actually kept. Empty until the
	// first attributable update; mutated only by the Tracker.
	CorrectedText string `json:"corrected_text"`

	// RemainingFraction is the similarity of CorrectedText to
	// SuggestedText in [0,1], or NotEvaluated.
	RemainingFraction float64 `json:"remaining_fraction"`

	CreatedAt  int64 `json:"created_at"`
	AcceptedAt int64 `json:"accepted_at"`
	FinishedAt int64 `json:"finished_at"`
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (r *Record) Clone() Record {
	cp := *r
	if r.Inputs.Sources != nil {
		cp.Inputs.Sources = make(map[string]string, len(r.Inputs.Sources))
		for k, v := range r.Inputs.Sources {
			cp.Inputs.Sources[k] = v
		}
	}
	return cp
}
