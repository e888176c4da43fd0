// Package telemetry aggregates finalized snippets into the counters the
// quality dashboards consume: robot/human character attribution and
// per-file completion survival accumulators. Everything here is in-memory
// and best-effort; failures never reach back into the snippet lifecycle.
package telemetry

import (
	"path"
	"strings"
	"sync"

	"github.com/wilhg/ghostd/pkg/snippet"
	"github.com/wilhg/ghostd/pkg/textdiff"
)

// RobotHumanStat is one per-file accumulation row.
type RobotHumanStat struct {
	URI           string `json:"uri"`
	FileExtension string `json:"file_extension"`
	Model         string `json:"model"`

	// RobotCharacters counts characters the user kept from finalized
	// completions. HumanCharacters counts file growth beyond that.
	RobotCharacters int64 `json:"robot_characters"`
	HumanCharacters int64 `json:"human_characters"`
}

type fileCounters struct {
	stat RobotHumanStat

	// baseline is the last file text this accumulator charged against;
	// pendingRobot holds robot characters credited since then.
	baseline     string
	baselineSet  bool
	pendingRobot int64
}

// RobotHuman attributes typed characters per file to either finalized
// completions (robot) or the user (human). It implements both of the
// Tracker's collaborator interfaces.
type RobotHuman struct {
	mu    sync.Mutex
	files map[string]*fileCounters
}

// NewRobotHuman returns an empty accumulator set.
func NewRobotHuman() *RobotHuman {
	return &RobotHuman{files: make(map[string]*fileCounters)}
}

// SnippetFinalized credits the surviving completion text to the robot
// counter of the snippet's file.
func (rh *RobotHuman) SnippetFinalized(uri, text string, rec snippet.Record) {
	n := int64(len([]rune(rec.CorrectedText)))
	if n == 0 {
		return
	}
	rh.mu.Lock()
	defer rh.mu.Unlock()
	fc := rh.ensure(uri, rec.Model)
	fc.stat.RobotCharacters += n
	fc.pendingRobot += n
}

// FileTextChanged charges new characters in the file to the human counter,
// net of robot characters credited since the previous change.
func (rh *RobotHuman) FileTextChanged(uri, text string) {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	fc := rh.ensure(uri, "")
	if !fc.baselineSet {
		fc.baseline = text
		fc.baselineSet = true
		fc.pendingRobot = 0
		return
	}
	added, _ := textdiff.AddedRemoved(fc.baseline, text)
	human := int64(len([]rune(added))) - fc.pendingRobot
	if human > 0 {
		fc.stat.HumanCharacters += human
	}
	fc.baseline = text
	fc.pendingRobot = 0
}

// Stats returns a copy of every accumulator row.
func (rh *RobotHuman) Stats() []RobotHumanStat {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	out := make([]RobotHumanStat, 0, len(rh.files))
	for _, fc := range rh.files {
		out = append(out, fc.stat)
	}
	return out
}

// ensure returns the accumulator for uri, creating it on first use.
// Caller holds rh.mu.
func (rh *RobotHuman) ensure(uri, model string) *fileCounters {
	fc, ok := rh.files[uri]
	if !ok {
		fc = &fileCounters{stat: RobotHumanStat{
			URI:           uri,
			FileExtension: extensionOf(uri),
		}}
		rh.files[uri] = fc
	}
	if model != "" {
		fc.stat.Model = model
	}
	return fc
}

// extensionOf returns the URI's file extension, or the bare file name when
// it has none, so extension-less files still group sensibly.
func extensionOf(uri string) string {
	last := uri
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		last = uri[i+1:]
	}
	if ext := path.Ext(last); ext != "" {
		return ext
	}
	return last
}
