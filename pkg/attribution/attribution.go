// Package attribution decides whether a file edit can still be attributed
// to an AI-suggested completion. The classifier walks a line-level diff of
// the file states and accepts only edits that touch a single contiguous
// region, which is the only pattern cheap to interpret as "the user is
// still working the same suggestion".
package attribution

import (
	"strings"

	"github.com/wilhg/ghostd/pkg/textdiff"
)

// state is the classifier's position in the edit it has seen so far.
type state int

const (
	// stateNoEdit means no insertion has been observed yet.
	stateNoEdit state = iota

	// stateOneDeletion means one non-whitespace deletion block was captured
	// before any insertion.
	stateOneDeletion

	// stateInserting means an insertion block is currently accumulating.
	stateInserting

	// stateClosed means an insertion block exists and was terminated by
	// equal or deleted content. Any further insertion is disqualifying.
	stateClosed

	// stateRejected is terminal: the edit is not attributable.
	stateRejected
)

// classifier carries the state machine plus the data the transitions need.
type classifier struct {
	st        state
	multiline bool

	deleted       string // the single tolerated deletion block, terminator stripped
	added         strings.Builder
	spacesAllowed bool // flips off after the first whitespace-only insertion
	stripNewline  bool // a deleted line carried a terminator
}

// Classify reports whether the change from before to after is still
// attributable to suggested, and if so returns the text the user kept in
// the suggestion's place (carriage returns stripped).
//
// The rules, in diff order over line-level changes:
//   - at most one non-whitespace deletion block; a second one rejects.
//   - once an insertion block is closed by equal or deleted content, any
//     further insertion rejects.
//   - when a deletion block exists, every inserted line must begin with the
//     deleted text, which models "retype the removed prefix, then continue".
//   - after a whitespace-only insertion no further insertion is allowed,
//     so reformatting elsewhere cannot masquerade as continued typing.
//   - single-line suggestions additionally reject a second non-whitespace
//     line inside the insertion block; multiline suggestions tolerate it.
func Classify(before, after, suggested string) (string, bool) {
	c := classifier{
		multiline:     strings.Contains(suggested, "\n"),
		spacesAllowed: true,
	}
	for _, ch := range textdiff.Lines(before, after) {
		switch ch.Tag {
		case textdiff.TagDelete:
			c.onDelete(ch.Value)
		case textdiff.TagInsert:
			c.onInsert(ch.Value)
		case textdiff.TagEqual:
			c.onEqual()
		}
		if c.st == stateRejected {
			return "", false
		}
	}
	return c.finish(suggested), true
}

func (c *classifier) onDelete(value string) {
	if c.st == stateInserting {
		c.st = stateClosed
	}
	if strings.TrimSpace(value) != "" {
		if c.deleted != "" {
			// Second non-whitespace deletion: disjoint edit regions.
			c.st = stateRejected
			return
		}
		c.deleted = strings.TrimSuffix(value, "\n")
		if c.st == stateNoEdit {
			c.st = stateOneDeletion
		}
	}
	if strings.HasSuffix(value, "\n") {
		c.stripNewline = true
	}
}

func (c *classifier) onInsert(value string) {
	if !c.spacesAllowed {
		c.st = stateRejected
		return
	}
	whitespaceOnly := strings.TrimSpace(value) == ""
	if whitespaceOnly {
		c.spacesAllowed = false
	}
	switch c.st {
	case stateClosed:
		// More than one insertion block.
		c.st = stateRejected
		return
	case stateInserting:
		if !c.multiline && !whitespaceOnly {
			c.st = stateRejected
			return
		}
	}
	if c.deleted != "" {
		if !strings.HasPrefix(value, c.deleted) {
			c.st = stateRejected
			return
		}
		value = value[len(c.deleted):]
	}
	c.added.WriteString(value)
	c.st = stateInserting
}

func (c *classifier) onEqual() {
	if c.st == stateInserting {
		c.st = stateClosed
	}
}

// finish assembles the corrected text. A deleted line's terminator shows up
// again inside the insertion that replaced it; when the suggestion itself
// does not end with a terminator, that trailing newline is not part of what
// the user kept, so exactly one is stripped.
func (c *classifier) finish(suggested string) string {
	added := c.added.String()
	if c.stripNewline && !strings.HasSuffix(suggested, "\n") {
		added = strings.TrimSuffix(added, "\n")
	}
	return strings.ReplaceAll(added, "\r", "")
}
