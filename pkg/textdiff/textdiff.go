// Package textdiff provides the line- and character-level comparison
// primitives the snippet telemetry pipeline is built on. All functions are
// pure and safe for concurrent use.
package textdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Tag identifies the kind of a single diff change.
type Tag int

const (
	// TagEqual marks content present in both inputs.
	TagEqual Tag = iota

	// TagDelete marks content present only in the first input.
	TagDelete

	// TagInsert marks content present only in the second input.
	TagInsert
)

// Change is one line-granular diff step. Value keeps its trailing line
// terminator when the source line had one.
type Change struct {
	Tag   Tag
	Value string
}

// Lines diffs a against b at line granularity and returns one Change per
// line in diff order. For a replaced region all deleted lines precede the
// inserted lines, matching the order consumers of this package rely on.
func Lines(a, b string) []Change {
	la := splitLines(a)
	lb := splitLines(b)
	// Autojunk must stay off: it declares frequent lines (blank lines in
	// source code) junk on large files and corrupts the alignment.
	m := difflib.NewMatcherWithJunk(la, lb, false, nil)
	var out []Change
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, v := range la[op.I1:op.I2] {
				out = append(out, Change{Tag: TagEqual, Value: v})
			}
		case 'd':
			for _, v := range la[op.I1:op.I2] {
				out = append(out, Change{Tag: TagDelete, Value: v})
			}
		case 'i':
			for _, v := range lb[op.J1:op.J2] {
				out = append(out, Change{Tag: TagInsert, Value: v})
			}
		case 'r':
			for _, v := range la[op.I1:op.I2] {
				out = append(out, Change{Tag: TagDelete, Value: v})
			}
			for _, v := range lb[op.J1:op.J2] {
				out = append(out, Change{Tag: TagInsert, Value: v})
			}
		}
	}
	return out
}

// AddedRemoved diffs a against b at line granularity and returns the
// concatenation of all inserted lines and all deleted lines, in diff order.
// Carriage returns are stripped from both results.
func AddedRemoved(a, b string) (added, removed string) {
	var ab, rb strings.Builder
	for _, c := range Lines(a, b) {
		switch c.Tag {
		case TagInsert:
			ab.WriteString(c.Value)
		case TagDelete:
			rb.WriteString(c.Value)
		}
	}
	added = strings.ReplaceAll(ab.String(), "\r", "")
	removed = strings.ReplaceAll(rb.String(), "\r", "")
	return added, removed
}

// CharSimilarity returns the fraction of characters the two strings share
// under a character-level diff: equal runes divided by the rune length of
// the longer input. The result is always in [0,1]; two empty strings
// compare as 0.
func CharSimilarity(a, b string) float64 {
	ra := splitRunes(a)
	rb := splitRunes(b)
	largest := len(ra)
	if len(rb) > largest {
		largest = len(rb)
	}
	if largest == 0 {
		return 0
	}
	return float64(matchingRunes(ra, rb)) / float64(largest)
}

// ApproxSimilarity estimates how much of suggested survives in the text
// that was added between the before and after file states. Each suggestion
// line greedily consumes the not-yet-matched added line with the highest
// common-rune count; the accumulated count is divided by the rune length
// of the suggestion with line terminators removed.
//
// Greedy per-line assignment is a deliberate simplification: it is O(n*m)
// in lines and is not a maximum-weight matching, which is accurate enough
// for completion-survival estimates on editor-sized files.
func ApproxSimilarity(before, after, suggested string) float64 {
	added, _ := AddedRemoved(before, after)
	return AlignmentScore(added, suggested)
}

// AlignmentScore runs the greedy line alignment of ApproxSimilarity
// directly against already-extracted added text.
func AlignmentScore(added, suggested string) float64 {
	if added == "" {
		return 0
	}
	denom := len([]rune(strings.NewReplacer("\n", "", "\r", "").Replace(suggested)))
	if denom == 0 {
		return 0
	}
	addedLines := splitContentLines(added)
	taken := make([]bool, len(addedLines))
	common := 0
	for _, line := range splitContentLines(suggested) {
		best, bestIdx := 0, -1
		lr := splitRunes(line)
		for i, al := range addedLines {
			if taken[i] {
				continue
			}
			if n := matchingRunes(splitRunes(al), lr); n > best {
				best, bestIdx = n, i
			}
		}
		if bestIdx < 0 {
			continue
		}
		taken[bestIdx] = true
		common += best
	}
	return float64(common) / float64(denom)
}

// matchingRunes counts runes marked equal by a character-level diff.
func matchingRunes(a, b []string) int {
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	n := 0
	for _, blk := range m.GetMatchingBlocks() {
		n += blk.Size
	}
	return n
}

// splitLines splits s after every newline, keeping the terminator on each
// line. Unlike difflib.SplitLines it does not invent a trailing newline,
// so "foo" stays ["foo"] and "foo\n" stays ["foo\n"].
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitContentLines splits s into lines without terminators, the way the
// greedy alignment compares them. CRs are dropped with the terminator.
func splitContentLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// splitRunes explodes s into one-rune strings for character-level diffing.
func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
