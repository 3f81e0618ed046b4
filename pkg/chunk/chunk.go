// Package chunk splits note text into overlapping passages.
//
// A passage is the unit of indexing and retrieval: a contiguous slice of a
// source document identified by a 1-based, inclusive line range. Consecutive
// passages overlap by a configurable number of words so that statements
// spanning a chunk boundary remain retrievable from at least one passage.
//
// Chunking is pure text segmentation: word counts drive passage sizing as a
// heuristic, while line numbers stay exact and drive identity.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// DefaultTargetWords is the word count at which a passage boundary is emitted.
	DefaultTargetWords = 400

	// DefaultOverlapWords is the number of trailing words re-seeded into the
	// next passage.
	DefaultOverlapWords = 80

	// MaxLineChars bounds a single logical line. Longer lines are hard-split
	// into sub-lines of this length before chunking so that one pathological
	// line cannot blow up passage size or downstream embedding requests.
	// Sub-lines keep the original line number; content is never merged across
	// logical lines.
	MaxLineChars = 2000
)

// Passage is a contiguous, possibly overlapping slice of a source document.
type Passage struct {
	// ID is the stable passage identifier, derived from the source ID and
	// line range, plus a sequence suffix when hard-split lines make several
	// passages share one range. Re-indexing unchanged input reproduces it.
	ID string `json:"id"`

	// SourceID identifies the originating document.
	SourceID string `json:"source_id"`

	// StartLine and EndLine are 1-based and inclusive on both ends.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Text is the passage content.
	Text string `json:"text"`

	// ContentHash is a sha256 digest of Text, usable to detect unchanged
	// passages without re-embedding.
	ContentHash string `json:"content_hash"`
}

// Options controls passage sizing.
type Options struct {
	// TargetWords is the word count at which a passage closes.
	// Defaults to DefaultTargetWords when zero or negative.
	TargetWords int

	// OverlapWords is the approximate number of words shared between
	// consecutive passages. Zero disables overlap.
	OverlapWords int
}

// numbered is a sub-line tagged with its logical line number.
type numbered struct {
	num  int
	text string
}

// Chunk splits text into passages. Whitespace-only input yields no passages.
// The returned passages carry line ranges and text only; Finalize assigns
// identity once the source ID is known.
func Chunk(text string, opts Options) []Passage {
	if opts.TargetWords <= 0 {
		opts.TargetWords = DefaultTargetWords
	}
	if opts.OverlapWords < 0 {
		opts.OverlapWords = 0
	}

	lines := splitLines(text)

	var passages []Passage
	var current []numbered
	words := 0

	emit := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, ln := range current {
			parts[i] = ln.text
		}
		joined := strings.Join(parts, "\n")
		if strings.TrimSpace(joined) == "" {
			return
		}
		passages = append(passages, Passage{
			StartLine: current[0].num,
			EndLine:   current[len(current)-1].num,
			Text:      joined,
		})
	}

	for i, ln := range lines {
		current = append(current, ln)
		words += countWords(ln.text)

		if words < opts.TargetWords || i == len(lines)-1 {
			continue
		}

		emit()

		if opts.OverlapWords == 0 {
			current = nil
			words = 0
			continue
		}

		// Seed the next passage by walking backward through the closed
		// passage until enough overlap words have accumulated. The seeded
		// lines keep their numbers, so ranges stay contiguous-but-overlapping.
		var seed []numbered
		acc := 0
		for j := len(current) - 1; j >= 0 && acc < opts.OverlapWords; j-- {
			seed = append(seed, current[j])
			acc += countWords(current[j].text)
		}
		for l, r := 0, len(seed)-1; l < r; l, r = l+1, r-1 {
			seed[l], seed[r] = seed[r], seed[l]
		}
		current = seed
		words = acc
	}

	emit()

	return passages
}

// Finalize assigns deterministic identity to passages chunked from sourceID.
// The same source and line range always produce the same ID, so re-indexing
// unchanged input replaces rows rather than duplicating them. A line long
// enough to hard-split across passage boundaries yields several passages with
// the same range; repeats get a sequence suffix so IDs stay unique.
func Finalize(sourceID string, passages []Passage) {
	seen := make(map[string]int)
	for i := range passages {
		passages[i].SourceID = sourceID
		id := PassageID(sourceID, passages[i].StartLine, passages[i].EndLine)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s.%d", id, n)
		}
		passages[i].ID = id
		passages[i].ContentHash = HashText(passages[i].Text)
	}
}

// PassageID derives the stable passage identifier for a source and line range.
func PassageID(sourceID string, startLine, endLine int) string {
	return fmt.Sprintf("%s#%d-%d", sourceID, startLine, endLine)
}

// HashText returns the hex sha256 digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// splitLines splits text on newlines and hard-splits lines longer than
// MaxLineChars. Sub-lines of a split line share its logical line number.
func splitLines(text string) []numbered {
	raw := strings.Split(text, "\n")
	out := make([]numbered, 0, len(raw))
	for i, line := range raw {
		num := i + 1
		runes := []rune(line)
		if len(runes) <= MaxLineChars {
			out = append(out, numbered{num: num, text: line})
			continue
		}
		for len(runes) > 0 {
			n := min(len(runes), MaxLineChars)
			out = append(out, numbered{num: num, text: string(runes[:n])})
			runes = runes[n:]
		}
	}
	return out
}

// countWords counts whitespace-separated tokens. This is an approximation,
// not locale-aware tokenization; it only drives chunk-size heuristics.
func countWords(s string) int {
	return len(strings.Fields(s))
}
