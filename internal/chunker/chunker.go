// Package chunker splits outgoing text into pieces that fit a platform's
// per-message size limit.
//
// Sizes are measured in Unicode code points, which is how Discord counts
// message length.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunk is one numbered piece of a larger text.
type Chunk struct {
	Text  string
	Index int
	Total int
}

// Label renders the chunk position as "(i/N)".
func (c Chunk) Label() string {
	return fmt.Sprintf("(%d/%d)", c.Index, c.Total)
}

// Len returns the size of text as the chunker measures it.
func Len(text string) int {
	return utf8.RuneCountInString(text)
}

// accumulator collects parts joined by a one-character separator and tracks
// the joined length.
type accumulator struct {
	sep    string
	parts  []string
	length int
}

// fits reports whether a part of size n can be appended without the joined
// text exceeding max.
func (a *accumulator) fits(n, max int) bool {
	next := a.length + n
	if len(a.parts) > 0 {
		next++
	}
	return next <= max
}

func (a *accumulator) add(part string, n int) {
	if len(a.parts) > 0 {
		a.length++
	}
	a.parts = append(a.parts, part)
	a.length += n
}

func (a *accumulator) empty() bool {
	return len(a.parts) == 0
}

func (a *accumulator) joined() string {
	return strings.Join(a.parts, a.sep)
}

// flush emits the joined text, unless it is empty, and resets the accumulator.
func (a *accumulator) flush(out []string) []string {
	if !a.empty() {
		if joined := a.joined(); joined != "" {
			out = append(out, joined)
		}
	}
	a.parts = nil
	a.length = 0
	return out
}

// Split breaks text into chunks of at most maxSize code points. Lines are
// kept together where possible; a line longer than maxSize is broken at
// single spaces, and a word longer than maxSize is cut into raw slices that
// each become their own chunk. Empty input yields no chunks and no chunk is
// ever empty.
func Split(text string, maxSize int) ([]string, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxSize)
	}
	if text == "" {
		return nil, nil
	}

	var chunks []string
	lines := accumulator{sep: "\n"}

	for _, line := range strings.Split(text, "\n") {
		lineLen := Len(line)
		if lines.fits(lineLen, maxSize) {
			lines.add(line, lineLen)
			continue
		}

		chunks = lines.flush(chunks)
		if lineLen <= maxSize {
			lines.add(line, lineLen)
			continue
		}

		words := accumulator{sep: " "}
		for _, word := range strings.Split(line, " ") {
			wordLen := Len(word)
			if words.fits(wordLen, maxSize) {
				words.add(word, wordLen)
				continue
			}
			chunks = words.flush(chunks)
			if wordLen > maxSize {
				chunks = append(chunks, Slices(word, maxSize)...)
				continue
			}
			words.add(word, wordLen)
		}

		// The tail of an oversized line stays open so following lines can join it.
		if !words.empty() {
			lines.add(words.joined(), words.length)
		}
	}

	return lines.flush(chunks), nil
}

// Slices cuts text into consecutive pieces of exactly size code points; the
// last piece may be shorter. It ignores line and word boundaries.
func Slices(text string, size int) []string {
	if text == "" || size <= 0 {
		return nil
	}
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// Number attaches 1-based positions to parts in order.
func Number(parts []string) []Chunk {
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, Chunk{Text: part, Index: i + 1, Total: len(parts)})
	}
	return chunks
}
