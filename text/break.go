package text

import (
	"strings"

	"typeflow/geom"
)

// Span is one run of paragraph content. NoteID, when set, is a footnote
// marker anchored directly after Text (Text may be empty for a bare marker).
type Span struct {
	Text   string
	NoteID string
}

// Line is one broken line together with the footnote markers whose anchors
// ended up on it.
type Line struct {
	Text  string
	Width geom.Abs
	Notes []string
}

// BreakLines splits spans into lines no wider than width using greedy
// first-fit breaking at word boundaries. A word that alone exceeds the line
// width is emitted on its own overlong line rather than being cut: proper
// intra-word breaking belongs to a real shaper.
func BreakLines(spans []Span, width geom.Abs, m Measurer, size geom.Abs) []Line {
	var lines []Line
	var cur strings.Builder
	var curNotes []string

	flush := func() {
		text := strings.TrimRight(cur.String(), " ")
		if text != "" || len(curNotes) > 0 {
			lines = append(lines, Line{
				Text:  text,
				Width: m.Advance(text, size),
				Notes: curNotes,
			})
		}
		cur.Reset()
		curNotes = nil
	}

	var appendWord func(word string)
	appendWord = func(word string) {
		candidate := word
		if cur.Len() > 0 {
			candidate = cur.String() + " " + word
		}
		if m.Advance(candidate, size).Fits(width) {
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
			return
		}
		if cur.Len() == 0 {
			// Single overlong word, keep it whole.
			cur.WriteString(word)
			flush()
			return
		}
		flush()
		appendWord(word)
	}

	for _, span := range spans {
		for _, word := range strings.Fields(span.Text) {
			appendWord(word)
		}
		if span.NoteID != "" {
			curNotes = append(curNotes, span.NoteID)
		}
	}
	flush()

	return lines
}
