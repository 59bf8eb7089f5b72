package text

import (
	"testing"

	"typeflow/geom"
)

// CellMeasurer makes every character exactly 5pt wide at a 10pt font, so the
// expected break points are simple character counts.

func TestBreakLinesGreedy(t *testing.T) {
	lines := BreakLines([]Span{{Text: "aa bb cc dd"}}, 25, CellMeasurer{}, 10)

	want := []string{"aa bb", "cc dd"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if lines[i].Text != w {
			t.Errorf("line %d = %q, want %q", i, lines[i].Text, w)
		}
		if !lines[i].Width.Approx(25) {
			t.Errorf("line %d width = %s, want 25pt", i, lines[i].Width)
		}
	}
}

func TestBreakLinesKeepsOverlongWordWhole(t *testing.T) {
	lines := BreakLines([]Span{{Text: "superlongword"}}, 20, CellMeasurer{}, 10)

	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Text != "superlongword" {
		t.Errorf("line = %q, want the whole word", lines[0].Text)
	}
	if !lines[0].Width.Approx(65) {
		t.Errorf("line width = %s, want 65pt (overflowing)", lines[0].Width)
	}
}

func TestBreakLinesNotesFollowAnchor(t *testing.T) {
	spans := []Span{
		{Text: "one two"},
		{NoteID: "n1"},
		{Text: "three"},
	}
	lines := BreakLines(spans, 40, CellMeasurer{}, 10)

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Text != "one two" || len(lines[0].Notes) != 1 || lines[0].Notes[0] != "n1" {
		t.Errorf("line 0 = %q notes %v, want %q with [n1]", lines[0].Text, lines[0].Notes, "one two")
	}
	if lines[1].Text != "three" || len(lines[1].Notes) != 0 {
		t.Errorf("line 1 = %q notes %v, want %q without notes", lines[1].Text, lines[1].Notes, "three")
	}
}

func TestBreakLinesBareMarker(t *testing.T) {
	lines := BreakLines([]Span{{NoteID: "n1"}}, 100, CellMeasurer{}, 10)
	if len(lines) != 1 || lines[0].Text != "" || len(lines[0].Notes) != 1 {
		t.Fatalf("lines = %+v, want one empty line carrying the marker", lines)
	}
}

func TestBreakLinesEmptyInput(t *testing.T) {
	if lines := BreakLines(nil, 100, CellMeasurer{}, 10); len(lines) != 0 {
		t.Errorf("got %d lines for empty input, want 0", len(lines))
	}
}

func TestCellMeasurerAdvance(t *testing.T) {
	m := CellMeasurer{}
	if got := m.Advance("abc", 10); !got.Approx(15) {
		t.Errorf("Advance(abc, 10) = %s, want 15pt", got)
	}
	// Wide runes take two cells.
	if got := m.Advance("日", 10); !got.Approx(10) {
		t.Errorf("Advance(wide rune, 10) = %s, want 10pt", got)
	}
}

func TestFaceMeasurerScalesWithSize(t *testing.T) {
	m := NewBasicMeasurer()
	small := m.Advance("sample", 13)
	large := m.Advance("sample", 26)

	if small <= 0 {
		t.Fatalf("Advance at nominal size = %s, want positive", small)
	}
	if !large.Approx(small * 2) {
		t.Errorf("Advance at doubled size = %s, want %s", large, small*2)
	}
}

func TestMeasurerMonotonic(t *testing.T) {
	for _, m := range []Measurer{CellMeasurer{}, NewBasicMeasurer()} {
		if m.Advance("ab", 10) <= m.Advance("a", 10) {
			t.Errorf("%T: longer text does not measure wider", m)
		}
	}
	var zero geom.Abs
	if got := (CellMeasurer{}).Advance("", 10); got != zero {
		t.Errorf("empty string advance = %s, want 0", got)
	}
}
