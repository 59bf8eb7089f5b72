package cache

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"typeflow/diag"
	"typeflow/geom"
)

func testFrames() []*geom.Frame {
	inner := geom.NewFrame(geom.Size{W: 100, H: 20})
	inner.Push(geom.Point{X: 10, Y: 20}, geom.TextItem{Text: "cached line", Size: 10})

	f := geom.NewFrame(geom.Size{W: 420, H: 595})
	f.Push(geom.Point{X: 10, Y: 10}, geom.TagItem{Name: "p", Ordinal: 1})
	f.PushFrame(geom.Point{X: 10, Y: 10}, inner)
	return []*geom.Frame{f}
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "layouts.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	const key = uint64(0xfeedface)

	if _, _, ok := s.Get(key); ok {
		t.Fatal("Get() on empty store reported a hit")
	}

	diags := []diag.Diagnostic{diag.Warnf(diag.Location{Ordinal: 3, Path: "p"}, "too tall")}
	s.Put(key, testFrames(), diags)

	frames, got, ok := s.Get(key)
	if !ok {
		t.Fatal("Get() after Put() reported a miss")
	}
	if len(frames) != 1 {
		t.Fatalf("Get() returned %d frames, want 1", len(frames))
	}
	if w, h := frames[0].Width(), frames[0].Height(); w != 420 || h != 595 {
		t.Errorf("Frame size = %s x %s, want 420pt x 595pt", w, h)
	}
	if len(frames[0].Items()) != 2 {
		t.Errorf("Frame has %d items, want 2", len(frames[0].Items()))
	}
	found := false
	frames[0].Walk(func(pos geom.Point, item geom.Item) bool {
		if txt, ok := item.(geom.TextItem); ok && txt.Text == "cached line" {
			found = true
			if pos.X != 20 || pos.Y != 30 {
				t.Errorf("Text position = %s, want (20pt, 30pt)", pos)
			}
		}
		return true
	})
	if !found {
		t.Error("Nested text item lost in round trip")
	}
	if len(got) != 1 || got[0] != diags[0] {
		t.Errorf("Diagnostics = %v, want %v", got, diags)
	}

	// Replacing an entry must not grow the store.
	s.Put(key, testFrames(), nil)
	if n, err := s.Len(); err != nil || n != 1 {
		t.Errorf("Len() = %d, %v, want 1 entry", n, err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.db")

	s, err := Open(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.Put(42, testFrames(), nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() after close error = %v", err)
	}
	defer s.Close()

	if _, _, ok := s.Get(42); !ok {
		t.Error("Entry did not survive reopening the store")
	}
	if _, _, ok := s.Get(43); ok {
		t.Error("Unknown key reported a hit")
	}
}
