package archive

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeZip builds a zip at a temp path from name/content pairs. Names ending
// in a slash become directory entries.
func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		if name[len(name)-1] == '/' {
			hdr := &zip.FileHeader{Name: name}
			hdr.SetMode(os.ModeDir | 0755)
			if _, err := w.CreateHeader(hdr); err != nil {
				t.Fatalf("create dir entry %s: %v", name, err)
			}
			continue
		}
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func collect(t *testing.T, path, pattern string) []string {
	t.Helper()
	var names []string
	err := Walk(context.Background(), path, pattern, func(arc string, f *zip.File) error {
		if arc != path {
			t.Errorf("callback archive = %s, want %s", arc, path)
		}
		names = append(names, f.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk(%q) error = %v", pattern, err)
	}
	return names
}

func TestWalkPrefixFilter(t *testing.T) {
	path := writeZip(t, map[string]string{
		"books/one.xml":  "<document/>",
		"books/two.xml":  "<document/>",
		"extras/pic.png": "binary",
		"readme.txt":     "text",
	})

	tests := []struct {
		pattern string
		want    int
	}{
		{pattern: "books/", want: 2},
		{pattern: "extras/", want: 1},
		{pattern: "", want: 4},
		{pattern: "missing/", want: 0},
		{pattern: "Books/", want: 0}, // matching is case-sensitive
	}
	for _, tt := range tests {
		if got := collect(t, path, tt.pattern); len(got) != tt.want {
			t.Errorf("Walk(%q) visited %v, want %d entries", tt.pattern, got, tt.want)
		}
	}
}

func TestWalkSkipsDirectoryEntries(t *testing.T) {
	path := writeZip(t, map[string]string{
		"books/":        "",
		"books/one.xml": "<document/>",
	})

	got := collect(t, path, "books/")
	if len(got) != 1 || got[0] != "books/one.xml" {
		t.Errorf("visited %v, want only books/one.xml", got)
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	path := writeZip(t, map[string]string{
		"a.xml": "x",
		"b.xml": "x",
		"c.xml": "x",
	})

	stop := errors.New("enough")
	n := 0
	err := Walk(context.Background(), path, "", func(string, *zip.File) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	if err != stop {
		t.Errorf("Walk() error = %v, want %v", err, stop)
	}
	if n != 2 {
		t.Errorf("callback ran %d times after stop, want 2", n)
	}
}

func TestWalkCanceledContext(t *testing.T) {
	path := writeZip(t, map[string]string{"a.xml": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Walk(ctx, path, "", func(string, *zip.File) error {
		t.Fatal("callback ran with canceled context")
		return nil
	})
	if err != context.Canceled {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
}

func TestWalkRejectsUnsafeEntries(t *testing.T) {
	path := writeZip(t, map[string]string{"../escape.xml": "x"})

	err := Walk(context.Background(), path, "", func(string, *zip.File) error {
		t.Fatal("callback ran for traversal entry")
		return nil
	})
	if err == nil {
		t.Error("Walk() accepted an archive with a path traversal entry")
	}
}

func TestWalkBadArchive(t *testing.T) {
	noop := func(string, *zip.File) error { return nil }

	if err := Walk(context.Background(), filepath.Join(t.TempDir(), "no.zip"), "", noop); err == nil {
		t.Error("Walk() succeeded on a missing archive")
	}

	garbage := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(garbage, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := Walk(context.Background(), garbage, "", noop); err == nil {
		t.Error("Walk() succeeded on a non-zip file")
	}
}
