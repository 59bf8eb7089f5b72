package process

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"typeflow/common"
	"typeflow/config"
	"typeflow/flow"
	"typeflow/state"
)

const sampleDoc = `<?xml version="1.0"?>
<document id="0198c7a2-0000-7000-8000-0000000000aa" title="Sample" lang="en">
  <body>
    <p>The quick brown fox jumps over the lazy dog.</p>
    <p>Pack my box with five dozen liquor jugs.</p>
  </body>
</document>
`

func newTestRunner(t *testing.T, ctx context.Context, format common.OutputFmt) *runner {
	t.Helper()
	env := state.EnvFromContext(ctx)
	return &runner{
		engine:  flow.NewEngine(env.Log, nil),
		regions: regionsFromConfig(&env.Cfg.Layout.Page),
		format:  format,
		log:     env.Log.Named("process"),
	}
}

func setupRunEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	ctx, env := testEnv(t)
	env.Log = zaptest.NewLogger(t)
	env.Overwrite = true
	return ctx, env
}

func TestProcessNonExistentPath(t *testing.T) {
	ctx, _ := setupRunEnv(t)
	r := newTestRunner(t, ctx, common.OutputFmtTree)

	err := r.process(ctx, "/nonexistent/path/file.xml", t.TempDir())
	if err == nil {
		t.Fatal("Expected error for non-existent path, got nil")
	}
	if !strings.Contains(err.Error(), "input source was not found") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestProcessCancelledContext(t *testing.T) {
	ctx, _ := setupRunEnv(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	r := newTestRunner(t, ctx, common.OutputFmtTree)

	if err := r.process(ctx, t.TempDir(), t.TempDir()); err == nil {
		t.Error("Expected error for cancelled context, got nil")
	}
}

func TestProcessSingleFile(t *testing.T) {
	ctx, _ := setupRunEnv(t)

	src := filepath.Join(t.TempDir(), "sample.xml")
	if err := os.WriteFile(src, []byte(sampleDoc), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	dst := t.TempDir()

	r := newTestRunner(t, ctx, common.OutputFmtTree)
	if err := r.process(ctx, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	out := filepath.Join(dst, "Sample.layout.txt")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected output at %s: %v", out, err)
	}
	if !strings.Contains(string(data), "frame 0:") {
		t.Errorf("output does not look like a frame tree:\n%s", data)
	}
	if !strings.Contains(string(data), "quick brown fox") {
		t.Errorf("output is missing document text:\n%s", data)
	}
}

func TestProcessDirectory(t *testing.T) {
	ctx, _ := setupRunEnv(t)

	srcDir := t.TempDir()
	for _, name := range []string{"ch2.xml", "ch10.xml"} {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(sampleDoc), 0644); err != nil {
			t.Fatalf("write sample: %v", err)
		}
	}
	// not a book, must be skipped quietly
	if err := os.WriteFile(filepath.Join(srcDir, "readme.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("write readme: %v", err)
	}
	dst := t.TempDir()

	env := state.EnvFromContext(ctx)
	env.Cfg.Document.OutputNameTemplate = "{{ .Source }}{{ .Ext }}"

	r := newTestRunner(t, ctx, common.OutputFmtJSON)
	if err := r.process(ctx, srcDir, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	for _, want := range []string{"ch2.layout.json", "ch10.layout.json"} {
		if _, err := os.Stat(filepath.Join(dst, want)); err != nil {
			t.Errorf("expected output %s: %v", want, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "readme.layout.json")); err == nil {
		t.Error("non-book file produced output")
	}
}

func TestProcessArchive(t *testing.T) {
	ctx, _ := setupRunEnv(t)

	srcDir := t.TempDir()
	arcPath := filepath.Join(srcDir, "books.zip")
	arcFile, err := os.Create(arcPath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	w := zip.NewWriter(arcFile)
	f, _ := w.Create("inner/sample.xml")
	f.Write([]byte(sampleDoc))
	w.Close()
	arcFile.Close()

	dst := t.TempDir()
	env := state.EnvFromContext(ctx)
	env.Cfg.Document.OutputNameTemplate = "{{ .Source }}{{ .Ext }}"
	env.NoDirs = true

	r := newTestRunner(t, ctx, common.OutputFmtTree)
	if err := r.process(ctx, arcPath, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "sample.layout.txt")); err != nil {
		t.Errorf("expected output from archive entry: %v", err)
	}
}

func TestProcessRefusesOverwrite(t *testing.T) {
	ctx, env := setupRunEnv(t)
	env.Overwrite = false

	src := filepath.Join(t.TempDir(), "sample.xml")
	if err := os.WriteFile(src, []byte(sampleDoc), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	dst := t.TempDir()
	if err := os.WriteFile(filepath.Join(dst, "Sample.layout.txt"), []byte("old"), 0644); err != nil {
		t.Fatalf("write existing output: %v", err)
	}

	r := newTestRunner(t, ctx, common.OutputFmtTree)
	// the file level error is logged, not propagated; the old file must survive
	if err := r.process(ctx, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "Sample.layout.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "old" {
		t.Error("existing output was overwritten without permission")
	}
}

func TestRegionsFromConfig(t *testing.T) {
	page := &config.PageConfig{Width: 400, Height: 600, Regions: []float64{500, 550}, Expand: true}
	regions := regionsFromConfig(page)

	if regions.Size.W != 400 || regions.Size.H != 500 {
		t.Errorf("first region = %s, want 400pt x 500pt", regions.Size)
	}
	if len(regions.Backlog) != 1 || regions.Backlog[0] != 550 {
		t.Errorf("backlog = %v, want [550]", regions.Backlog)
	}
	if regions.Last == nil || *regions.Last != 600 {
		t.Errorf("last = %v, want 600", regions.Last)
	}
	if !regions.Expand.Y || regions.Expand.X {
		t.Errorf("expand = %+v, want Y only", regions.Expand)
	}
}
