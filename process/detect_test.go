package process

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{name: "UTF-8 BOM", buf: []byte{0xEF, 0xBB, 0xBF, 0x00}, want: encUTF8},
		{name: "UTF-16 Big Endian BOM", buf: []byte{0xFE, 0xFF, 0x00, 0x00}, want: encUTF16BigEndian},
		{name: "UTF-16 Little Endian BOM", buf: []byte{0xFF, 0xFE, 0x01, 0x00}, want: encUTF16LittleEndian},
		{name: "UTF-32 Big Endian BOM", buf: []byte{0x00, 0x00, 0xFE, 0xFF}, want: encUTF32BigEndian},
		{name: "UTF-32 Little Endian BOM", buf: []byte{0xFF, 0xFE, 0x00, 0x00}, want: encUTF32LittleEndian},
		{name: "No BOM", buf: []byte{0x00, 0x01, 0x02, 0x03}, want: encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectReader(t *testing.T) {
	const sample = `<?xml version="1.0"?><document/>`

	var buf bytes.Buffer
	w := transform.NewWriter(&buf, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())
	if _, err := w.Write([]byte(sample)); err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("finalize encoded sample: %v", err)
	}

	enc := detectUTF(buf.Bytes())
	if enc != encUTF16LittleEndian {
		t.Fatalf("detectUTF() = %v, want UTF-16 LE", enc)
	}
	got, err := io.ReadAll(selectReader(&buf, enc))
	if err != nil {
		t.Fatalf("selectReader read error = %v", err)
	}
	if string(got) != sample {
		t.Errorf("selectReader() = %q, want %q", got, sample)
	}
}

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.txt")
		if err := os.WriteFile(filePath, []byte("not a zip"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("valid zip file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test2.zip")
		zipFile, err := os.Create(filePath)
		if err != nil {
			t.Fatalf("Failed to create zip file: %v", err)
		}
		w := zip.NewWriter(zipFile)
		f, err := w.Create("test.txt")
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		f.Write(make([]byte, 300))
		w.Close()
		zipFile.Close()

		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true")
		}
	})
}

func TestIsArchiveFileNonExistent(t *testing.T) {
	if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsBookFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("xml declaration", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "book.xml")
		if err := os.WriteFile(filePath, []byte(`<?xml version="1.0"?><document/>`), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		book, enc, err := isBookFile(filePath)
		if err != nil {
			t.Fatalf("isBookFile() error = %v", err)
		}
		if !book || enc != encUnknown {
			t.Errorf("isBookFile() = %v, %v, want true, encUnknown", book, enc)
		}
	})

	t.Run("bare document element with BOM", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "bom.xml")
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<document id="x"/>`)...)
		if err := os.WriteFile(filePath, data, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		book, enc, err := isBookFile(filePath)
		if err != nil {
			t.Fatalf("isBookFile() error = %v", err)
		}
		if !book || enc != encUTF8 {
			t.Errorf("isBookFile() = %v, %v, want true, encUTF8", book, enc)
		}
	})

	t.Run("plain text", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "notes.txt")
		if err := os.WriteFile(filePath, []byte("just some notes"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		book, _, err := isBookFile(filePath)
		if err != nil {
			t.Fatalf("isBookFile() error = %v", err)
		}
		if book {
			t.Error("isBookFile() = true for plain text")
		}
	})
}

func TestIsBookInArchive(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "books.zip")

	zipFile, err := os.Create(filePath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	f, _ := w.Create("good.xml")
	f.Write([]byte(`<?xml version="1.0"?><document/>`))
	f, _ = w.Create("bad.txt")
	f.Write([]byte("not a book"))
	w.Close()
	zipFile.Close()

	r, err := zip.OpenReader(filePath)
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	defer r.Close()

	for _, zf := range r.File {
		book, _, err := isBookInArchive(zf)
		if err != nil {
			t.Fatalf("isBookInArchive(%s) error = %v", zf.Name, err)
		}
		want := strings.HasSuffix(zf.Name, ".xml")
		if book != want {
			t.Errorf("isBookInArchive(%s) = %v, want %v", zf.Name, book, want)
		}
	}
}
