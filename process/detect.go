package process

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// srcEncoding is the Unicode flavor detected from a byte order mark.
type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// detectUTF sniffs a BOM at the start of buf. UTF-32 LE must be checked
// before UTF-16 LE since the latter's BOM is a prefix of the former's.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case bytes.HasPrefix(buf, []byte{0x00, 0x00, 0xFE, 0xFF}):
		return encUTF32BigEndian
	case bytes.HasPrefix(buf, []byte{0xFF, 0xFE, 0x00, 0x00}):
		return encUTF32LittleEndian
	case bytes.HasPrefix(buf, []byte{0xEF, 0xBB, 0xBF}):
		return encUTF8
	case bytes.HasPrefix(buf, []byte{0xFE, 0xFF}):
		return encUTF16BigEndian
	case bytes.HasPrefix(buf, []byte{0xFF, 0xFE}):
		return encUTF16LittleEndian
	default:
		return encUnknown
	}
}

// selectReader wraps r so the document parser always sees UTF-8 without a
// byte order mark.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder())
	default:
		return r
	}
}

// isArchiveFile reports whether path is a zip archive worth looking into.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(ext(path), ".zip") {
		return false, nil
	}
	buf, err := readHead(path, 262)
	if err != nil {
		return false, err
	}
	t, err := filetype.Match(buf)
	if err != nil {
		return false, err
	}
	return t == matchers.TypeZip, nil
}

// isBookFile reports whether path looks like a layout source document and
// which Unicode flavor it is stored in.
func isBookFile(path string) (bool, srcEncoding, error) {
	buf, err := readHead(path, 512)
	if err != nil {
		return false, encUnknown, err
	}
	return sniffBook(buf)
}

// isBookInArchive is isBookFile for a zip entry.
func isBookInArchive(f *zip.File) (bool, srcEncoding, error) {
	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, encUnknown, err
	}
	return sniffBook(buf[:n])
}

// sniffBook decodes the head of a document and checks that it opens with an
// XML declaration or the expected root element.
func sniffBook(buf []byte) (bool, srcEncoding, error) {
	enc := detectUTF(buf)

	// The head may cut a multi-byte sequence short; whatever decoded before
	// the error is enough for the prefix check.
	head, _ := io.ReadAll(selectReader(bytes.NewReader(buf), enc))

	text := strings.TrimLeft(string(head), " \t\r\n")
	if strings.HasPrefix(text, "<?xml") || strings.HasPrefix(text, "<document") {
		return true, enc, nil
	}
	return false, enc, nil
}

func readHead(path string, n int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

func ext(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
