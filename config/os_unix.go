//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// CleanFileName strips path separators and leading dots so the result is
// always a plain file name.
func CleanFileName(in string) string {
	bad := string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.Map(func(r rune) rune {
		if strings.ContainsRune(bad, r) {
			return -1
		}
		return r
	}, in)
	out = strings.TrimLeft(out, ".")
	if out == "" {
		return "_bad_file_name_"
	}
	return out
}

// EnableColorOutput reports whether the stream is a terminal that can take
// colorized log output.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
