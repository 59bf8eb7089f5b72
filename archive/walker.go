// Package archive walks zip archives holding source documents.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"path"
	"strings"
)

// WalkFunc is called for every matched file. The archive argument is the path
// of the archive being walked, file is the entry inside it. A non-nil error
// stops the walk and is returned from Walk as is.
type WalkFunc func(archive string, file *zip.File) error

// Walk visits every regular file in the archive whose name starts with
// pattern, in archive order. An entry with an absolute name or a path
// traversal component aborts the walk: such archives are hostile, not merely
// malformed. The context is checked between entries so a large archive can be
// canceled mid-walk.
func Walk(ctx context.Context, archive, pattern string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		// OpenReader hands back a usable reader alongside ErrInsecurePath.
		if r != nil {
			r.Close()
		}
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, pattern) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath rejects names that could escape an extraction directory.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
