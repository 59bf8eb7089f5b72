package process

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"typeflow/common"
	"typeflow/config"
	"typeflow/markup"
	"typeflow/state"
)

// Values holds the variables available for output name template expansion.
type Values struct {
	Context  string
	Title    string
	ID       string
	Language string
	Source   string
	Ext      string
}

// buildOutputPath returns the constructed output file path based on the
// source path, the destination directory and the configured naming template.
// It honors the "no source subdirectories" switch and optionally
// transliterates path segments.
func buildOutputPath(doc *markup.Document, src, dst string, format common.OutputFmt, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	defaultFile := buildDefaultFileName(src, format, env)

	if env.Cfg.Document.OutputNameTemplate == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expandedName := expandOutputNameTemplate(doc, src, format, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, defaultFile)
	}

	return assemblePathWithSubdirs(outDir, expandedName, env)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func buildDefaultFileName(src string, format common.OutputFmt, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if env.Cfg.Document.FileNameTransliterate {
		baseName = slug.Make(baseName)
	}
	return config.CleanFileName(baseName) + format.Ext()
}

func expandOutputNameTemplate(doc *markup.Document, src string, format common.OutputFmt, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(doc, config.OutputNameTemplateFieldName, env.Cfg.Document.OutputNameTemplate, src, format)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(expandedName)
}

func expandTemplate(doc *markup.Document, name config.TemplateFieldName, field, src string, format common.OutputFmt) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	title := doc.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	values := Values{
		Context:  string(name),
		Title:    title,
		ID:       doc.ID,
		Language: doc.Lang.String(),
		Source:   strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Ext:      format.Ext(),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output
// path, cleaning and transliterating segments as needed. The extension is
// part of the template, so segments are cleaned but nothing is appended.
func assemblePathWithSubdirs(outDir, expandedName string, env *state.LocalEnv) string {
	pathSegments := splitAndCleanPath(expandedName)

	if len(pathSegments) == 0 {
		return outDir
	}

	parts := make([]string, 0, len(pathSegments)+1)
	parts = append(parts, outDir)
	for _, segment := range pathSegments[:len(pathSegments)-1] {
		parts = append(parts, cleanPathSegment(segment, env))
	}

	last := pathSegments[len(pathSegments)-1]
	ext := layoutExt(last)
	name := cleanPathSegment(strings.TrimSuffix(last, ext), env) + ext
	parts = append(parts, name)
	return filepath.Join(parts...)
}

// layoutExt picks off the multi-dot output extension so cleaning does not
// mangle it.
func layoutExt(name string) string {
	for _, e := range []string{common.OutputFmtTree.Ext(), common.OutputFmtJSON.Ext()} {
		if strings.HasSuffix(name, e) {
			return e
		}
	}
	return filepath.Ext(name)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
		path = head
	}

	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
