// Package process drives the layout pipeline for the CLI: it resolves input
// sources (files, directories, archives), prepares each document, lays it out
// and writes the rendered frame tree to the destination.
package process

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"typeflow/archive"
	"typeflow/cache"
	"typeflow/common"
	"typeflow/config"
	"typeflow/flow"
	"typeflow/geom"
	"typeflow/markup"
	"typeflow/render"
	"typeflow/state"
)

// runner carries everything one processing invocation shares across
// documents: the layout engine (with its memo), the optional persistent
// cache, the region geometry and the stylesheet override.
type runner struct {
	engine  *flow.Engine
	store   *cache.Store
	regions geom.Regions
	format  common.OutputFmt
	style   []byte
	log     *zap.Logger
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	format, err := common.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to tree", zap.Error(err))
		format = common.OutputFmtTree
	}
	env.Format = format

	var style []byte
	if env.Cfg.Layout.StylesheetPath != "" {
		style, err = os.ReadFile(env.Cfg.Layout.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read stylesheet from %q: %w", env.Cfg.Layout.StylesheetPath, err)
		}
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) == 0 {
		cp = env.Cfg.Document.ForceZipEncoding
	}
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	r := &runner{
		engine:  flow.NewEngine(env.Log, nil),
		regions: regionsFromConfig(&env.Cfg.Layout.Page),
		format:  format,
		style:   style,
		log:     log,
	}
	if env.Cfg.Cache.Enable {
		path := env.Cfg.Cache.Path
		if path == "" {
			path = filepath.Join(dst, "typeflow-cache.db")
		}
		store, err := cache.Open(path, env.Log)
		if err != nil {
			// layout works without it
			log.Warn("Unable to open layout cache", zap.String("path", path), zap.Error(err))
		} else {
			defer store.Close()
			r.store = store
			r.engine.SetStore(store)
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return r.process(ctx, src, dst)
}

// regionsFromConfig turns the configured page geometry into the region
// sequence layout runs against: optional explicit leading heights, then the
// page height repeating.
func regionsFromConfig(page *config.PageConfig) geom.Regions {
	regions := geom.NewRegions(
		geom.Size{W: geom.Abs(page.Width), H: geom.Abs(page.Height)},
		geom.Axes[bool]{Y: page.Expand},
	)
	if len(page.Regions) > 0 {
		regions.Size.H = geom.Abs(page.Regions[0])
		regions.Full = regions.Size.H
		for _, h := range page.Regions[1:] {
			regions.Backlog = append(regions.Backlog, geom.Abs(h))
		}
	}
	return regions
}

// process handles the core pipeline independently of the CLI framework. It
// determines the input type (directory, archive, or single file) and
// processes accordingly.
func (r *runner) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := r.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArc, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArc {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := r.processArchive(ctx, head, tail, "", dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		book, enc, err := isBookFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if book && len(tail) == 0 {
			file, err := os.Open(head)
			if err != nil {
				return fmt.Errorf("unable to open file (%s): %w", head, err)
			}
			defer file.Close()
			if err := r.processBook(ctx, selectReader(file, enc), filepath.Base(head), dst); err != nil {
				r.log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			}
			break
		}
		return fmt.Errorf("input was not recognized as layout source (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks the directory tree finding source documents and archives
// and processes them in natural name order, so "ch2" sorts before "ch10" and
// reruns are deterministic.
func (r *runner) processDir(ctx context.Context, dir, dst string) error {
	var books, archives []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			r.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		isArc, err := isArchiveFile(path)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArc {
			archives = append(archives, path)
			return nil
		}

		book, _, err := isBookFile(path)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !book {
			r.log.Debug("Skipping file, not recognized as source or archive", zap.String("file", path))
			return nil
		}
		books = append(books, path)
		return nil
	})
	if err != nil {
		return err
	}
	if len(books)+len(archives) == 0 {
		r.log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}

	sort.Sort(natural.StringSlice(books))
	sort.Sort(natural.StringSlice(archives))

	for _, path := range books {
		if err := ctx.Err(); err != nil {
			return err
		}
		// re-sniff: walk order and processing order differ
		_, enc, err := isBookFile(path)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		file, err := os.Open(path)
		if err != nil {
			r.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			continue
		}
		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := r.processBook(ctx, selectReader(file, enc), src, dst); err != nil {
			r.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		file.Close()
	}
	for _, path := range archives {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst); err != nil {
			r.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
		}
	}
	return nil
}

// processArchive walks all files inside the archive, finds source documents
// under "pathIn" and processes them.
func (r *runner) processArchive(ctx context.Context, path, pathIn, pathOut, dst string) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			r.log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	err = archive.Walk(ctx, path, pathIn, func(arc string, f *zip.File) error {
		book, enc, err := isBookInArchive(f)
		if err != nil {
			r.log.Warn("Skipping file in archive",
				zap.String("archive", arc), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !book {
			r.log.Debug("Skipping file, not recognized as source", zap.String("archive", arc), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		rd, err := f.Open()
		if err != nil {
			r.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		defer rd.Close()

		cp := state.EnvFromContext(ctx).CodePage

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				r.log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if err := r.processBook(ctx, selectReader(rd, enc), filepath.Join(pathOut, pathInArchive), dst); err != nil {
			r.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
	return err
}

// processBook lays out a single source document. "src" is the source path
// relative to the original input (just the base name for a direct file, the
// relative path inside an archive or directory otherwise) and "dst" is the
// destination directory for the rendered result.
func (r *runner) processBook(ctx context.Context, rd io.Reader, src, dst string) (rerr error) {
	env := state.EnvFromContext(ctx)

	var refID, outputName string

	r.log.Info("Layout starting", zap.String("from", src))
	defer func(start time.Time) {
		// a bad document must not take the whole batch down
		if p := recover(); p != nil {
			r.log.Error("Layout ended with panic",
				zap.Any("panic", p), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("layout panic: %v", p)
		} else {
			r.log.Info("Layout completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.String("ref_id", refID))
		}
	}(time.Now())

	doc, err := markup.Prepare(ctx, rd, src, env.Log)
	if err != nil {
		return fmt.Errorf("unable to parse source (%s): %w", src, err)
	}
	refID = doc.ID

	if r.style != nil {
		doc.Stylesheet = r.style
	} else if len(doc.Stylesheet) == 0 {
		doc.Stylesheet = env.DefaultStyle
	}

	frames, diags, err := r.engine.LayoutDocument(ctx, doc, r.regions.Clone())
	if err != nil {
		return fmt.Errorf("unable to lay out document (%s): %w", src, err)
	}

	outputName = buildOutputPath(doc, src, dst, r.format, env)

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		r.log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	var data []byte
	switch r.format {
	case common.OutputFmtJSON:
		if data, err = render.JSON(frames, diags); err != nil {
			return fmt.Errorf("unable to render layout: %w", err)
		}
	default:
		data = []byte(render.Tree(frames))
	}
	if err := os.WriteFile(outputName, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	// Store layout result for debugging
	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", refID, r.format.Ext()), outputName)
	}

	return nil
}
