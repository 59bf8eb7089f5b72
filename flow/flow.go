// Package flow arranges prepared document content into a sequence of sized
// regions: columns, breakable blocks, floating figures and footnotes. The
// heart of the package is the region composition loop in compose.go; this
// file owns the engine, its entry points and the region driver.
package flow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"typeflow/common"
	"typeflow/css"
	"typeflow/diag"
	"typeflow/geom"
	"typeflow/markup"
	"typeflow/text"
)

// maxDepth bounds flow nesting. Blocks laying out their content start a
// nested flow; a chain deeper than this is a sign of runaway recursion, not
// of a legitimate document.
const maxDepth = 64

// Engine lays out prepared documents. An engine is not safe for concurrent
// use: the memo cache and the nesting counter are unsynchronized.
type Engine struct {
	log      *zap.Logger
	measurer text.Measurer
	memo     *memoCache
	store    PersistentCache
	depth    int
}

// PersistentCache is an optional second-level layout cache consulted on memo
// misses and fed on successful layouts. Implementations must tolerate
// concurrent processes but not concurrent calls from one engine. A lookup or
// store failure must surface as a miss, never as an error.
type PersistentCache interface {
	Get(key uint64) ([]*geom.Frame, []diag.Diagnostic, bool)
	Put(key uint64, frames []*geom.Frame, diags []diag.Diagnostic)
}

// SetStore attaches a persistent cache to the engine. Pass nil to detach.
func (e *Engine) SetStore(store PersistentCache) {
	e.store = store
}

// NewEngine creates a layout engine. A nil measurer falls back to the basic
// built-in face.
func NewEngine(log *zap.Logger, m text.Measurer) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = text.NewBasicMeasurer()
	}
	return &Engine{
		log:      log.Named("flow"),
		measurer: m,
		memo:     newMemoCache(),
	}
}

// Fragment is the ordered sequence of region frames a layout run produced,
// one frame per consumed region.
type Fragment []*geom.Frame

// LayoutDocument lays the whole document into the given region sequence. This
// is the root-mode entry point: columns, footnotes and line numbers are all
// active. The returned diagnostics are in discovery order and include
// warnings; the error is non-nil only when layout had to give up.
//
// Invocations are memoized on the document content and the region geometry.
// Frames of a memoized result are shared, callers must treat them as
// read-only.
func (e *Engine) LayoutDocument(ctx context.Context, doc *markup.Document, regions geom.Regions) (Fragment, []diag.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sheet := css.NewParser(e.log).Parse(doc.Stylesheet, doc.SrcName)
	shared := css.NewResolver(sheet, e.log).For("document", "", css.Default())
	shared.Dir = doc.Dir()

	key := e.memoKey(doc, sheet, regions, common.FlowModeRoot)
	if frames, diags, ok := e.memo.lookup(key); ok {
		e.log.Debug("Layout memo hit", zap.String("doc", doc.ID))
		return frames, diags, diag.Combine(errors(diags))
	}
	if e.store != nil {
		if frames, diags, ok := e.store.Get(key); ok {
			e.log.Debug("Layout cache hit", zap.String("doc", doc.ID))
			e.memo.store(key, frames, diags)
			return frames, diags, diag.Combine(errors(diags))
		}
	}

	sink := diag.NewSink(e.log)
	frames, err := e.layoutRoot(ctx, doc, shared, sheet, regions, sink)
	diags := sink.All()
	if err == nil {
		e.memo.store(key, frames, diags)
		if e.store != nil {
			e.store.Put(key, frames, diags)
		}
	}
	return frames, diags, err
}

// LayoutFrame lays the document into a single region and returns one frame.
func (e *Engine) LayoutFrame(ctx context.Context, doc *markup.Document, region geom.Region) (*geom.Frame, []diag.Diagnostic, error) {
	frames, diags, err := e.LayoutDocument(ctx, doc, geom.OneRegion(region))
	if err != nil {
		return nil, diags, err
	}
	if len(frames) != 1 {
		// A single non-breaking region always composes into one frame.
		return nil, diags, fmt.Errorf("single region produced %d frames", len(frames))
	}
	return frames[0], diags, nil
}

func (e *Engine) layoutRoot(ctx context.Context, doc *markup.Document, shared css.Styles, sheet *css.Stylesheet, regions geom.Regions, sink *diag.Sink) (Fragment, error) {
	if stop := checkRegions(regions); stop != nil {
		sink.Extend(stop.diags)
		return nil, diag.Combine(stop.diags)
	}

	cfg := configuration(shared, regions, common.FlowModeRoot)
	cc := &collectCtx{
		engine:   e,
		ctx:      ctx,
		doc:      doc,
		resolver: css.NewResolver(sheet, e.log),
		shared:   shared,
		width:    cfg.Columns.Width,
		mode:     cfg.Mode,
		sink:     sink,
	}
	children, stop := cc.collect(doc.Body)
	if stop != nil {
		sink.Extend(stop.diags)
		return nil, diag.Combine(stop.diags)
	}

	frames, stop := e.layout(ctx, newWork(children), &cfg, regions, sink)
	if stop != nil {
		sink.Extend(stop.diags)
		return nil, diag.Combine(stop.diags)
	}
	return frames, nil
}

// layoutNested lays block content into a single unbounded region, producing
// the block's inner frame. Used while collecting children of non-breakable
// blocks; footnote markers inside are surfaced through notes so the enclosing
// flow can host the entries.
func (e *Engine) layoutNested(ctx context.Context, cc *collectCtx, nodes []*markup.Node, shared css.Styles, width geom.Abs) (*geom.Frame, *Stop) {
	if e.depth >= maxDepth {
		return nil, fatal(diag.Errorf(diag.Location{}, "maximum flow nesting depth %d exceeded", maxDepth))
	}
	e.depth++
	defer func() { e.depth-- }()

	regions := geom.OneRegion(geom.Region{Size: geom.Size{W: width, H: geom.Inf()}})
	cfg := configuration(shared, regions, common.FlowModeBlock)
	sub := &collectCtx{
		engine:   e,
		ctx:      ctx,
		doc:      cc.doc,
		resolver: cc.resolver,
		shared:   shared,
		width:    width,
		mode:     common.FlowModeBlock,
		sink:     cc.sink,
		entries:  cc.entries,
	}
	children, stop := sub.collect(nodes)
	if stop != nil {
		return nil, stop
	}
	frames, stop := e.layout(ctx, newWork(children), &cfg, regions, cc.sink)
	if stop != nil {
		return nil, stop
	}
	return frames[0], nil
}

// layout is the region driver: it composes one frame per region until all
// work is arranged, advancing the region sequence between frames.
func (e *Engine) layout(ctx context.Context, work *Work, cfg *Config, regions geom.Regions, sink *diag.Sink) (Fragment, *Stop) {
	var frames Fragment
	c := newComposer(e, cfg, sink)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fatal(diag.Errorf(diag.Location{}, "layout canceled: %v", err))
		}

		pending := work.pending()
		frame, stop := c.region(work, regions)
		if stop != nil && stop.kind == stopError {
			return nil, stop
		}
		frames = append(frames, frame)

		forced := stop != nil && stop.region
		if work.done() && !forced {
			// Expansion into a fixed backlog still owes one frame per
			// remaining region.
			if !regions.Expand.Y || len(regions.Backlog) == 0 {
				break
			}
		}

		if !forced && !work.done() && work.pending() == pending {
			// A full region pass arranged nothing. The distributor's overflow
			// rules are supposed to make this impossible; bail out instead of
			// spinning.
			return nil, fatal(diag.Errorf(diag.Location{}, "no progress laying out region %d", len(frames)))
		}

		regions.Next()
	}

	e.log.Debug("Layout done", zap.Int("regions", len(frames)), zap.Int("diagnostics", len(sink.All())))
	return frames, nil
}

// pending measures arrangeable work for the driver's progress check. Partial
// spills contribute fractionally so a region that advanced a spill without
// exhausting it still counts as progress. Queued floats and migrated footnote
// entries weigh less than fresh children: a region that placed a child but had
// to queue its float or footnote for later still made progress.
func (w *Work) pending() float64 {
	n := float64(len(w.children)) + 0.5*float64(len(w.floats)+len(w.footnotes))
	if w.spill != nil {
		n += w.spill.fraction()
	}
	if w.footnoteSpill != nil {
		n += w.footnoteSpill.fraction()
	}
	return n
}

// checkRegions rejects geometry the engine cannot satisfy: expansion into an
// unbounded axis would require producing an infinite frame.
func checkRegions(regions geom.Regions) *Stop {
	var ds []diag.Diagnostic
	if regions.Expand.X && !regions.Size.W.IsFinite() {
		ds = append(ds, diag.Errorf(diag.Location{}, "cannot expand into unbounded width"))
	}
	if regions.Expand.Y && !regions.Size.H.IsFinite() {
		ds = append(ds, diag.Errorf(diag.Location{}, "cannot expand into unbounded height"))
	}
	if len(ds) > 0 {
		return fatal(ds...)
	}
	return nil
}

func errors(ds []diag.Diagnostic) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range ds {
		if d.Severity == diag.SeverityError {
			out = append(out, d)
		}
	}
	return out
}
