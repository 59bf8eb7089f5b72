package flow

import (
	"typeflow/common"
	"typeflow/css"
	"typeflow/geom"
)

// Config is the fixed configuration of one flow invocation, derived once from
// the resolved styles and the region geometry. It never changes while regions
// are being composed.
type Config struct {
	Mode   common.FlowMode
	Shared css.Styles

	Columns  ColumnsConfig
	Footnote FootnoteConfig
	// LineNumbers is nil when line numbering is off.
	LineNumbers *LineNumberConfig
}

// ColumnsConfig is the column geometry shared by every region of the flow.
type ColumnsConfig struct {
	Count  int
	Width  geom.Abs
	Gutter geom.Abs
	Dir    geom.Dir
}

// FootnoteConfig controls the footnote area at the bottom of a region.
type FootnoteConfig struct {
	// Clearance separates column content from the separator line.
	Clearance geom.Abs
	// Gap separates the separator from the first entry and entries from each
	// other.
	Gap geom.Abs
	// Separator rule geometry; SepLength is a fraction of the column width.
	SepThickness geom.Abs
	SepLength    float64
}

// LineNumberConfig controls margin line numbers in root mode.
type LineNumberConfig struct {
	Scope common.LineNumberingScope
	// Clearance between the number's right edge and the column content.
	Clearance geom.Abs
}

// configuration derives the flow configuration. Columns and footnotes only
// apply in root mode; an unbounded width collapses to a single column because
// column widths cannot be computed against infinity.
func configuration(shared css.Styles, regions geom.Regions, mode common.FlowMode) Config {
	cfg := Config{Mode: mode, Shared: shared}

	count := 1
	if mode == common.FlowModeRoot && regions.Size.W.IsFinite() {
		count = max(shared.ColumnCount, 1)
	}
	width := regions.Size.W
	if count > 1 {
		width = (regions.Size.W - shared.ColumnGap*geom.Abs(count-1)) / geom.Abs(count)
	}
	cfg.Columns = ColumnsConfig{
		Count:  count,
		Width:  width,
		Gutter: shared.ColumnGap,
		Dir:    shared.Dir,
	}

	if mode == common.FlowModeRoot {
		cfg.Footnote = FootnoteConfig{
			Clearance:    shared.FootnoteClearance,
			Gap:          shared.FootnoteGap,
			SepThickness: shared.FootnoteSepThickness,
			SepLength:    shared.FootnoteSepLength,
		}
		if shared.LineNumbers {
			cfg.LineNumbers = &LineNumberConfig{
				Scope:     shared.LineNumberScope,
				Clearance: lineNumberClearance(shared, width),
			}
		}
	}

	return cfg
}

// lineNumberClearance resolves the default clearance from the column width: a
// narrow column keeps numbers close, a wide one pushes them further out, both
// bounded in em of the shared font size.
func lineNumberClearance(shared css.Styles, width geom.Abs) geom.Abs {
	if shared.LineNumberClearance > 0 {
		return shared.LineNumberClearance
	}
	lo := 0.75 * shared.FontSize
	hi := 2.5 * shared.FontSize
	return (0.026 * width).Clamped(lo, hi)
}
