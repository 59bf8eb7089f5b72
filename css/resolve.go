package css

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"typeflow/common"
	"typeflow/geom"
)

// Styles holds the resolved, absolute style values the layout engine consumes.
// All lengths are in points; relative units are resolved during Resolve and
// never survive into this struct.
type Styles struct {
	FontSize   geom.Abs
	LineHeight geom.Abs
	// SpaceAbove/SpaceBelow separate a block from its siblings.
	SpaceAbove geom.Abs
	SpaceBelow geom.Abs
	// Breakable allows a block to be split across columns and regions.
	Breakable bool
	Dir       geom.Dir

	ColumnCount int
	ColumnGap   geom.Abs

	FootnoteClearance    geom.Abs
	FootnoteGap          geom.Abs
	FootnoteSepThickness geom.Abs
	// FootnoteSepLength is a fraction of the column width.
	FootnoteSepLength float64

	LineNumbers bool
	// LineNumberScope controls where line numbers reset.
	LineNumberScope common.LineNumberingScope
	// LineNumberClearance of zero means "derive from region width".
	LineNumberClearance geom.Abs
}

// Default returns the style values in effect before any stylesheet applies.
func Default() Styles {
	return Styles{
		FontSize:             10,
		LineHeight:           13,
		SpaceAbove:           0,
		SpaceBelow:           7,
		Breakable:            true,
		Dir:                  geom.LTR,
		ColumnCount:          1,
		ColumnGap:            12,
		FootnoteClearance:    14,
		FootnoteGap:          6,
		FootnoteSepThickness: 0.5,
		FootnoteSepLength:    0.3,
		LineNumbers:          false,
		LineNumberScope:      common.NumberingScopeDocument,
	}
}

// Resolver applies a parsed stylesheet on top of base styles.
type Resolver struct {
	sheet *Stylesheet
	log   *zap.Logger
}

// NewResolver creates a resolver for the given stylesheet. A nil stylesheet
// resolves everything to the base styles.
func NewResolver(sheet *Stylesheet, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{sheet: sheet, log: log.Named("css-resolve")}
}

// For resolves the styles of a node with the given element name and class,
// starting from base. Rules apply in specificity order; unknown properties
// are logged at debug level and skipped, never fatal.
func (r *Resolver) For(element, class string, base Styles) Styles {
	out := base
	if r.sheet == nil {
		return out
	}
	for _, rule := range r.sheet.RulesFor(element, class) {
		// Sorted application keeps em-relative values deterministic: font-size
		// lands before the properties resolved against it.
		for _, name := range slices.Sorted(maps.Keys(rule.Properties)) {
			r.apply(&out, name, rule.Properties[name])
		}
	}
	return out
}

func (r *Resolver) apply(s *Styles, name string, val Value) {
	switch name {
	case "font-size":
		s.FontSize = r.length(val, s.FontSize, s.FontSize)
	case "line-height":
		if val.Unit == "" && val.Value != 0 {
			// Unitless line-height is a multiplier of the font size.
			s.LineHeight = geom.Abs(val.Value) * s.FontSize
			return
		}
		s.LineHeight = r.length(val, s.FontSize, s.LineHeight)
	case "margin-top":
		s.SpaceAbove = r.length(val, s.FontSize, s.SpaceAbove)
	case "margin-bottom":
		s.SpaceBelow = r.length(val, s.FontSize, s.SpaceBelow)
	case "break-inside":
		s.Breakable = val.Keyword != "avoid"
	case "direction":
		if val.Keyword == "rtl" {
			s.Dir = geom.RTL
		} else {
			s.Dir = geom.LTR
		}
	case "column-count":
		if n := int(val.Value); n >= 1 {
			s.ColumnCount = n
		}
	case "column-gap":
		s.ColumnGap = r.length(val, s.FontSize, s.ColumnGap)
	case "footnote-clearance":
		s.FootnoteClearance = r.length(val, s.FontSize, s.FootnoteClearance)
	case "footnote-gap":
		s.FootnoteGap = r.length(val, s.FontSize, s.FootnoteGap)
	case "footnote-separator-thickness":
		s.FootnoteSepThickness = r.length(val, s.FontSize, s.FootnoteSepThickness)
	case "footnote-separator-length":
		if val.Unit == "%" {
			s.FootnoteSepLength = val.Value / 100
		}
	case "line-numbers":
		s.LineNumbers = val.Keyword == "on" || val.Keyword == "true"
	case "line-numbers-scope":
		scope, err := common.ParseLineNumberingScope(val.Keyword)
		if err != nil {
			r.log.Debug("Unknown line numbering scope", zap.String("value", val.Raw))
			return
		}
		s.LineNumberScope = scope
	case "line-numbers-clearance":
		s.LineNumberClearance = r.length(val, s.FontSize, s.LineNumberClearance)
	default:
		r.log.Debug("Ignoring unsupported property", zap.String("property", name), zap.String("value", val.Raw))
	}
}

// length resolves a dimension value against the font size (for em) keeping
// prev when the value is not usable. Percent values are not meaningful for
// the lengths handled here and fall back to prev.
func (r *Resolver) length(val Value, em, prev geom.Abs) geom.Abs {
	switch val.Unit {
	case "pt":
		return geom.Abs(val.Value)
	case "px":
		// CSS reference pixel at 96dpi
		return geom.Abs(val.Value * 72.0 / 96.0)
	case "em":
		return geom.Abs(val.Value) * em
	case "":
		if val.IsNumeric() {
			return geom.Abs(val.Value)
		}
	}
	r.log.Debug("Unsupported length value", zap.String("value", val.Raw))
	return prev
}
