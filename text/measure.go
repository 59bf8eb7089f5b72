// Package text provides the width measurement and line breaking used to
// pre-measure paragraph content before flow layout. Proper shaping is out of
// scope; these measurers are deliberately simple but deterministic.
package text

import (
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"typeflow/geom"
)

// Measurer computes the advance width of a text run at a font size.
type Measurer interface {
	Advance(s string, size geom.Abs) geom.Abs
}

// FaceMeasurer measures using a font.Face, scaling the face's natural size to
// the requested one.
type FaceMeasurer struct {
	face font.Face
	// nominal is the size the face renders at natively.
	nominal geom.Abs
}

// NewFaceMeasurer wraps a face whose natural rendering size is nominal points.
func NewFaceMeasurer(face font.Face, nominal geom.Abs) *FaceMeasurer {
	return &FaceMeasurer{face: face, nominal: nominal}
}

// NewBasicMeasurer returns a measurer backed by the fixed 7x13 face. Good
// enough for layout decisions when no real font is available.
func NewBasicMeasurer() *FaceMeasurer {
	return NewFaceMeasurer(basicfont.Face7x13, 13)
}

func (m *FaceMeasurer) Advance(s string, size geom.Abs) geom.Abs {
	adv := font.MeasureString(m.face, s)
	pts := geom.Abs(float64(adv) / 64.0)
	if m.nominal <= 0 {
		return pts
	}
	return pts * size / m.nominal
}

// CellMeasurer approximates advances from terminal cell widths, half an em
// per cell. Useful in tests where exact widths should be easy to predict.
type CellMeasurer struct{}

func (CellMeasurer) Advance(s string, size geom.Abs) geom.Abs {
	return geom.Abs(runewidth.StringWidth(s)) * size / 2
}
