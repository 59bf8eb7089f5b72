// Package geom provides the geometric primitives of the layout engine:
// absolute lengths, points, sizes, region sequences and positioned frames.
// The coordinate system is top-left origin with Y growing downwards,
// measured in typographic points.
package geom

import (
	"fmt"
	"math"
)

// Abs is an absolute length in points.
type Abs float64

// Eps is the tolerance used by approximate comparisons. Layout math runs in
// float64 and repeated subtraction of budgets accumulates error, so all
// fitting decisions go through Fits/Approx instead of raw comparison.
const Eps = 1e-6

// Inf is the unbounded length.
func Inf() Abs {
	return Abs(math.Inf(1))
}

func (a Abs) IsFinite() bool {
	return !math.IsInf(float64(a), 0) && !math.IsNaN(float64(a))
}

func (a Abs) Points() float64 {
	return float64(a)
}

// Fits reports whether a length fits into the given budget, with tolerance so
// that a length exactly at the boundary is considered fitting.
func (a Abs) Fits(budget Abs) bool {
	return float64(a) <= float64(budget)+Eps
}

// Approx reports whether two lengths are equal within tolerance.
func (a Abs) Approx(b Abs) bool {
	return math.Abs(float64(a-b)) <= Eps
}

func (a Abs) Min(b Abs) Abs {
	if b < a {
		return b
	}
	return a
}

func (a Abs) Max(b Abs) Abs {
	if b > a {
		return b
	}
	return a
}

// Clamped returns the length clamped to [lo, hi].
func (a Abs) Clamped(lo, hi Abs) Abs {
	return a.Max(lo).Min(hi)
}

func (a Abs) String() string {
	return fmt.Sprintf("%gpt", float64(a))
}

// Point is a position relative to a frame's top-left corner.
type Point struct {
	X, Y Abs
}

func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%s, %s)", p.X, p.Y)
}

// Size is the extent of a rectangular area.
type Size struct {
	W, H Abs
}

func (s Size) String() string {
	return fmt.Sprintf("%s x %s", s.W, s.H)
}

// Axes carries a value per axis. Used for per-axis expansion flags.
type Axes[T any] struct {
	X, Y T
}

// Dir is a horizontal progression direction. It controls the order in which
// columns are visited and laid out.
type Dir int

const (
	LTR Dir = iota
	RTL
)

func (d Dir) String() string {
	if d == RTL {
		return "rtl"
	}
	return "ltr"
}
