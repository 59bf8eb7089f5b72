// Package markup reads the engine's source document format: a small XML
// dialect with paragraphs, blocks, floating figures, footnotes and embedded
// binaries. Its output is the canonical, ordered node sequence the flow
// layout consumes; layout never touches the DOM again.
package markup

import (
	"golang.org/x/text/language"

	"typeflow/common"
	"typeflow/diag"
	"typeflow/geom"
	"typeflow/text"
)

// NodeKind discriminates the canonical content nodes.
type NodeKind int

const (
	// KindPara is a paragraph of inline spans, broken into lines for layout.
	KindPara NodeKind = iota
	// KindBlock is a rectangular block, either explicitly sized or wrapping
	// nested content.
	KindBlock
	// KindFigure is a floating element with a placement preference.
	KindFigure
	// KindImage is a non-floating embedded image reference.
	KindImage
	// KindBreak is an explicit column or region break request.
	KindBreak
	// KindLabel is an introspection anchor that occupies no space.
	KindLabel
)

func (k NodeKind) String() string {
	switch k {
	case KindPara:
		return "p"
	case KindBlock:
		return "block"
	case KindFigure:
		return "figure"
	case KindImage:
		return "image"
	case KindBreak:
		return "br"
	case KindLabel:
		return "label"
	default:
		return "node"
	}
}

// Node is one canonical content node. Nodes are created once by Prepare and
// never mutated afterwards; the flow layer holds read-only references.
type Node struct {
	Kind NodeKind
	Loc  diag.Location
	// Class selects stylesheet rules, may be empty.
	Class string

	// Spans is the inline content of a paragraph, including footnote markers.
	Spans []text.Span

	// Breakable, for blocks: nil means "use the stylesheet", otherwise the
	// explicit breakable attribute.
	Breakable *bool
	// Height is an explicit height for blocks and figures, zero if derived
	// from content.
	Height geom.Abs
	// Children carries nested block content.
	Children []*Node

	// Placement of a figure.
	Place common.PlacementPos
	Scope common.PlacementScope

	// ImageID references a binary for figures and images.
	ImageID string

	// Break is the kind of an explicit break node.
	Break common.BreakKind

	// Label is the slug of a label node.
	Label string
}

// Note is a footnote entry: marker id plus the entry's inline content.
type Note struct {
	ID    string
	Loc   diag.Location
	Spans []text.Span
}

// Image is a decoded binary object with its intrinsic size in points.
type Image struct {
	ID       string
	MimeType string
	Width    geom.Abs
	Height   geom.Abs
	Data     []byte
}

// NoteIndex maps footnote ids to entries.
type NoteIndex map[string]*Note

// ImageIndex maps binary ids to decoded images.
type ImageIndex map[string]*Image

// Document is the fully prepared source document.
type Document struct {
	SrcName string
	// ID is a valid UUID, generated when the source had none.
	ID string
	// Title is the optional document title, used for output naming only.
	Title string
	Lang  language.Tag

	// Stylesheet is the raw embedded stylesheet text, may be empty.
	Stylesheet []byte

	// Body is the flattened content sequence in document order.
	Body []*Node

	Notes  NoteIndex
	Images ImageIndex

	// nodes counts assigned ordinals, including note entries.
	nodes int
}

// Dir returns the text direction implied by the document language.
func (d *Document) Dir() geom.Dir {
	// Script-based RTL detection keeps us honest for tagged-but-unscripted
	// languages like "ar" vs "ar-Latn".
	base, conf := d.Lang.Base()
	if conf == language.No {
		return geom.LTR
	}
	switch base.String() {
	case "ar", "he", "fa", "ur", "yi":
		return geom.RTL
	default:
		return geom.LTR
	}
}
