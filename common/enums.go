// Shared enumerations for the layout pipeline. They live in their own package
// because both the configuration layer and the flow core need them and neither
// should import the other.
package common

import "fmt"

// FlowMode gates which flow features are active.
type FlowMode int

const (
	// FlowModeRoot hosts block-level children and additionally footnotes and
	// line numbers.
	FlowModeRoot FlowMode = iota
	// FlowModeBlock hosts block-level children.
	FlowModeBlock
	// FlowModeInline hosts inline-level children.
	FlowModeInline
)

func (m FlowMode) String() string {
	switch m {
	case FlowModeRoot:
		return "root"
	case FlowModeBlock:
		return "block"
	case FlowModeInline:
		return "inline"
	default:
		return fmt.Sprintf("FlowMode(%d)", int(m))
	}
}

// PlacementScope is the granularity at which a float or a relayout applies.
type PlacementScope int

const (
	ScopeColumn PlacementScope = iota
	ScopePage
)

func (s PlacementScope) String() string {
	switch s {
	case ScopeColumn:
		return "column"
	case ScopePage:
		return "page"
	default:
		return fmt.Sprintf("PlacementScope(%d)", int(s))
	}
}

func ParsePlacementScope(s string) (PlacementScope, error) {
	switch s {
	case "", "column":
		return ScopeColumn, nil
	case "page", "parent":
		return ScopePage, nil
	default:
		return ScopeColumn, fmt.Errorf("unknown placement scope %q", s)
	}
}

// PlacementPos is the preferred vertical position of a floating element.
type PlacementPos int

const (
	PlaceAuto PlacementPos = iota
	PlaceTop
	PlaceBottom
)

func (p PlacementPos) String() string {
	switch p {
	case PlaceAuto:
		return "auto"
	case PlaceTop:
		return "top"
	case PlaceBottom:
		return "bottom"
	default:
		return fmt.Sprintf("PlacementPos(%d)", int(p))
	}
}

func ParsePlacementPos(s string) (PlacementPos, error) {
	switch s {
	case "", "auto":
		return PlaceAuto, nil
	case "top":
		return PlaceTop, nil
	case "bottom":
		return PlaceBottom, nil
	default:
		return PlaceAuto, fmt.Errorf("unknown placement position %q", s)
	}
}

// LineNumberingScope controls where line numbers are reset.
type LineNumberingScope int

const (
	// NumberingScopeDocument numbers lines continuously across regions.
	NumberingScopeDocument LineNumberingScope = iota
	// NumberingScopePage restarts numbering with every produced region.
	NumberingScopePage
)

func (s LineNumberingScope) String() string {
	switch s {
	case NumberingScopeDocument:
		return "document"
	case NumberingScopePage:
		return "page"
	default:
		return fmt.Sprintf("LineNumberingScope(%d)", int(s))
	}
}

func ParseLineNumberingScope(s string) (LineNumberingScope, error) {
	switch s {
	case "", "document":
		return NumberingScopeDocument, nil
	case "page":
		return NumberingScopePage, nil
	default:
		return NumberingScopeDocument, fmt.Errorf("unknown line numbering scope %q", s)
	}
}

// OutputFmt is the requested rendering of the layout result.
type OutputFmt int

const (
	// OutputFmtTree renders the frame tree as indented text.
	OutputFmtTree OutputFmt = iota
	// OutputFmtJSON renders the frame tree as JSON.
	OutputFmtJSON
)

func (o OutputFmt) String() string {
	switch o {
	case OutputFmtTree:
		return "tree"
	case OutputFmtJSON:
		return "json"
	default:
		return fmt.Sprintf("OutputFmt(%d)", int(o))
	}
}

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtJSON:
		return ".layout.json"
	default:
		return ".layout.txt"
	}
}

func OutputFmtNames() []string {
	return []string{OutputFmtTree.String(), OutputFmtJSON.String()}
}

func ParseOutputFmt(s string) (OutputFmt, error) {
	switch s {
	case "", "tree":
		return OutputFmtTree, nil
	case "json":
		return OutputFmtJSON, nil
	default:
		return OutputFmtTree, fmt.Errorf("unknown output format %q", s)
	}
}

// BreakKind distinguishes explicit break requests in the source markup.
type BreakKind int

const (
	BreakColumn BreakKind = iota
	BreakRegion
)

func (b BreakKind) String() string {
	switch b {
	case BreakColumn:
		return "column"
	case BreakRegion:
		return "region"
	default:
		return fmt.Sprintf("BreakKind(%d)", int(b))
	}
}

func ParseBreakKind(s string) (BreakKind, error) {
	switch s {
	case "", "column":
		return BreakColumn, nil
	case "region", "page":
		return BreakRegion, nil
	default:
		return BreakColumn, fmt.Errorf("unknown break kind %q", s)
	}
}
