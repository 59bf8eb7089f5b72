// Package render turns finished layout fragments into their external forms:
// an indented frame tree for humans and JSON for tooling and the persistent
// layout cache.
package render

import (
	"fmt"

	"typeflow/geom"
)

// Tree renders frames as indented text, one line per item, in paint order.
// Positions are absolute within their region frame.
func Tree(frames []*geom.Frame) string {
	tw := NewTreeWriter()
	for i, f := range frames {
		tw.Line(0, "frame %d: %s", i, f.Size())
		writeFrame(tw, 1, f)
	}
	return tw.String()
}

func writeFrame(tw *TreeWriter, depth int, f *geom.Frame) {
	for _, p := range f.Items() {
		switch it := p.Item.(type) {
		case geom.GroupItem:
			tw.Line(depth, "group %s: %s", p.Pos, it.Frame.Size())
			writeFrame(tw, depth+1, it.Frame)
		case geom.TextItem:
			tw.TextBlock(depth, fmt.Sprintf("text %s %s", p.Pos, it.Size), it.Text)
		case geom.ElemItem:
			tw.Line(depth, "%s %s: %s", it.Kind, p.Pos, it.Label)
		case geom.RuleItem:
			tw.Line(depth, "rule %s: length %s thickness %s", p.Pos, it.Length, it.Thickness)
		case geom.TagItem:
			tw.Line(depth, "tag %s: %s #%d", p.Pos, it.Name, it.Ordinal)
		}
	}
}
