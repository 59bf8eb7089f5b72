package geom

// Frame is a finished, fully positioned visual tree for one region. Items are
// stored in paint order; positions are relative to the frame's top-left
// corner. Frames are cheap to move around because leaf payloads are small.
type Frame struct {
	size  Size
	items []Placed
}

// Placed is one item of a frame together with its position.
type Placed struct {
	Pos  Point
	Item Item
}

// Item is one piece of visual (or zero-size introspection) content. The set
// of implementations is closed; consumers switch over the concrete types.
type Item interface {
	isFrameItem()
}

// GroupItem nests a subframe.
type GroupItem struct {
	Frame *Frame
}

// TextItem is a single laid-out line of text.
type TextItem struct {
	Text string
	// Size is the font size the line was measured with.
	Size Abs
}

// ElemItem is an opaque leaf standing in for non-text content (images,
// pre-rendered blocks). Kind names the element role, Label its source id.
type ElemItem struct {
	Kind  string
	Label string
}

// RuleItem is a horizontal rule, used for the footnote separator.
type RuleItem struct {
	Length    Abs
	Thickness Abs
}

// TagItem is an introspection marker. It occupies no space; its position is
// the logical point at which the tagged element was encountered.
type TagItem struct {
	Name    string
	Ordinal int
}

func (GroupItem) isFrameItem() {}
func (TextItem) isFrameItem()  {}
func (ElemItem) isFrameItem()  {}
func (RuleItem) isFrameItem()  {}
func (TagItem) isFrameItem()   {}

// NewFrame creates an empty frame of the given size.
func NewFrame(size Size) *Frame {
	return &Frame{size: size}
}

func (f *Frame) Size() Size {
	return f.size
}

func (f *Frame) Width() Abs {
	return f.size.W
}

func (f *Frame) Height() Abs {
	return f.size.H
}

// SetSize changes the frame size without moving its items.
func (f *Frame) SetSize(size Size) {
	f.size = size
}

// Grow extends the frame's height, keeping existing items in place.
func (f *Frame) Grow(dy Abs) {
	f.size.H += dy
}

// Push appends an item at the given position.
func (f *Frame) Push(pos Point, item Item) {
	f.items = append(f.items, Placed{Pos: pos, Item: item})
}

// PushFrame appends a subframe as a group item.
func (f *Frame) PushFrame(pos Point, sub *Frame) {
	f.Push(pos, GroupItem{Frame: sub})
}

// Items returns the frame's items in paint order.
func (f *Frame) Items() []Placed {
	return f.items
}

// IsEmpty reports whether the frame holds no items at all.
func (f *Frame) IsEmpty() bool {
	return len(f.items) == 0
}

// Translate moves all items by the given offset.
func (f *Frame) Translate(by Point) {
	for i := range f.items {
		f.items[i].Pos = f.items[i].Pos.Add(by)
	}
}

// Walk visits every item of the frame tree in paint order, passing the item's
// absolute position. Returning false from fn stops the walk.
func (f *Frame) Walk(fn func(pos Point, item Item) bool) bool {
	return f.walk(Point{}, fn)
}

func (f *Frame) walk(origin Point, fn func(pos Point, item Item) bool) bool {
	for _, p := range f.items {
		abs := origin.Add(p.Pos)
		if g, ok := p.Item.(GroupItem); ok {
			if !g.Frame.walk(abs, fn) {
				return false
			}
			continue
		}
		if !fn(abs, p.Item) {
			return false
		}
	}
	return true
}
