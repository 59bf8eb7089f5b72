package geom

// Region is a single rectangular area to lay content into.
type Region struct {
	Size   Size
	Expand Axes[bool]
}

// Regions describes a non-empty sequence of regions: the current one, a
// backlog of subsequent heights and an optional height to repeat once the
// backlog runs out (pages of a document repeat; a fixed list of boxes does
// not). Width and expansion flags are shared by all regions in the sequence;
// column geometry is fixed for the whole flow operation.
type Regions struct {
	// Size is the remaining size of the current region.
	Size Size
	// Full is the height of the current region when it was fresh.
	Full Abs
	// Backlog holds the heights of the regions that follow this one.
	Backlog []Abs
	// Last, if set, is the height of all regions after the backlog is
	// exhausted. A nil Last means the sequence is finite.
	Last *Abs
	// Expand controls whether the produced frames stretch to the full region
	// size on each axis even when the content is smaller.
	Expand Axes[bool]
}

// NewRegions builds a repeating sequence of equally sized regions.
func NewRegions(size Size, expand Axes[bool]) Regions {
	h := size.H
	return Regions{
		Size:   size,
		Full:   size.H,
		Last:   &h,
		Expand: expand,
	}
}

// OneRegion builds a sequence consisting of a single region.
func OneRegion(r Region) Regions {
	return Regions{
		Size:   r.Size,
		Full:   r.Size.H,
		Expand: r.Expand,
	}
}

// Base is the size used to resolve relative values against.
func (r Regions) Base() Size {
	return Size{W: r.Size.W, H: r.Full}
}

// MayProgress reports whether calling Next would provide a different or at
// least another region to lay into.
func (r Regions) MayProgress() bool {
	return len(r.Backlog) > 0 || r.Last != nil
}

// MayBreak reports whether a region break is possible at all.
func (r Regions) MayBreak() bool {
	return r.MayProgress()
}

// Next advances to the next region, consuming one backlog entry or falling
// back to the repeating Last height.
func (r *Regions) Next() {
	if len(r.Backlog) > 0 {
		r.Size.H = r.Backlog[0]
		r.Full = r.Backlog[0]
		r.Backlog = r.Backlog[1:]
		return
	}
	if r.Last != nil {
		r.Size.H = *r.Last
		r.Full = *r.Last
	}
}

// Clone returns a regions value with a copied backlog so the caller can
// advance it without affecting the original.
func (r Regions) Clone() Regions {
	out := r
	out.Backlog = append([]Abs(nil), r.Backlog...)
	if r.Last != nil {
		last := *r.Last
		out.Last = &last
	}
	return out
}
