package geom

import "testing"

func TestAbsFits(t *testing.T) {
	tests := []struct {
		name   string
		a      Abs
		budget Abs
		want   bool
	}{
		{name: "smaller fits", a: 10, budget: 20, want: true},
		{name: "exact fits", a: 20, budget: 20, want: true},
		{name: "within tolerance", a: 20 + Eps/2, budget: 20, want: true},
		{name: "larger does not", a: 20.001, budget: 20, want: false},
		{name: "anything fits infinity", a: 1e9, budget: Inf(), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Fits(tt.budget); got != tt.want {
				t.Errorf("%s.Fits(%s) = %v, want %v", tt.a, tt.budget, got, tt.want)
			}
		})
	}
}

func TestAbsClamped(t *testing.T) {
	if got := Abs(5).Clamped(7.5, 25); got != 7.5 {
		t.Errorf("Clamped below = %s, want 7.5pt", got)
	}
	if got := Abs(50).Clamped(7.5, 25); got != 25 {
		t.Errorf("Clamped above = %s, want 25pt", got)
	}
	if got := Abs(13).Clamped(7.5, 25); got != 13 {
		t.Errorf("Clamped inside = %s, want 13pt", got)
	}
}

func TestAbsIsFinite(t *testing.T) {
	if Inf().IsFinite() {
		t.Error("Inf() reports finite")
	}
	if !Abs(0).IsFinite() || !Abs(-3).IsFinite() {
		t.Error("finite value reports infinite")
	}
}

func TestRegionsNext(t *testing.T) {
	last := Abs(50)
	r := Regions{
		Size:    Size{W: 200, H: 30},
		Full:    30,
		Backlog: []Abs{40, 45},
		Last:    &last,
	}

	want := []Abs{40, 45, 50, 50}
	for i, h := range want {
		r.Next()
		if r.Size.H != h || r.Full != h {
			t.Errorf("step %d: size %s full %s, want %s", i, r.Size.H, r.Full, h)
		}
	}
}

func TestRegionsNextFiniteSequence(t *testing.T) {
	r := Regions{Size: Size{W: 200, H: 30}, Full: 30}
	if r.MayProgress() {
		t.Error("single finite region reports progress")
	}
	r.Next()
	// Without backlog or Last the current region stays as is.
	if r.Size.H != 30 {
		t.Errorf("height after Next = %s, want 30pt", r.Size.H)
	}
}

func TestRegionsClone(t *testing.T) {
	last := Abs(50)
	r := Regions{
		Size:    Size{W: 200, H: 30},
		Full:    30,
		Backlog: []Abs{40},
		Last:    &last,
	}

	c := r.Clone()
	c.Next()
	c.Next()
	*c.Last = 99

	if len(r.Backlog) != 1 || r.Backlog[0] != 40 {
		t.Errorf("original backlog changed: %v", r.Backlog)
	}
	if *r.Last != 50 {
		t.Errorf("original last changed: %s", *r.Last)
	}
}

func TestFrameWalkAbsolutePositions(t *testing.T) {
	inner := NewFrame(Size{W: 50, H: 20})
	inner.Push(Point{X: 5, Y: 10}, TextItem{Text: "leaf", Size: 10})

	outer := NewFrame(Size{W: 100, H: 100})
	outer.PushFrame(Point{X: 20, Y: 30}, inner)
	outer.Push(Point{X: 1, Y: 2}, TagItem{Name: "mark"})

	var got []Point
	outer.Walk(func(pos Point, item Item) bool {
		got = append(got, pos)
		return true
	})
	if len(got) != 2 {
		t.Fatalf("visited %d items, want 2", len(got))
	}
	if got[0] != (Point{X: 25, Y: 40}) {
		t.Errorf("leaf at %s, want (25pt, 40pt)", got[0])
	}
	if got[1] != (Point{X: 1, Y: 2}) {
		t.Errorf("tag at %s, want (1pt, 2pt)", got[1])
	}
}

func TestFrameWalkEarlyStop(t *testing.T) {
	f := NewFrame(Size{W: 10, H: 10})
	f.Push(Point{}, TextItem{Text: "a"})
	f.Push(Point{}, TextItem{Text: "b"})

	n := 0
	done := f.Walk(func(Point, Item) bool {
		n++
		return false
	})
	if done || n != 1 {
		t.Errorf("Walk visited %d items and returned %v, want 1 and false", n, done)
	}
}

func TestFrameTranslateAndGrow(t *testing.T) {
	f := NewFrame(Size{W: 10, H: 10})
	f.Push(Point{X: 1, Y: 1}, TextItem{Text: "x"})
	f.Translate(Point{X: 2, Y: 3})
	f.Grow(5)

	if f.Items()[0].Pos != (Point{X: 3, Y: 4}) {
		t.Errorf("item at %s after translate, want (3pt, 4pt)", f.Items()[0].Pos)
	}
	if f.Height() != 15 {
		t.Errorf("height after grow = %s, want 15pt", f.Height())
	}
}
