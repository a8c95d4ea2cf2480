package reorder

import "slices"

// Point is a pointer position in the coordinate space of the list view.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Axis is the direction the list is laid out along.
type Axis int

const (
	// Vertical lists stack items top to bottom; Y is compared.
	Vertical Axis = iota
	// Horizontal lists run left to right; X is compared.
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// coord projects p onto the axis.
func (a Axis) coord(p Point) float64 {
	if a == Horizontal {
		return p.X
	}
	return p.Y
}

// Span is an item's extent along the list axis, [Start, End).
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Mid returns the midpoint of the span.
func (s Span) Mid() float64 { return (s.Start + s.End) / 2 }

// Geometry reports where list slots are drawn. Slots are indexed by list
// position, not by asset.
type Geometry interface {
	// Bounds returns the extent of slot index. ok is false when the slot
	// does not exist.
	Bounds(index int) (span Span, ok bool)

	// Axis returns the list direction.
	Axis() Axis
}

// Follower is a Geometry whose slot sizes belong to the items drawn in
// them. The controller calls Moved after every reorder during a drag so the
// slots keep matching the items.
type Follower interface {
	Geometry

	// Moved returns the geometry after the item in slot from has been
	// reinserted at slot to. The receiver is not modified.
	Moved(from, to int) Geometry
}

// Uniform is a list of equally sized slots.
type Uniform struct {
	Origin    float64
	Extent    float64
	Direction Axis
}

func (u Uniform) Bounds(index int) (Span, bool) {
	if index < 0 || u.Extent <= 0 {
		return Span{}, false
	}
	start := u.Origin + float64(index)*u.Extent
	return Span{Start: start, End: start + u.Extent}, true
}

func (u Uniform) Axis() Axis { return u.Direction }

// Stacked is a list of slots with individual sizes, laid end to end. Sizes
// are given in list order and move with their items during a drag.
type Stacked struct {
	Origin    float64
	Sizes     []float64
	Direction Axis
}

func (s Stacked) Bounds(index int) (Span, bool) {
	if index < 0 || index >= len(s.Sizes) {
		return Span{}, false
	}
	start := s.Origin
	for _, sz := range s.Sizes[:index] {
		start += sz
	}
	return Span{Start: start, End: start + s.Sizes[index]}, true
}

func (s Stacked) Axis() Axis { return s.Direction }

func (s Stacked) Moved(from, to int) Geometry {
	n := len(s.Sizes)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		return s
	}
	sizes := slices.Clone(s.Sizes)
	sz := sizes[from]
	sizes = slices.Delete(sizes, from, from+1)
	sizes = slices.Insert(sizes, to, sz)
	return Stacked{Origin: s.Origin, Sizes: sizes, Direction: s.Direction}
}
