// Package compositor stacks images vertically at a common width.
//
// Compositing is split in two. [Plan] is a pure function from intrinsic
// sizes and a [Policy] to a [Layout]: the base width, each image's scale
// factor and vertical offset, and the output dimensions. [Compose] allocates
// a surface of those dimensions and draws every image into its slot.
//
// All layout arithmetic is done in float64 and only the final surface size
// and destination rectangles are rounded, so rounding errors never
// accumulate down the stack. Adjacent destination rectangles share their
// edge: there are no gaps and no overlaps.
package compositor

import (
	"image"
	"math"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

// Sized is anything with intrinsic pixel dimensions.
type Sized interface {
	Width() int
	Height() int
}

// Size is a plain [Sized] value.
type Size struct {
	W, H int
}

func (s Size) Width() int  { return s.W }
func (s Size) Height() int { return s.H }

// Placement is where one image lands in the composite.
type Placement struct {
	Index        int             `json:"index"`
	Scale        float64         `json:"scale"`
	Offset       float64         `json:"offset"`
	ScaledHeight float64         `json:"scaled_height"`
	Rect         image.Rectangle `json:"rect"`
}

// Layout is the full drawing plan for a composite.
type Layout struct {
	Policy      Policy      `json:"policy"`
	BaseWidth   float64     `json:"base_width"`
	TotalHeight float64     `json:"total_height"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Placements  []Placement `json:"placements"`
}

// Bounds returns the output surface rectangle.
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}

// Scales returns each placement's scale factor, in order.
func (l Layout) Scales() []float64 {
	out := make([]float64, len(l.Placements))
	for i, p := range l.Placements {
		out[i] = p.Scale
	}
	return out
}

// Plan computes the layout for items, top to bottom, under policy.
// It fails with EMPTY_COMPOSITE for no items and INVALID_INPUT for an item
// without positive dimensions.
func Plan[S Sized](items []S, policy Policy) (Layout, error) {
	if len(items) == 0 {
		return Layout{}, errs.New(errs.ErrCodeEmptyComposite, "nothing to composite")
	}
	if !policy.Valid() {
		return Layout{}, errs.New(errs.ErrCodeInvalidPolicy, "unknown scaling policy %d", int(policy))
	}

	base := items[0].Width()
	for i, it := range items {
		if it.Width() <= 0 || it.Height() <= 0 {
			return Layout{}, errs.New(errs.ErrCodeInvalidInput,
				"item %d has non-positive size %dx%d", i, it.Width(), it.Height())
		}
		if policy == FitToWidest {
			base = max(base, it.Width())
		} else {
			base = min(base, it.Width())
		}
	}

	l := Layout{
		Policy:     policy,
		BaseWidth:  float64(base),
		Placements: make([]Placement, len(items)),
	}
	width := int(math.Round(l.BaseWidth))

	var offset float64
	for i, it := range items {
		scale := l.BaseWidth / float64(it.Width())
		h := float64(it.Height()) * scale
		l.Placements[i] = Placement{
			Index:        i,
			Scale:        scale,
			Offset:       offset,
			ScaledHeight: h,
			Rect:         image.Rect(0, round(offset), width, round(offset+h)),
		}
		offset += h
	}

	l.TotalHeight = offset
	l.Width = width
	l.Height = round(offset)
	return l, nil
}

func round(v float64) int {
	return int(math.Round(v))
}
