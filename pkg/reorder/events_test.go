package reorder

import (
	"slices"
	"testing"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func TestDispatchPointer(t *testing.T) {
	c, coll, assets := setup(t, 3)
	events := []PointerEvent{
		{Type: DragStart, Y: 50, AssetID: assets[0].ID()},
		{Type: DragOver, Y: 120},
		{Type: DragOver, Y: 170},
		{Type: Drop, Y: 170},
	}
	var changed bool
	for _, ev := range events {
		ch, err := c.Dispatch(ev, slots)
		if err != nil {
			t.Fatalf("Dispatch(%s): %v", ev.Type, err)
		}
		changed = changed || ch
	}
	if !changed {
		t.Error("sequence should have reordered")
	}
	if c.State() != Idle {
		t.Error("drop should end the drag")
	}
	if got := positions(coll, assets); !sameInts(got, []int{1, 0, 2}) {
		t.Errorf("positions = %v, want [1 0 2]", got)
	}
}

func TestDispatchTouch(t *testing.T) {
	c, coll, assets := setup(t, 3)
	events := []TouchEvent{
		{Type: TouchStart, Touches: []Touch{{X: 5, Y: 250}}, AssetID: assets[2].ID()},
		{Type: TouchMove, Touches: []Touch{{X: 5, Y: 140}, {X: 90, Y: 900}}},
		{Type: TouchEnd},
	}
	for _, ev := range events {
		if _, err := c.Dispatch(ev, slots); err != nil {
			t.Fatalf("Dispatch(%s): %v", ev.Type, err)
		}
	}
	if got := positions(coll, assets); !sameInts(got, []int{0, 2, 1}) {
		t.Errorf("positions = %v, want [0 2 1] (second touch ignored)", got)
	}
}

func TestDispatchTouchCancel(t *testing.T) {
	c, _, assets := setup(t, 2)
	c.Dispatch(TouchEvent{Type: TouchStart, Touches: []Touch{{Y: 10}}, AssetID: assets[0].ID()}, slots)
	if _, err := c.Dispatch(TouchEvent{Type: TouchCancel}, nil); err != nil {
		t.Fatal(err)
	}
	if c.State() != Idle {
		t.Error("touchcancel should end the drag")
	}
}

func TestDispatchRejectsMalformedEvents(t *testing.T) {
	c, _, assets := setup(t, 2)
	tests := []struct {
		name string
		ev   Event
	}{
		{"unknown pointer type", PointerEvent{Type: "click"}},
		{"unknown touch type", TouchEvent{Type: "tap"}},
		{"touchstart without touches", TouchEvent{Type: TouchStart, AssetID: assets[0].ID()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Dispatch(tt.ev, slots); !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
	if c.State() != Idle {
		t.Error("malformed events must not start a drag")
	}
}

func TestGeometryBounds(t *testing.T) {
	u := Uniform{Origin: 10, Extent: 20}
	if s, ok := u.Bounds(2); !ok || s.Start != 50 || s.End != 70 || s.Mid() != 60 {
		t.Errorf("Uniform.Bounds(2) = %+v, %v", s, ok)
	}
	if _, ok := u.Bounds(-1); ok {
		t.Error("negative slot should not exist")
	}

	st := Stacked{Sizes: []float64{10, 30}}
	if s, ok := st.Bounds(1); !ok || s.Start != 10 || s.End != 40 {
		t.Errorf("Stacked.Bounds(1) = %+v, %v", s, ok)
	}
	if _, ok := st.Bounds(2); ok {
		t.Error("slot past the end should not exist")
	}

	tests := []struct {
		from, to int
		want     []float64
	}{
		{0, 2, []float64{2, 3, 1}},
		{2, 0, []float64{3, 1, 2}},
		{1, 1, []float64{1, 2, 3}},
		{0, 5, []float64{1, 2, 3}},
	}
	base := Stacked{Origin: 5, Sizes: []float64{1, 2, 3}}
	for _, tt := range tests {
		got := base.Moved(tt.from, tt.to).(Stacked)
		if !slices.Equal(got.Sizes, tt.want) || got.Origin != 5 {
			t.Errorf("Moved(%d, %d) = %+v, want sizes %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !slices.Equal(base.Sizes, []float64{1, 2, 3}) {
		t.Errorf("Moved modified the receiver: %v", base.Sizes)
	}
}
