package reorder

import (
	"github.com/google/uuid"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

// EventType names a UI gesture event.
type EventType string

// Pointer (drag and drop) events.
const (
	DragStart  EventType = "dragstart"
	DragOver   EventType = "dragover"
	Drop       EventType = "drop"
	DragEnd    EventType = "dragend"
	DragCancel EventType = "dragcancel"
)

// Touch events.
const (
	TouchStart  EventType = "touchstart"
	TouchMove   EventType = "touchmove"
	TouchEnd    EventType = "touchend"
	TouchCancel EventType = "touchcancel"
)

type phase int

const (
	phaseStart phase = iota
	phaseMove
	phaseEnd
	phaseCancel
)

// Event is a gesture event that can be fed to [Controller.Dispatch].
type Event interface {
	gesture() (phase, Point, uuid.UUID, error)
}

// PointerEvent is a mouse or pen drag event. AssetID is only read on
// dragstart.
type PointerEvent struct {
	Type    EventType `json:"type"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	AssetID uuid.UUID `json:"asset_id"`
}

func (e PointerEvent) gesture() (phase, Point, uuid.UUID, error) {
	p := Point{X: e.X, Y: e.Y}
	switch e.Type {
	case DragStart:
		return phaseStart, p, e.AssetID, nil
	case DragOver:
		return phaseMove, p, e.AssetID, nil
	case Drop, DragEnd:
		return phaseEnd, p, e.AssetID, nil
	case DragCancel:
		return phaseCancel, p, e.AssetID, nil
	}
	return 0, p, e.AssetID, errs.New(errs.ErrCodeInvalidInput, "unknown pointer event %q", e.Type)
}

// Touch is one contact point of a touch event.
type Touch struct {
	Identifier int     `json:"identifier"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// TouchEvent is a touch gesture event. Only the first touch is tracked;
// touchend and touchcancel carry no touches.
type TouchEvent struct {
	Type    EventType `json:"type"`
	Touches []Touch   `json:"touches"`
	AssetID uuid.UUID `json:"asset_id"`
}

func (e TouchEvent) gesture() (phase, Point, uuid.UUID, error) {
	var ph phase
	switch e.Type {
	case TouchStart:
		ph = phaseStart
	case TouchMove:
		ph = phaseMove
	case TouchEnd:
		return phaseEnd, Point{}, e.AssetID, nil
	case TouchCancel:
		return phaseCancel, Point{}, e.AssetID, nil
	default:
		return 0, Point{}, e.AssetID, errs.New(errs.ErrCodeInvalidInput, "unknown touch event %q", e.Type)
	}
	if len(e.Touches) == 0 {
		return 0, Point{}, e.AssetID, errs.New(errs.ErrCodeInvalidInput, "%s without touches", e.Type)
	}
	t := e.Touches[0]
	return ph, Point{X: t.X, Y: t.Y}, e.AssetID, nil
}

// Dispatch feeds a gesture event to the controller. g is only used on the
// start event; nil falls back to the controller's default geometry. It
// reports whether the order changed.
func (c *Controller) Dispatch(ev Event, g Geometry) (bool, error) {
	ph, p, id, err := ev.gesture()
	if err != nil {
		return false, err
	}
	switch ph {
	case phaseStart:
		return false, c.BeginDrag(id, p, g)
	case phaseMove:
		return c.MovePointer(p)
	case phaseEnd:
		return false, c.EndDrag()
	default:
		return false, c.CancelDrag()
	}
}
