// Package reorder turns user gestures into collection mutations.
//
// A [Controller] owns the drag state machine for one collection:
//
//	Idle --BeginDrag--> Dragging --MovePointer--> Dragging
//	Dragging --EndDrag | CancelDrag--> Idle
//
// Reorders are committed live: every midpoint crossing during a drag calls
// [collection.Collection.ReorderTo] immediately, and neither EndDrag nor
// CancelDrag rolls them back. Starting a second drag while one is active is
// rejected with DRAG_IN_PROGRESS.
//
// Explicit up/down requests bypass the state machine. After every reorder,
// from either path, registered listeners receive a [Change] carrying fresh
// per-asset [Affordance] values.
//
// Pointer and touch events from a UI layer are translated by [Dispatch].
package reorder

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/imgstack/pkg/collection"
	errs "github.com/matzehuels/imgstack/pkg/errors"
)

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Drag is the transient state of an in-progress gesture.
type Drag struct {
	AssetID       uuid.UUID
	OriginalIndex int
	CurrentIndex  int
	Pointer       Point
}

// Cause names what triggered a reorder.
type Cause string

const (
	CauseDrag     Cause = "drag"
	CauseMoveUp   Cause = "move-up"
	CauseMoveDown Cause = "move-down"
)

// Affordance says which explicit moves are currently possible for an asset.
type Affordance struct {
	ID          uuid.UUID `json:"id"`
	Index       int       `json:"index"`
	CanMoveUp   bool      `json:"can_move_up"`
	CanMoveDown bool      `json:"can_move_down"`
}

// Change describes one completed reorder.
type Change struct {
	Cause       Cause
	AssetID     uuid.UUID
	From        int
	To          int
	Affordances []Affordance
}

// Listener is called after every reorder, with the controller lock held.
// Listeners must not call back into the controller.
type Listener func(Change)

// Controller serialises gestures and explicit moves on one collection.
type Controller struct {
	mu        sync.Mutex
	coll      *collection.Collection
	geometry  Geometry
	drag      *Drag
	dragGeom  Geometry
	listeners []Listener
	logger    *log.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithListener registers a reorder listener.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// WithGeometry sets the geometry used when BeginDrag receives none.
func WithGeometry(g Geometry) Option {
	return func(c *Controller) { c.geometry = g }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an idle controller over coll.
func New(coll *collection.Collection, opts ...Option) *Controller {
	c := &Controller{
		coll:   coll,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddListener registers a listener after construction.
func (c *Controller) AddListener(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// State returns the current gesture state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag != nil {
		return Dragging
	}
	return Idle
}

// Active returns a copy of the active drag, if any.
func (c *Controller) Active() (Drag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return Drag{}, false
	}
	return *c.drag, true
}

// BeginDrag starts a gesture on asset id with the pointer at p. A nil g
// uses the controller's default geometry.
func (c *Controller) BeginDrag(id uuid.UUID, p Point, g Geometry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drag != nil {
		return errs.New(errs.ErrCodeDragInProgress, "asset %s is already being dragged", c.drag.AssetID)
	}
	if g == nil {
		g = c.geometry
	}
	if g == nil {
		return errs.New(errs.ErrCodeInvalidInput, "no list geometry for drag")
	}
	idx := c.coll.IndexOf(id)
	if idx < 0 {
		return errs.New(errs.ErrCodeNotMember, "asset %s is not in the collection", id)
	}

	c.drag = &Drag{AssetID: id, OriginalIndex: idx, CurrentIndex: idx, Pointer: p}
	c.dragGeom = g
	c.logger.Debug("drag started", "asset", id, "index", idx)
	return nil
}

// MovePointer updates the pointer of the active drag. Each time the pointer
// is strictly past the midpoint of a neighbouring slot, the dragged asset
// moves into that slot. Several slots may be crossed by one update. It
// reports whether the order changed.
func (c *Controller) MovePointer(p Point) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drag == nil {
		return false, errs.New(errs.ErrCodeNoActiveDrag, "no drag in progress")
	}
	d := c.drag
	d.Pointer = p

	idx := c.coll.IndexOf(d.AssetID)
	if idx < 0 {
		// The collection was replaced underneath the gesture.
		c.clearDrag()
		return false, errs.New(errs.ErrCodeNotMember, "asset %s left the collection during drag", d.AssetID)
	}
	d.CurrentIndex = idx

	pos := c.dragGeom.Axis().coord(p)
	n := c.coll.Len()
	start := idx
	for range n {
		target := c.crossing(idx, n, pos)
		if target == idx {
			break
		}
		to, err := c.coll.ReorderTo(d.AssetID, target)
		if err != nil {
			return idx != start, err
		}
		c.follow(idx, to)
		idx = to
	}
	d.CurrentIndex = idx

	if idx == start {
		return false, nil
	}
	c.logger.Debug("drag reordered", "asset", d.AssetID, "from", start, "to", idx)
	c.notify(CauseDrag, d.AssetID, start, idx)
	return true, nil
}

// crossing returns the slot the dragged item at idx should move to for a
// pointer at pos, or idx when no neighbour midpoint is crossed.
func (c *Controller) crossing(idx, n int, pos float64) int {
	if idx+1 < n {
		if next, ok := c.dragGeom.Bounds(idx + 1); ok && pos > next.Mid() {
			return idx + 1
		}
	}
	if idx > 0 {
		if prev, ok := c.dragGeom.Bounds(idx - 1); ok && pos < prev.Mid() {
			return idx - 1
		}
	}
	return idx
}

// follow moves slot sizes of the drag geometry along with a reorder.
func (c *Controller) follow(from, to int) {
	if f, ok := c.dragGeom.(Follower); ok {
		c.dragGeom = f.Moved(from, to)
	}
}

// EndDrag finishes the active gesture. Reorders already made stay.
func (c *Controller) EndDrag() error {
	return c.finish("drag ended")
}

// CancelDrag abandons the active gesture. Reorders already made stay.
func (c *Controller) CancelDrag() error {
	return c.finish("drag cancelled")
}

func (c *Controller) finish(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drag == nil {
		return errs.New(errs.ErrCodeNoActiveDrag, "no drag in progress")
	}
	c.logger.Debug(msg, "asset", c.drag.AssetID,
		"from", c.drag.OriginalIndex, "to", c.drag.CurrentIndex)
	c.clearDrag()
	return nil
}

// Reset drops any active drag without error.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearDrag()
}

func (c *Controller) clearDrag() {
	c.drag = nil
	c.dragGeom = nil
}

// RequestMoveUp moves asset id one place towards the front.
func (c *Controller) RequestMoveUp(id uuid.UUID) error {
	return c.explicitMove(id, CauseMoveUp)
}

// RequestMoveDown moves asset id one place towards the back.
func (c *Controller) RequestMoveDown(id uuid.UUID) error {
	return c.explicitMove(id, CauseMoveDown)
}

func (c *Controller) explicitMove(id uuid.UUID, cause Cause) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.coll.IndexOf(id)
	if from < 0 {
		return errs.New(errs.ErrCodeNotMember, "asset %s is not in the collection", id)
	}
	var err error
	if cause == CauseMoveUp {
		err = c.coll.MoveUp(from)
	} else {
		err = c.coll.MoveDown(from)
	}
	if err != nil {
		return err
	}

	to := c.coll.IndexOf(id)
	if to != from {
		if c.drag != nil {
			c.follow(from, to)
			c.drag.CurrentIndex = c.coll.IndexOf(c.drag.AssetID)
		}
		c.notify(cause, id, from, to)
	}
	return nil
}

// Affordances computes the explicit-move permissions for the current order.
func (c *Controller) Affordances() []Affordance {
	return Affordances(c.coll.Snapshot())
}

// Affordances computes explicit-move permissions for a snapshot.
func Affordances(snap collection.Snapshot) []Affordance {
	n := snap.Len()
	out := make([]Affordance, n)
	for i := range n {
		out[i] = Affordance{
			ID:          snap.At(i).ID(),
			Index:       i,
			CanMoveUp:   i > 0,
			CanMoveDown: i < n-1,
		}
	}
	return out
}

func (c *Controller) notify(cause Cause, id uuid.UUID, from, to int) {
	if len(c.listeners) == 0 {
		return
	}
	ch := Change{
		Cause:       cause,
		AssetID:     id,
		From:        from,
		To:          to,
		Affordances: Affordances(c.coll.Snapshot()),
	}
	for _, l := range c.listeners {
		l(ch)
	}
}
