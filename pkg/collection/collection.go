// Package collection holds the ordered set of images being stitched.
//
// A [Collection] is a dense, zero-indexed sequence of assets. It is replaced
// wholesale by [Collection.Load], reordered in place by the move operations
// and emptied by [Collection.Clear]. Assets that leave the collection are
// released. Every method is safe for concurrent use; readers that need a
// consistent view across several calls take a [Snapshot].
package collection

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/imgstack/pkg/asset"
	errs "github.com/matzehuels/imgstack/pkg/errors"
)

// Collection is an ordered, mutable list of assets.
type Collection struct {
	mu      sync.RWMutex
	items   []*asset.Asset
	version uint64
}

// New returns an empty collection.
func New() *Collection {
	return &Collection{}
}

// Load replaces the contents with batch. Previous members that are not part
// of batch are released. An empty batch clears the collection and returns
// EMPTY_BATCH. A batch holding a nil or repeated asset is rejected with
// INVALID_INPUT and the collection is left untouched.
func (c *Collection) Load(batch []*asset.Asset) error {
	keep := make(map[uuid.UUID]bool, len(batch))
	for i, a := range batch {
		if a == nil {
			return errs.New(errs.ErrCodeInvalidInput, "batch entry %d is nil", i)
		}
		if keep[a.ID()] {
			return errs.New(errs.ErrCodeInvalidInput, "asset %s appears more than once in the batch", a.ID())
		}
		keep[a.ID()] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, old := range c.items {
		if !keep[old.ID()] {
			old.Release()
		}
	}

	c.items = slices.Clone(batch)
	c.version++
	if len(batch) == 0 {
		return errs.New(errs.ErrCodeEmptyBatch, "no images selected")
	}
	return nil
}

// MoveUp swaps the asset at index with its predecessor. Index 0 is a no-op.
func (c *Collection) MoveUp(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIndex(index); err != nil {
		return err
	}
	if index == 0 {
		return nil
	}
	c.items[index-1], c.items[index] = c.items[index], c.items[index-1]
	c.version++
	return nil
}

// MoveDown swaps the asset at index with its successor. The last index is a
// no-op.
func (c *Collection) MoveDown(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIndex(index); err != nil {
		return err
	}
	if index == len(c.items)-1 {
		return nil
	}
	c.items[index], c.items[index+1] = c.items[index+1], c.items[index]
	c.version++
	return nil
}

// ReorderTo moves the asset with the given ID to target, shifting the
// assets in between by one. target is clamped to the valid range. It returns
// the asset's resulting index.
func (c *Collection) ReorderTo(id uuid.UUID, target int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.indexOf(id)
	if from < 0 {
		return -1, errs.New(errs.ErrCodeNotMember, "asset %s is not in the collection", id)
	}
	target = max(0, min(target, len(c.items)-1))
	if target == from {
		return from, nil
	}

	a := c.items[from]
	c.items = slices.Delete(c.items, from, from+1)
	c.items = slices.Insert(c.items, target, a)
	c.version++
	return target, nil
}

// Clear empties the collection and releases every asset.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	asset.ReleaseAll(c.items)
	c.items = nil
	c.version++
}

// Len returns the number of assets.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// IndexOf returns the index of the asset with the given ID, or -1.
func (c *Collection) IndexOf(id uuid.UUID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(id)
}

// Version increases by one on every completed mutation.
func (c *Collection) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot returns an immutable copy of the current order.
func (c *Collection) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{items: slices.Clone(c.items), version: c.version}
}

func (c *Collection) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(c.items, func(a *asset.Asset) bool { return a.ID() == id })
}

func (c *Collection) checkIndex(index int) error {
	if index < 0 || index >= len(c.items) {
		return errs.New(errs.ErrCodeInvalidIndex, "index %d out of range [0, %d)", index, len(c.items))
	}
	return nil
}

// Snapshot is a point-in-time copy of a collection's order.
type Snapshot struct {
	items   []*asset.Asset
	version uint64
}

// Len returns the number of assets in the snapshot.
func (s Snapshot) Len() int { return len(s.items) }

// At returns the asset at index i.
func (s Snapshot) At(i int) *asset.Asset { return s.items[i] }

// Assets returns a copy of the ordered assets.
func (s Snapshot) Assets() []*asset.Asset { return slices.Clone(s.items) }

// Version is the collection version the snapshot was taken at.
func (s Snapshot) Version() uint64 { return s.version }

// IDs returns the asset IDs in order.
func (s Snapshot) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.items))
	for i, a := range s.items {
		ids[i] = a.ID()
	}
	return ids
}

// IndexOf returns the index of id in the snapshot, or -1.
func (s Snapshot) IndexOf(id uuid.UUID) int {
	return slices.IndexFunc(s.items, func(a *asset.Asset) bool { return a.ID() == id })
}
