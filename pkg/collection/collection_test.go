package collection

import (
	"image"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/imgstack/pkg/asset"
	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func makeAssets(t *testing.T, n int) []*asset.Asset {
	t.Helper()
	out := make([]*asset.Asset, n)
	for i := range out {
		a, err := asset.New(image.NewRGBA(image.Rect(0, 0, 10+i, 10)), "img", "png")
		if err != nil {
			t.Fatal(err)
		}
		out[i] = a
	}
	return out
}

func loaded(t *testing.T, n int) (*Collection, []*asset.Asset) {
	t.Helper()
	c := New()
	assets := makeAssets(t, n)
	if err := c.Load(assets); err != nil {
		t.Fatal(err)
	}
	return c, assets
}

func order(c *Collection, assets []*asset.Asset) []int {
	pos := make(map[uuid.UUID]int, len(assets))
	for i, a := range assets {
		pos[a.ID()] = i
	}
	snap := c.Snapshot()
	out := make([]int, snap.Len())
	for i := range out {
		out[i] = pos[snap.At(i).ID()]
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadReplacesAndReleases(t *testing.T) {
	c, first := loaded(t, 3)
	second := makeAssets(t, 2)
	kept := first[1]

	if err := c.Load(append(second, kept)); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if !first[0].Released() || !first[2].Released() {
		t.Error("replaced assets should be released")
	}
	if kept.Released() {
		t.Error("asset carried into the new batch should stay alive")
	}
}

func TestLoadEmptyBatch(t *testing.T) {
	c, first := loaded(t, 2)
	err := c.Load(nil)
	if !errs.Is(err, errs.ErrCodeEmptyBatch) {
		t.Errorf("err = %v, want EMPTY_BATCH", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if !first[0].Released() {
		t.Error("previous assets should be released")
	}
}

func TestLoadRejectsDuplicates(t *testing.T) {
	c, first := loaded(t, 2)
	a := makeAssets(t, 1)[0]

	tests := []struct {
		name  string
		batch []*asset.Asset
	}{
		{"same asset twice", []*asset.Asset{a, a}},
		{"repeats a current member", []*asset.Asset{first[0], a, first[0]}},
		{"nil entry", []*asset.Asset{a, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Version()
			if err := c.Load(tt.batch); !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Fatalf("err = %v, want INVALID_INPUT", err)
			}
			if c.Len() != 2 || c.Version() != v {
				t.Errorf("rejected batch changed the collection: len %d, version %d -> %d", c.Len(), v, c.Version())
			}
			if got := order(c, first); got[0] != 0 || got[1] != 1 {
				t.Errorf("order = %v, want [0 1]", got)
			}
			if first[0].Released() || a.Released() {
				t.Error("rejected batch must not release assets")
			}
		})
	}
}

func TestMoveBoundaries(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Collection) error
		want []int
	}{
		{"up at first is no-op", func(c *Collection) error { return c.MoveUp(0) }, []int{0, 1, 2, 3}},
		{"down at last is no-op", func(c *Collection) error { return c.MoveDown(3) }, []int{0, 1, 2, 3}},
		{"up swaps", func(c *Collection) error { return c.MoveUp(2) }, []int{0, 2, 1, 3}},
		{"down swaps", func(c *Collection) error { return c.MoveDown(0) }, []int{1, 0, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, assets := loaded(t, 4)
			before := c.Version()
			if err := tt.op(c); err != nil {
				t.Fatal(err)
			}
			if got := order(c, assets); !equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
			changed := !equal(tt.want, []int{0, 1, 2, 3})
			if (c.Version() != before) != changed {
				t.Errorf("version bumped = %v, want %v", c.Version() != before, changed)
			}
		})
	}
}

func TestMoveInvalidIndex(t *testing.T) {
	c, assets := loaded(t, 2)
	for _, i := range []int{-1, 2, 100} {
		if err := c.MoveUp(i); !errs.Is(err, errs.ErrCodeInvalidIndex) {
			t.Errorf("MoveUp(%d) err = %v, want INVALID_INDEX", i, err)
		}
		if err := c.MoveDown(i); !errs.Is(err, errs.ErrCodeInvalidIndex) {
			t.Errorf("MoveDown(%d) err = %v, want INVALID_INDEX", i, err)
		}
	}
	if got := order(c, assets); !equal(got, []int{0, 1}) {
		t.Errorf("failed moves changed the order to %v", got)
	}
}

func TestReorderTo(t *testing.T) {
	tests := []struct {
		name   string
		from   int
		target int
		want   []int
		index  int
	}{
		{"forward", 0, 2, []int{1, 2, 0, 3}, 2},
		{"backward", 3, 1, []int{0, 3, 1, 2}, 1},
		{"same place", 1, 1, []int{0, 1, 2, 3}, 1},
		{"clamped high", 0, 99, []int{1, 2, 3, 0}, 3},
		{"clamped low", 2, -5, []int{2, 0, 1, 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, assets := loaded(t, 4)
			idx, err := c.ReorderTo(assets[tt.from].ID(), tt.target)
			if err != nil {
				t.Fatal(err)
			}
			if idx != tt.index {
				t.Errorf("index = %d, want %d", idx, tt.index)
			}
			if got := order(c, assets); !equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReorderToUnknownAsset(t *testing.T) {
	c, _ := loaded(t, 2)
	if _, err := c.ReorderTo(uuid.New(), 0); !errs.Is(err, errs.ErrCodeNotMember) {
		t.Errorf("err = %v, want NOT_MEMBER", err)
	}
}

func TestClear(t *testing.T) {
	c, assets := loaded(t, 3)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	for i, a := range assets {
		if !a.Released() {
			t.Errorf("asset %d not released", i)
		}
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	c, assets := loaded(t, 3)
	snap := c.Snapshot()
	if err := c.MoveDown(0); err != nil {
		t.Fatal(err)
	}
	if snap.At(0).ID() != assets[0].ID() {
		t.Error("snapshot should not observe later mutations")
	}
	if snap.IndexOf(assets[2].ID()) != 2 {
		t.Error("Snapshot.IndexOf mismatch")
	}
	if ids := snap.IDs(); len(ids) != 3 || ids[1] != assets[1].ID() {
		t.Errorf("IDs = %v", ids)
	}
}

// Any sequence of moves keeps indices dense and the membership unchanged.
func TestIndexDensityUnderRandomMoves(t *testing.T) {
	const n = 7
	c, assets := loaded(t, n)
	rng := rand.New(rand.NewPCG(1, 2))

	for step := range 2000 {
		switch rng.IntN(3) {
		case 0:
			_ = c.MoveUp(rng.IntN(n))
		case 1:
			_ = c.MoveDown(rng.IntN(n))
		case 2:
			_, _ = c.ReorderTo(assets[rng.IntN(n)].ID(), rng.IntN(n+4)-2)
		}

		got := order(c, assets)
		if len(got) != n {
			t.Fatalf("step %d: len = %d, want %d", step, len(got), n)
		}
		seen := make([]bool, n)
		for _, p := range got {
			if seen[p] {
				t.Fatalf("step %d: asset %d appears twice in %v", step, p, got)
			}
			seen[p] = true
		}
		for i, a := range assets {
			if c.IndexOf(a.ID()) < 0 {
				t.Fatalf("step %d: asset %d lost", step, i)
			}
		}
	}
}

func TestConcurrentMutation(t *testing.T) {
	const n = 5
	c, assets := loaded(t, n)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				_ = c.MoveDown((w + i) % n)
				_, _ = c.ReorderTo(assets[i%n].ID(), w%n)
				_ = c.Snapshot().IDs()
			}
		}()
	}
	wg.Wait()

	if c.Len() != n {
		t.Fatalf("Len = %d, want %d", c.Len(), n)
	}
	seen := make(map[uuid.UUID]bool)
	for _, id := range c.Snapshot().IDs() {
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("%d distinct assets after concurrent moves, want %d", len(seen), n)
	}
}
