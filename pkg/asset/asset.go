// Package asset loads images into immutable, uniquely identified assets.
//
// An [Asset] wraps a decoded bitmap with the metadata every other package
// needs: a stable ID, intrinsic dimensions, the decoder that produced it and
// a dominant accent colour for list views. Assets are created by a [Loader]
// from a [Source] (file, URL or in-memory bytes) and never change afterwards,
// except that [Asset.Release] drops the bitmap once the asset leaves a
// collection.
//
// # Batches
//
// [Loader.LoadBatch] decodes a set of sources concurrently and is
// all-or-nothing: if any source fails, every asset decoded so far is
// released and the batch returns the first error. The result order always
// matches the source order.
package asset

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// accentSample bounds the image handed to the accent colour search.
const accentSample = 64

// Asset is one decoded image in a collection.
type Asset struct {
	id     uuid.UUID
	name   string
	format string
	width  int
	height int
	accent color.RGBA

	mu  sync.RWMutex
	img image.Image
}

// New wraps a decoded image. The image must have positive dimensions.
func New(img image.Image, name, format string) (*Asset, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image has non-positive dimensions %dx%d", b.Dx(), b.Dy())
	}
	return &Asset{
		id:     uuid.New(),
		name:   name,
		format: format,
		width:  b.Dx(),
		height: b.Dy(),
		accent: accentOf(img),
		img:    img,
	}, nil
}

// neutralAccent is used when no dominant colour can be extracted, for
// example from a fully transparent image.
var neutralAccent = color.RGBA{R: 128, G: 128, B: 128, A: 255}

func accentOf(img image.Image) color.RGBA {
	sample := imaging.Fit(img, accentSample, accentSample, imaging.Box)
	colors := dominantcolor.FindWeight(sample, 1)
	if len(colors) == 0 {
		return neutralAccent
	}
	return colors[0].RGBA
}

// ID returns the asset's identity. IDs are random and never reused.
func (a *Asset) ID() uuid.UUID { return a.id }

// Name returns the source filename or URL tail.
func (a *Asset) Name() string { return a.name }

// Format returns the name of the decoder that produced the image.
func (a *Asset) Format() string { return a.format }

// Width returns the intrinsic width in pixels.
func (a *Asset) Width() int { return a.width }

// Height returns the intrinsic height in pixels.
func (a *Asset) Height() int { return a.height }

// Accent returns the dominant colour of the image.
func (a *Asset) Accent() color.RGBA { return a.accent }

// Image returns the decoded bitmap, or nil once released.
func (a *Asset) Image() image.Image {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.img
}

// Release drops the bitmap. Dimensions and metadata stay readable.
// Releasing twice is harmless.
func (a *Asset) Release() {
	a.mu.Lock()
	a.img = nil
	a.mu.Unlock()
}

// Released reports whether the bitmap has been dropped.
func (a *Asset) Released() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.img == nil
}

func (a *Asset) String() string {
	return fmt.Sprintf("%s (%dx%d %s)", a.name, a.width, a.height, a.format)
}

// ReleaseAll releases every non-nil asset in assets.
func ReleaseAll(assets []*Asset) {
	for _, a := range assets {
		if a != nil {
			a.Release()
		}
	}
}
