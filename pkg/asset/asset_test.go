package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

// solid returns a w×h image filled with c.
func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, color.RGBA{R: 200, A: 255})); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, color.RGBA{B: 200, A: 255}), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, solid(w, h, color.RGBA{G: 200, A: 255}), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	a, err := New(solid(30, 20, color.RGBA{R: 255, A: 255}), "red.png", "png")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Width() != 30 || a.Height() != 20 {
		t.Errorf("dimensions = %dx%d, want 30x20", a.Width(), a.Height())
	}
	if a.Name() != "red.png" || a.Format() != "png" {
		t.Errorf("metadata = %q/%q", a.Name(), a.Format())
	}
	if acc := a.Accent(); acc.R < 200 || acc.G > 50 || acc.B > 50 {
		t.Errorf("Accent = %v, want red-ish", acc)
	}
}

func TestNewRejectsDegenerateImages(t *testing.T) {
	if _, err := New(nil, "x", "png"); err == nil {
		t.Error("New(nil) should fail")
	}
	if _, err := New(image.NewRGBA(image.Rect(0, 0, 0, 10)), "x", "png"); err == nil {
		t.Error("New with zero width should fail")
	}
}

func TestIDsAreUnique(t *testing.T) {
	img := solid(2, 2, color.White)
	seen := make(map[string]bool)
	for range 50 {
		a, err := New(img, "w", "png")
		if err != nil {
			t.Fatal(err)
		}
		if seen[a.ID().String()] {
			t.Fatalf("duplicate ID %s", a.ID())
		}
		seen[a.ID().String()] = true
	}
}

func TestRelease(t *testing.T) {
	a, _ := New(solid(4, 4, color.Black), "b", "png")
	if a.Released() || a.Image() == nil {
		t.Fatal("fresh asset should hold its image")
	}
	a.Release()
	a.Release()
	if !a.Released() || a.Image() != nil {
		t.Error("Release should drop the image")
	}
	if a.Width() != 4 || a.Height() != 4 {
		t.Error("dimensions should survive Release")
	}
}

func TestReleaseAllSkipsNil(t *testing.T) {
	a, _ := New(solid(1, 1, color.Black), "a", "png")
	ReleaseAll([]*Asset{nil, a, nil})
	if !a.Released() {
		t.Error("ReleaseAll should release non-nil assets")
	}
}
