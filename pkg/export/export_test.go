package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		want string
	}{
		{"", JPEG, "joinedimage.jpg"},
		{"   ", JPEG, "joinedimage.jpg"},
		{"holiday", JPEG, "holiday.jpg"},
		{"holiday.jpg", JPEG, "holiday.jpg"},
		{"holiday.JPG", JPEG, "holiday.JPG"},
		{"holiday.jpeg", JPEG, "holiday.jpeg"},
		{"holiday.png", JPEG, "holiday.png.jpg"},
		{"holiday", PNG, "holiday.png"},
		{"", PNG, "joinedimage.png"},
		{" spaced name ", JPEG, "spaced name.jpg"},
	}
	for _, tt := range tests {
		if got := Filename(tt.name, tt.f); got != tt.want {
			t.Errorf("Filename(%q, %s) = %q, want %q", tt.name, tt.f, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": JPEG, "jpg": JPEG, "JPEG": JPEG, "png": PNG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("gif"); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	var o Options
	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}
	if o.Format != JPEG || o.Quality != DefaultQuality {
		t.Errorf("defaults = %+v", o)
	}
	for _, q := range []int{-1, 101} {
		o := Options{Quality: q}
		if err := o.Validate(); err == nil {
			t.Errorf("quality %d should be rejected", q)
		}
	}
}

func gradient(w, h int, alpha uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: alpha, A: alpha})
		}
	}
	return img
}

func TestEncodeJPEGFlattensTransparency(t *testing.T) {
	data, err := Bytes(context.Background(), gradient(8, 8, 0), Options{})
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	r, g, b, _ := img.At(4, 4).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("transparent pixel encoded as (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestEncodePNG(t *testing.T) {
	src := gradient(3, 2, 255)
	data, err := Bytes(context.Background(), src, Options{Format: PNG})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", img.Bounds(), src.Bounds())
	}
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(context.Background(), &buf, image.NewRGBA(image.Rectangle{}), Options{}); !errs.Is(err, errs.ErrCodeEmptyComposite) {
		t.Errorf("err = %v, want EMPTY_COMPOSITE", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(context.Background(), dir, "", gradient(4, 4, 255), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "joinedimage.jpg") {
		t.Errorf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output missing: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the output", len(entries))
	}

	if _, err := WriteFile(context.Background(), dir, "../escape", gradient(1, 1, 255), Options{}); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT for path traversal", err)
	}
}
