package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/imgstack/pkg/cache"
	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, dir, name string, w, h int, c color.Color) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, solidPNG(t, w, h, c), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(io.Discard))
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Sources: []string{"a.png"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Policy != DefaultPolicy || opts.Format != DefaultFormat || opts.Quality != DefaultQuality {
		t.Errorf("defaults not applied: %+v", opts)
	}
	// idempotent
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errs.Code
	}{
		{"no sources", Options{}, errs.ErrCodeEmptyBatch},
		{"bad policy", Options{Sources: []string{"a"}, Policy: "tallest"}, errs.ErrCodeInvalidPolicy},
		{"bad format", Options{Sources: []string{"a"}, Format: "gif"}, errs.ErrCodeInvalidFormat},
		{"bad quality", Options{Sources: []string{"a"}, Quality: 101}, errs.ErrCodeInvalidInput},
		{"bad filename", Options{Sources: []string{"a"}, Filename: "../x"}, errs.ErrCodeInvalidInput},
		{"bad interpolator", Options{Sources: []string{"a"}, Interpolator: "lanczos9"}, errs.ErrCodeInvalidInput},
		{"bad background", Options{Sources: []string{"a"}, Background: "#zzz"}, errs.ErrCodeInvalidInput},
		{"short order", Options{Sources: []string{"a", "b"}, Order: []int{0}}, errs.ErrCodeInvalidInput},
		{"order range", Options{Sources: []string{"a", "b"}, Order: []int{0, 2}}, errs.ErrCodeInvalidIndex},
		{"order repeat", Options{Sources: []string{"a", "b"}, Order: []int{1, 1}}, errs.ErrCodeInvalidInput},
		{"order and reverse", Options{Sources: []string{"a", "b"}, Order: []int{1, 0}, Reverse: true}, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"2,0,1", []int{2, 0, 1}, false},
		{" 1 , 0 ", []int{1, 0}, false},
		{"1,x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseOrder(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrder(%q) err = %v", tt.in, err)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("ParseOrder(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 5, red)
	b := writePNG(t, dir, "b.png", 20, 4, green)

	res, err := quietRunner(nil).Execute(context.Background(), Options{
		Sources: []string{a, b},
		Format:  "png",
	})
	if err != nil {
		t.Fatal(err)
	}
	// narrowest: width 10, heights 5 + 2
	if res.Layout.Width != 10 || res.Layout.Height != 7 {
		t.Errorf("layout = %dx%d, want 10x7", res.Layout.Width, res.Layout.Height)
	}
	if res.Filename != "joinedimage.png" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if !slices.Equal(res.Order, []string{"a.png", "b.png"}) {
		t.Errorf("Order = %v", res.Order)
	}
	img, err := png.Decode(bytes.NewReader(res.Artifact))
	if err != nil {
		t.Fatal(err)
	}
	if got := color.RGBAModel.Convert(img.At(5, 6)).(color.RGBA); got != green {
		t.Errorf("bottom pixel = %v, want green", got)
	}
	if res.Stats.Images != 2 || res.Stats.Bytes != len(res.Artifact) {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestExecuteOrder(t *testing.T) {
	dir := t.TempDir()
	srcs := []string{
		writePNG(t, dir, "r.png", 4, 4, red),
		writePNG(t, dir, "g.png", 4, 4, green),
		writePNG(t, dir, "b.png", 4, 4, blue),
	}
	tests := []struct {
		name    string
		order   []int
		reverse bool
		want    []string
	}{
		{"identity", nil, false, []string{"r.png", "g.png", "b.png"}},
		{"permutation", []int{2, 0, 1}, false, []string{"b.png", "r.png", "g.png"}},
		{"reverse", nil, true, []string{"b.png", "g.png", "r.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := quietRunner(nil).Execute(context.Background(), Options{
				Sources: srcs, Order: tt.order, Reverse: tt.reverse, Format: "png",
			})
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(res.Order, tt.want) {
				t.Errorf("Order = %v, want %v", res.Order, tt.want)
			}
		})
	}
}

func TestExecuteWidestJPEG(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10, red)
	b := writePNG(t, dir, "b.png", 20, 10, green)

	res, err := quietRunner(nil).Execute(context.Background(), Options{
		Sources:  []string{a, b},
		Policy:   "widest",
		Filename: "holiday",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Layout.Width != 20 || res.Layout.Height != 30 {
		t.Errorf("layout = %dx%d, want 20x30", res.Layout.Width, res.Layout.Height)
	}
	if res.Filename != "holiday.jpg" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if _, err := jpeg.Decode(bytes.NewReader(res.Artifact)); err != nil {
		t.Errorf("artifact is not a JPEG: %v", err)
	}
}

func TestExecuteFailingSource(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 4, 4, red)
	_, err := quietRunner(nil).Execute(context.Background(), Options{
		Sources: []string{a, filepath.Join(dir, "missing.png")},
	})
	if !errs.Is(err, errs.ErrCodeRead) {
		t.Errorf("err = %v, want READ_ERROR", err)
	}
}

func TestExecuteURLSourceCached(t *testing.T) {
	data := solidPNG(t, 6, 3, blue)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := quietRunner(c)
	opts := Options{Sources: []string{srv.URL + "/pic.png"}, Format: "png"}
	for i := 0; i < 2; i++ {
		res, err := r.Execute(context.Background(), opts)
		if err != nil {
			t.Fatal(err)
		}
		if res.Order[0] != "pic.png" {
			t.Errorf("name = %q, want pic.png", res.Order[0])
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}
