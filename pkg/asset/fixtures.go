package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// FixtureScheme prefixes locators that name a built-in sample image, as in
// "fixture:rect.png".
const FixtureScheme = "fixture:"

// FixtureSource generates a sample image instead of reading one. The
// extension of Label picks the encoding (.jpg or .png).
type FixtureSource struct {
	Label  string
	Width  int
	Height int
	Hue    float64
}

// fixtures are the samples loaded by --fixtures and the debug endpoint: a
// landscape photo, a portrait PNG and a wide banner.
var fixtures = []FixtureSource{
	{Label: "1.jpg", Width: 640, Height: 480, Hue: 200},
	{Label: "2.png", Width: 480, Height: 640, Hue: 20},
	{Label: "rect.png", Width: 800, Height: 200, Hue: 120},
}

// Fixtures returns the built-in sample batch.
func Fixtures() []Source {
	out := make([]Source, len(fixtures))
	for i, f := range fixtures {
		out[i] = f
	}
	return out
}

// FixtureLocators returns the locators of the built-in sample batch.
func FixtureLocators() []string {
	out := make([]string, len(fixtures))
	for i, f := range fixtures {
		out[i] = FixtureScheme + f.Label
	}
	return out
}

// lookupFixture resolves a fixture name. Unknown names yield an empty
// source whose Open fails.
func lookupFixture(name string) FixtureSource {
	for _, f := range fixtures {
		if strings.EqualFold(f.Label, name) {
			return f
		}
	}
	return FixtureSource{Label: name}
}

func (f FixtureSource) Name() string { return f.Label }

func (f FixtureSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("unknown fixture %q", f.Label)
	}

	img := f.render()
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(filepath.Ext(f.Label)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case ".png":
		err = png.Encode(&buf, img)
	default:
		err = errors.New("fixture name needs a .jpg or .png extension")
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

// render draws a hue sweep that darkens towards the bottom, framed by a
// border so row boundaries stay visible once stacked.
func (f FixtureSource) render() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	border := max(2, min(f.Width, f.Height)/40)
	frame := colorful.Hsv(f.Hue, 0.8, 0.25)
	for y := range f.Height {
		v := 0.95 - 0.5*float64(y)/float64(f.Height)
		for x := range f.Width {
			c := colorful.Hsv(f.Hue+60*float64(x)/float64(f.Width), 0.65, v)
			if x < border || y < border || x >= f.Width-border || y >= f.Height-border {
				c = frame
			}
			r, g, b := c.RGB255()
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 0xff
		}
	}
	return img
}
