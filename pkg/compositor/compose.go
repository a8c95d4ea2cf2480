package compositor

import (
	"context"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/matzehuels/imgstack/pkg/asset"
	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/observability"
)

// Interpolators maps interpolator names to scalers.
var Interpolators = map[string]draw.Scaler{
	"nearest":    draw.NearestNeighbor,
	"approx":     draw.ApproxBiLinear,
	"bilinear":   draw.BiLinear,
	"catmullrom": draw.CatmullRom,
}

// DefaultInterpolator is used when none is configured.
const DefaultInterpolator = "catmullrom"

// ParseInterpolator looks up a scaler by name. An empty name yields the
// default.
func ParseInterpolator(name string) (draw.Scaler, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultInterpolator
	}
	s, ok := Interpolators[name]
	if !ok {
		return nil, errs.New(errs.ErrCodeInvalidInput, "unknown interpolator %q", name)
	}
	return s, nil
}

type composeConfig struct {
	scaler     draw.Scaler
	background color.Color
}

// ComposeOption configures [Compose].
type ComposeOption func(*composeConfig)

// WithInterpolator sets the scaler used to resize images.
func WithInterpolator(s draw.Scaler) ComposeOption {
	return func(c *composeConfig) {
		if s != nil {
			c.scaler = s
		}
	}
}

// WithBackground fills the surface before drawing. Only visible through
// transparent pixels.
func WithBackground(bg color.Color) ComposeOption {
	return func(c *composeConfig) { c.background = bg }
}

// Compose draws assets top to bottom onto a new surface under policy.
// Assets whose bitmaps have been released cannot be composited.
func Compose(ctx context.Context, assets []*asset.Asset, policy Policy, opts ...ComposeOption) (surface *image.RGBA, layout Layout, err error) {
	cfg := composeConfig{scaler: draw.CatmullRom}
	for _, opt := range opts {
		opt(&cfg)
	}

	hooks := observability.Pipeline()
	hooks.OnCompositeStart(ctx, len(assets), policy.String())
	start := time.Now()
	defer func() {
		hooks.OnCompositeComplete(ctx, layout.Width, layout.Height, time.Since(start), err)
	}()

	layout, err = Plan(assets, policy)
	if err != nil {
		return nil, Layout{}, err
	}

	surface = image.NewRGBA(layout.Bounds())
	if cfg.background != nil {
		draw.Draw(surface, surface.Bounds(), image.NewUniform(cfg.background), image.Point{}, draw.Src)
	}

	for i, p := range layout.Placements {
		if err := ctx.Err(); err != nil {
			return nil, Layout{}, err
		}
		img := assets[i].Image()
		if img == nil {
			return nil, Layout{}, errs.New(errs.ErrCodeInternal, "asset %s was released before compositing", assets[i].ID())
		}
		if p.Rect.Empty() {
			continue
		}
		cfg.scaler.Scale(surface, p.Rect, img, img.Bounds(), draw.Over, nil)
	}
	return surface, layout, nil
}

// ParseBackground parses a "#rrggbb" colour. Empty and "transparent" yield
// nil, meaning no fill.
func ParseBackground(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "transparent") || strings.EqualFold(s, "none") {
		return nil, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid background colour %q", s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
