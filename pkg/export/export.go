// Package export encodes a composite and names the output file.
//
// JPEG is the default format, at quality 92. JPEG has no alpha channel, so
// transparent pixels are flattened onto white before encoding. PNG output
// is lossless and keeps transparency.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/observability"
)

const (
	// DefaultName is used when the caller supplies a blank filename.
	DefaultName = "joinedimage"

	// DefaultQuality is the JPEG quality used when none is set.
	DefaultQuality = 92
)

// Format is an output encoding.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// Formats lists the supported output formats.
var Formats = []Format{JPEG, PNG}

// ParseFormat accepts "jpeg", "jpg" or "png". Empty means JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "unsupported output format %q (want jpeg or png)", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == PNG {
		return ".png"
	}
	return ".jpg"
}

// ContentType returns the MIME type.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Options controls encoding.
type Options struct {
	Format  Format
	Quality int // JPEG only, 1..100
}

// Validate fills defaults and checks ranges.
func (o *Options) Validate() error {
	if o.Format == "" {
		o.Format = JPEG
	}
	if _, err := ParseFormat(string(o.Format)); err != nil {
		return err
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality < 1 || o.Quality > 100 {
		return errs.New(errs.ErrCodeInvalidInput, "quality %d out of range [1, 100]", o.Quality)
	}
	return nil
}

// Filename derives the output filename from a user-supplied name. Blank
// names become [DefaultName]. The format's extension is appended unless the
// name already ends with it (".jpeg" also counts for JPEG).
func Filename(name string, f Format) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == f.Ext():
		return name
	case f == JPEG && ext == ".jpeg":
		return name
	}
	return name + f.Ext()
}

// Encode writes img to w.
func Encode(ctx context.Context, w io.Writer, img image.Image, opts Options) (err error) {
	if err := opts.Validate(); err != nil {
		return err
	}
	if img == nil || img.Bounds().Empty() {
		return errs.New(errs.ErrCodeEmptyComposite, "nothing to export")
	}

	start := time.Now()
	cw := &countingWriter{w: w}
	defer func() {
		observability.Pipeline().OnExportComplete(ctx, string(opts.Format), cw.n, time.Since(start), err)
	}()

	switch opts.Format {
	case PNG:
		err = png.Encode(cw, img)
	default:
		err = jpeg.Encode(cw, flatten(img, color.White), &jpeg.Options{Quality: opts.Quality})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", opts.Format, err)
	}
	return nil
}

// Bytes encodes img into memory.
func Bytes(ctx context.Context, img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(ctx, &buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes img into dir under [Filename](name, opts.Format) and
// returns the written path. The file appears atomically.
func WriteFile(ctx context.Context, dir, name string, img image.Image, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	fname := Filename(name, opts.Format)
	if err := errs.ValidateFilename(fname); err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(ctx, tmp, img, opts); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fname)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// flatten composites img over bg when img may contain transparency.
func flatten(img image.Image, bg color.Color) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
