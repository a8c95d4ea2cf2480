package asset

import (
	"bytes"
	"context"
	"image"
	"sort"
	"time"

	// Registered decoders. image.Decode picks one by magic bytes.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/observability"
)

var supportedFormats = []string{"bmp", "gif", "jpeg", "png", "tiff", "webp"}

// SupportedFormats lists the decoder names accepted by the loader.
func SupportedFormats() []string {
	out := append([]string(nil), supportedFormats...)
	sort.Strings(out)
	return out
}

// Loader turns sources into assets.
// The zero value is not usable; create one with [NewLoader].
type Loader struct {
	fetcher     *Fetcher
	maxBytes    int64
	concurrency int
	logger      *log.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher sets the fetcher used for URL sources without their own.
func WithFetcher(f *Fetcher) Option {
	return func(l *Loader) {
		if f != nil {
			l.fetcher = f
		}
	}
}

// WithMaxBytes bounds the encoded size of any single source.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithConcurrency limits how many sources of a batch decode at once.
// Zero or less means one goroutine per source.
func WithConcurrency(n int) Option {
	return func(l *Loader) { l.concurrency = n }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader. Without options it fetches URLs uncached and
// accepts sources up to [DefaultMaxBytes].
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		maxBytes: DefaultMaxBytes,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fetcher == nil {
		l.fetcher = NewFetcher(nil, WithFetchLimit(l.maxBytes))
	}
	return l
}

// Fetcher returns the loader's default fetcher.
func (l *Loader) Fetcher() *Fetcher { return l.fetcher }

// Load reads and decodes a single source.
// Read failures return READ_ERROR; undecodable data returns DECODE_ERROR.
func (l *Loader) Load(ctx context.Context, src Source) (*Asset, error) {
	if u, ok := src.(URLSource); ok && u.Fetcher == nil {
		u.Fetcher = l.fetcher
		src = u
	}
	name := src.Name()

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeRead, err, "read %s", name)
	}
	data, err := readLimited(rc, l.maxBytes)
	rc.Close()
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeRead, err, "read %s", name)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeRead, err, "read %s", name)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "decode %s", name)
	}
	a, err := New(img, name, format)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "decode %s", name)
	}

	l.logger.Debug("decoded image", "name", name, "format", format,
		"width", a.Width(), "height", a.Height(), "bytes", len(data))
	return a, nil
}

// LoadBatch decodes every source concurrently. The result has one asset per
// source, in source order. If any source fails, the assets decoded so far
// are released, the remaining loads are cancelled and the first error is
// returned. An empty source list returns EMPTY_BATCH.
func (l *Loader) LoadBatch(ctx context.Context, srcs []Source) (assets []*Asset, err error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, len(srcs))
	start := time.Now()
	defer func() {
		hooks.OnLoadComplete(ctx, len(assets), time.Since(start), err)
	}()

	if len(srcs) == 0 {
		return nil, errs.New(errs.ErrCodeEmptyBatch, "no images selected")
	}

	results := make([]*Asset, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	if l.concurrency > 0 {
		g.SetLimit(l.concurrency)
	}
	for i, src := range srcs {
		g.Go(func() error {
			a, err := l.Load(gctx, src)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ReleaseAll(results)
		l.logger.Warn("batch load failed", "sources", len(srcs), "error", err)
		return nil, err
	}

	l.logger.Debug("loaded batch", "images", len(results), "duration", time.Since(start))
	return results, nil
}
