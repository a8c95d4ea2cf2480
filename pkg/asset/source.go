package asset

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Source is where an asset's encoded bytes come from.
type Source interface {
	// Name is the display name of the source (filename or URL tail).
	Name() string

	// Open returns a reader over the encoded image.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads an image from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return filepath.Base(s.Path) }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(s.Path)
}

// URLSource downloads an image over HTTP(S). A nil Fetcher is replaced by
// the loader's fetcher.
type URLSource struct {
	URL     string
	Fetcher *Fetcher
}

// Name returns the last path segment of the URL, or the host when the path
// is empty.
func (s URLSource) Name() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return s.URL
	}
	if base := path.Base(u.Path); base != "/" && base != "." {
		return base
	}
	return u.Host
}

func (s URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f := s.Fetcher
	if f == nil {
		f = NewFetcher(nil)
	}
	data, err := f.Fetch(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// BytesSource serves an image already held in memory, such as an upload.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Name() string { return s.Label }

func (s BytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// ParseSource turns a locator into a Source. http and https URLs become
// [URLSource], "fixture:" locators a [FixtureSource]; anything else is
// treated as a file path.
func ParseSource(locator string) Source {
	locator = strings.TrimSpace(locator)
	lower := strings.ToLower(locator)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return URLSource{URL: locator}
	}
	if strings.HasPrefix(lower, FixtureScheme) {
		return lookupFixture(locator[len(FixtureScheme):])
	}
	return FileSource{Path: locator}
}

// ParseSources applies [ParseSource] to every locator.
func ParseSources(locators []string) []Source {
	srcs := make([]Source, len(locators))
	for i, l := range locators {
		srcs[i] = ParseSource(l)
	}
	return srcs
}
