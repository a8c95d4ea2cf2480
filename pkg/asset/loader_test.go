package asset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   func(*testing.T, int, int) []byte
		format string
	}{
		{"png", encodePNG, "png"},
		{"jpeg", encodeJPEG, "jpeg"},
		{"gif", encodeGIF, "gif"},
	}
	l := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := l.Load(context.Background(), BytesSource{Label: "x." + tt.name, Data: tt.data(t, 12, 7)})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if a.Format() != tt.format {
				t.Errorf("Format = %q, want %q", a.Format(), tt.format)
			}
			if a.Width() != 12 || a.Height() != 7 {
				t.Errorf("dimensions = %dx%d, want 12x7", a.Width(), a.Height())
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(path, encodePNG(t, 5, 6), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := NewLoader().Load(context.Background(), FileSource{Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Name() != "pic.png" {
		t.Errorf("Name = %q, want pic.png", a.Name())
	}
}

func TestLoadErrors(t *testing.T) {
	l := NewLoader(WithMaxBytes(1024))
	tests := []struct {
		name string
		src  Source
		code errs.Code
	}{
		{"missing file", FileSource{Path: filepath.Join(t.TempDir(), "nope.png")}, errs.ErrCodeRead},
		{"garbage", BytesSource{Label: "g", Data: []byte("not an image")}, errs.ErrCodeDecode},
		{"empty", BytesSource{Label: "e"}, errs.ErrCodeDecode},
		{"too large", BytesSource{Label: "big", Data: make([]byte, 2048)}, errs.ErrCodeRead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.src)
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadBatchPreservesOrder(t *testing.T) {
	srcs := []Source{
		BytesSource{Label: "a", Data: encodePNG(t, 10, 1)},
		BytesSource{Label: "b", Data: encodeJPEG(t, 20, 2)},
		BytesSource{Label: "c", Data: encodeGIF(t, 30, 3)},
	}
	assets, err := NewLoader(WithConcurrency(2)).LoadBatch(context.Background(), srcs)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if assets[i].Name() != want {
			t.Errorf("assets[%d] = %s, want %s", i, assets[i].Name(), want)
		}
	}
}

func TestLoadBatchEmpty(t *testing.T) {
	_, err := NewLoader().LoadBatch(context.Background(), nil)
	if !errs.Is(err, errs.ErrCodeEmptyBatch) {
		t.Errorf("err = %v, want EMPTY_BATCH", err)
	}
}

// countingSource counts opens so tests can see a source was attempted.
type countingSource struct {
	BytesSource
	opened *atomic.Int32
}

func (s countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.opened.Add(1)
	return s.BytesSource.Open(ctx)
}

func TestLoadBatchIsAllOrNothing(t *testing.T) {
	var opened atomic.Int32
	good := encodePNG(t, 8, 8)
	srcs := []Source{
		countingSource{BytesSource{Label: "1", Data: good}, &opened},
		countingSource{BytesSource{Label: "2", Data: good}, &opened},
		BytesSource{Label: "broken", Data: []byte("junk")},
		countingSource{BytesSource{Label: "3", Data: good}, &opened},
	}
	assets, err := NewLoader().LoadBatch(context.Background(), srcs)
	if err == nil {
		t.Fatal("LoadBatch should fail when one source is undecodable")
	}
	if assets != nil {
		t.Errorf("failed batch returned %d assets, want none", len(assets))
	}
	if !errs.IsBatchFailure(err) {
		t.Errorf("err = %v, want a batch failure code", err)
	}
}

func TestLoadBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader().LoadBatch(ctx, []Source{BytesSource{Label: "a", Data: encodePNG(t, 2, 2)}})
	if err == nil {
		t.Fatal("cancelled batch should fail")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}

func TestSupportedFormats(t *testing.T) {
	got := SupportedFormats()
	want := []string{"bmp", "gif", "jpeg", "png", "tiff", "webp"}
	if len(got) != len(want) {
		t.Fatalf("SupportedFormats = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SupportedFormats[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
