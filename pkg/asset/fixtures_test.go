package asset

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func TestFixturesLoad(t *testing.T) {
	l := NewLoader(WithLogger(log.New(io.Discard)))
	assets, err := l.LoadBatch(context.Background(), Fixtures())
	if err != nil {
		t.Fatalf("LoadBatch(Fixtures()) error: %v", err)
	}
	defer ReleaseAll(assets)

	want := []struct {
		name   string
		format string
		w, h   int
	}{
		{"1.jpg", "jpeg", 640, 480},
		{"2.png", "png", 480, 640},
		{"rect.png", "png", 800, 200},
	}
	if len(assets) != len(want) {
		t.Fatalf("got %d fixtures, want %d", len(assets), len(want))
	}
	for i, w := range want {
		a := assets[i]
		if a.Name() != w.name || a.Format() != w.format || a.Width() != w.w || a.Height() != w.h {
			t.Errorf("fixture %d = %s %s %dx%d, want %s %s %dx%d",
				i, a.Name(), a.Format(), a.Width(), a.Height(), w.name, w.format, w.w, w.h)
		}
	}
}

func TestFixtureLocators(t *testing.T) {
	for _, loc := range FixtureLocators() {
		src, ok := ParseSource(loc).(FixtureSource)
		if !ok {
			t.Fatalf("ParseSource(%q) = %T, want FixtureSource", loc, ParseSource(loc))
		}
		if src.Width == 0 {
			t.Errorf("ParseSource(%q) did not resolve the fixture", loc)
		}
	}
	if src := ParseSource("FIXTURE:Rect.PNG").(FixtureSource); src.Width != 800 {
		t.Errorf("fixture names should match case-insensitively, got %+v", src)
	}
}

func TestUnknownFixture(t *testing.T) {
	l := NewLoader(WithLogger(log.New(io.Discard)))
	_, err := l.Load(context.Background(), ParseSource("fixture:nope.png"))
	if !errs.Is(err, errs.ErrCodeRead) {
		t.Errorf("err = %v, want READ_ERROR", err)
	}
}
