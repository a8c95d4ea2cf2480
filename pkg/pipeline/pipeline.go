// Package pipeline provides the one-shot stitching pipeline for imgstack.
//
// This package implements the complete load → order → composite → encode
// pipeline used by the stitch command. It drives a [session.Session] the
// same way the interactive front-ends do, so ordering and compositing go
// through the same collection operations everywhere.
//
// # Stages
//
//  1. Load: decode every source concurrently (all-or-nothing)
//  2. Order: apply an explicit permutation or a reversal
//  3. Composite: scale to a common width and stack top to bottom
//  4. Encode: JPEG or PNG bytes, plus the derived output filename
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Sources: []string{"a.png", "https://example.com/b.jpg"},
//	    Policy:  "widest",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.Filename, result.Artifact, 0o644)
package pipeline

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/imgstack/pkg/compositor"
	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/export"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultPolicy is the scaling policy when none is given.
	DefaultPolicy = "narrowest"

	// DefaultFormat is the output format when none is given.
	DefaultFormat = string(export.JPEG)

	// DefaultQuality is the JPEG quality when none is given.
	DefaultQuality = export.DefaultQuality

	// MaxSources bounds the number of images in one run.
	MaxSources = 200
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
type Options struct {
	// Load options
	Sources     []string `json:"sources"`
	MaxBytes    int64    `json:"max_bytes,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
	Refresh     bool     `json:"refresh,omitempty"`

	// Order options
	Order   []int `json:"order,omitempty"` // Order[i] is the source shown at position i
	Reverse bool  `json:"reverse,omitempty"`

	// Composite options
	Policy       string `json:"policy,omitempty"`
	Interpolator string `json:"interpolator,omitempty"`
	Background   string `json:"background,omitempty"`

	// Encode options
	Format   string `json:"format,omitempty"`
	Quality  int    `json:"quality,omitempty"`
	Filename string `json:"filename,omitempty"`

	// Runtime options (not serialized)
	Logger       *log.Logger   `json:"-"`
	FetchTimeout time.Duration `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Layout is the composite drawing plan.
	Layout compositor.Layout

	// Artifact is the encoded composite.
	Artifact []byte

	// Format is the encoding of Artifact.
	Format export.Format

	// Filename is the derived output filename.
	Filename string

	// Order lists the source names in final stacking order.
	Order []string

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Images        int
	Width         int
	Height        int
	Bytes         int
	LoadTime      time.Duration
	CompositeTime time.Duration
	EncodeTime    time.Duration
}

// Total returns the summed stage durations.
func (s Stats) Total() time.Duration {
	return s.LoadTime + s.CompositeTime + s.EncodeTime
}

// =============================================================================
// Validation
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Sources) == 0 {
		return errs.New(errs.ErrCodeEmptyBatch, "no images given")
	}
	if len(o.Sources) > MaxSources {
		return errs.New(errs.ErrCodeInvalidInput, "too many images (%d, max %d)", len(o.Sources), MaxSources)
	}
	for _, s := range o.Sources {
		if err := errs.ValidateSourcePath(s); err != nil {
			return err
		}
	}

	if o.Policy == "" {
		o.Policy = DefaultPolicy
	}
	if _, err := compositor.ParsePolicy(o.Policy); err != nil {
		return err
	}
	if _, err := compositor.ParseInterpolator(o.Interpolator); err != nil {
		return err
	}
	if _, err := compositor.ParseBackground(o.Background); err != nil {
		return err
	}

	if o.Format == "" {
		o.Format = DefaultFormat
	}
	f, err := export.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = string(f)
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality < 1 || o.Quality > 100 {
		return errs.New(errs.ErrCodeInvalidInput, "quality %d out of range [1, 100]", o.Quality)
	}
	if err := errs.ValidateFilename(o.Filename); err != nil {
		return err
	}

	if len(o.Order) > 0 {
		if o.Reverse {
			return errs.New(errs.ErrCodeInvalidInput, "order and reverse are mutually exclusive")
		}
		if err := ValidateOrder(o.Order, len(o.Sources)); err != nil {
			return err
		}
	}

	o.validated = true
	return nil
}

// ExportOptions returns the encoder settings.
func (o Options) ExportOptions() export.Options {
	return export.Options{Format: export.Format(o.Format), Quality: o.Quality}
}

// ValidateOrder checks that order is a permutation of 0..n-1.
func ValidateOrder(order []int, n int) error {
	if len(order) != n {
		return errs.New(errs.ErrCodeInvalidInput, "order has %d entries for %d images", len(order), n)
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n {
			return errs.New(errs.ErrCodeInvalidIndex, "order index %d out of range [0, %d)", i, n)
		}
		if seen[i] {
			return errs.New(errs.ErrCodeInvalidInput, "order repeats index %d", i)
		}
		seen[i] = true
	}
	return nil
}

// ParseOrder parses a comma-separated permutation such as "2,0,1".
func ParseOrder(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	order := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid order %q", s)
		}
		order = append(order, i)
	}
	return order, nil
}

// ReverseOrder returns the permutation n-1..0.
func ReverseOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = n - 1 - i
	}
	return order
}

// identity reports whether order leaves every index in place.
func identity(order []int) bool {
	return slices.IsSorted(order)
}
