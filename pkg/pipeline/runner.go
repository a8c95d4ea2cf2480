package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/imgstack/pkg/asset"
	"github.com/matzehuels/imgstack/pkg/cache"
	"github.com/matzehuels/imgstack/pkg/compositor"
	"github.com/matzehuels/imgstack/pkg/export"
	"github.com/matzehuels/imgstack/pkg/httputil"
	"github.com/matzehuels/imgstack/pkg/session"
)

// Runner encapsulates pipeline execution with source caching.
// Both the stitch command and the terminal UI use it to avoid duplicating
// loader and session wiring.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Loader builds an asset loader for opts. URL sources go through the
// runner's cache.
func (r *Runner) Loader(opts Options) *asset.Loader {
	logger := r.logger(opts)
	fetchOpts := []asset.FetcherOption{
		asset.WithKeyer(r.Keyer),
		asset.WithRefresh(opts.Refresh),
	}
	if opts.FetchTimeout > 0 {
		fetchOpts = append(fetchOpts, asset.WithHTTPClient(httputil.NewHTTPClient(opts.FetchTimeout)))
	}
	if opts.MaxBytes > 0 {
		fetchOpts = append(fetchOpts, asset.WithFetchLimit(opts.MaxBytes))
	}
	loaderOpts := []asset.Option{
		asset.WithFetcher(asset.NewFetcher(r.Cache, fetchOpts...)),
		asset.WithLogger(logger),
	}
	if opts.MaxBytes > 0 {
		loaderOpts = append(loaderOpts, asset.WithMaxBytes(opts.MaxBytes))
	}
	if opts.Concurrency > 0 {
		loaderOpts = append(loaderOpts, asset.WithConcurrency(opts.Concurrency))
	}
	return asset.NewLoader(loaderOpts...)
}

// NewSession creates a session configured from opts. The options must
// already be validated.
func (r *Runner) NewSession(opts Options) (*session.Session, error) {
	policy, err := compositor.ParsePolicy(opts.Policy)
	if err != nil {
		return nil, err
	}
	scaler, err := compositor.ParseInterpolator(opts.Interpolator)
	if err != nil {
		return nil, err
	}
	bg, err := compositor.ParseBackground(opts.Background)
	if err != nil {
		return nil, err
	}
	return session.New(r.Loader(opts),
		session.WithPolicy(policy),
		session.WithComposeOptions(compositor.WithInterpolator(scaler), compositor.WithBackground(bg)),
		session.WithLogger(r.logger(opts)),
	)
}

// Execute runs the complete load → order → composite → encode pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.logger(opts)

	sess, err := r.NewSession(opts)
	if err != nil {
		return nil, err
	}
	defer sess.Reset()

	result := &Result{Format: export.Format(opts.Format)}

	// Stage 1: Load
	loadStart := time.Now()
	if err := sess.LoadBatch(ctx, asset.ParseSources(opts.Sources)); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Images = len(opts.Sources)

	// Stage 2: Order
	order := opts.Order
	if opts.Reverse {
		order = ReverseOrder(len(opts.Sources))
	}
	if err := ApplyOrder(sess, order); err != nil {
		return nil, fmt.Errorf("order: %w", err)
	}
	for _, it := range sess.Items() {
		result.Order = append(result.Order, it.Name)
	}

	// Stage 3: Composite
	compositeStart := time.Now()
	surface, layout, err := sess.Composite(ctx)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	result.Layout = layout
	result.Stats.CompositeTime = time.Since(compositeStart)
	result.Stats.Width, result.Stats.Height = layout.Width, layout.Height

	logger.Info("composited images",
		"images", result.Stats.Images,
		"policy", layout.Policy,
		"width", layout.Width,
		"height", layout.Height,
		"duration", result.Stats.CompositeTime)

	// Stage 4: Encode
	encodeStart := time.Now()
	data, err := export.Bytes(ctx, surface, opts.ExportOptions())
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	result.Artifact = data
	result.Filename = export.Filename(opts.Filename, result.Format)
	result.Stats.EncodeTime = time.Since(encodeStart)
	result.Stats.Bytes = len(data)

	logger.Info("encoded output",
		"format", result.Format,
		"bytes", len(data),
		"duration", result.Stats.EncodeTime)

	return result, nil
}

// ApplyOrder rearranges a freshly loaded session so that position i holds
// the asset loaded from source order[i]. A nil or identity order is a no-op.
func ApplyOrder(sess *session.Session, order []int) error {
	if len(order) == 0 || identity(order) {
		return nil
	}
	coll := sess.Collection()
	ids := coll.Snapshot().IDs()
	if err := ValidateOrder(order, len(ids)); err != nil {
		return err
	}
	for pos, src := range order {
		if _, err := coll.ReorderTo(ids[src], pos); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
