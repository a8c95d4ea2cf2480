// Package session ties one user's collection, reorder controller and
// composite settings together.
//
// A [Session] is the session-scoped context every front-end works through:
// the CLI creates one per run, the terminal UI one per window and the HTTP
// server one per browser cookie. It owns
//   - the ordered collection and its reorder controller
//   - the scaling policy
//   - the batch generation counter that drops stale batch results
//   - the cached composite surface and the visible flag
//
// # Batches
//
// [Session.LoadBatch] hides and empties the collection first, then decodes
// the new batch. Only a complete, current batch is shown: if any source
// fails the collection stays empty and hidden, and if a newer batch was
// requested while this one was decoding, its results are released and
// STALE_BATCH is returned.
//
// # Compositing
//
// The composite is rebuilt lazily. Reorders bump the collection version and
// [Session.SetPolicy] changes the policy; the next [Session.Composite] call
// notices either and recomposites without reloading any image.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/imgstack/pkg/asset"
	"github.com/matzehuels/imgstack/pkg/collection"
	"github.com/matzehuels/imgstack/pkg/compositor"
	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/export"
	"github.com/matzehuels/imgstack/pkg/reorder"
)

// Session is one user's stitching workspace. It is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	loader *asset.Loader
	coll   *collection.Collection
	ctrl   *reorder.Controller
	logger *log.Logger

	mu          sync.Mutex
	generation  uint64
	policy      compositor.Policy
	composeOpts []compositor.ComposeOption
	visible     bool
	lastAccess  time.Time

	frame *Frame

	moveMu   sync.Mutex
	lastMove Move
}

// Move is a reorder seen by the session. Seq increases with every reorder
// and is never reset.
type Move struct {
	reorder.Change
	Seq uint64
}

// Frame is a composite together with the order and policy it was drawn
// for. Order stays valid after later reorders, so callers can key derived
// data on it.
type Frame struct {
	Surface *image.RGBA
	Layout  compositor.Layout
	Order   []uuid.UUID
	Version uint64
	Policy  compositor.Policy
}

// Option configures a Session.
type Option func(*config)

type config struct {
	policy      compositor.Policy
	composeOpts []compositor.ComposeOption
	ctrlOpts    []reorder.Option
	logger      *log.Logger
}

// WithPolicy sets the initial scaling policy.
func WithPolicy(p compositor.Policy) Option {
	return func(c *config) { c.policy = p }
}

// WithComposeOptions sets options passed to every composite.
func WithComposeOptions(opts ...compositor.ComposeOption) Option {
	return func(c *config) { c.composeOpts = append(c.composeOpts, opts...) }
}

// WithControllerOptions passes options to the reorder controller.
func WithControllerOptions(opts ...reorder.Option) Option {
	return func(c *config) { c.ctrlOpts = append(c.ctrlOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty, hidden session. A nil loader uses [asset.NewLoader].
func New(loader *asset.Loader, opts ...Option) (*Session, error) {
	cfg := config{logger: log.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.policy.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidPolicy, "unknown scaling policy %d", int(cfg.policy))
	}
	if loader == nil {
		loader = asset.NewLoader(asset.WithLogger(cfg.logger))
	}
	id, err := GenerateID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	coll := collection.New()
	ctrlOpts := append([]reorder.Option{reorder.WithLogger(cfg.logger)}, cfg.ctrlOpts...)
	now := time.Now()
	s := &Session{
		ID:          id,
		CreatedAt:   now,
		loader:      loader,
		coll:        coll,
		ctrl:        reorder.New(coll, ctrlOpts...),
		logger:      cfg.logger,
		policy:      cfg.policy,
		composeOpts: cfg.composeOpts,
		lastAccess:  now,
	}
	s.ctrl.AddListener(s.recordMove)
	return s, nil
}

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Collection returns the session's ordered collection.
func (s *Session) Collection() *collection.Collection { return s.coll }

// Controller returns the session's reorder controller.
func (s *Session) Controller() *reorder.Controller { return s.ctrl }

// LoadBatch replaces the collection with the assets decoded from srcs.
func (s *Session) LoadBatch(ctx context.Context, srcs []asset.Source) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.hideLocked()
	s.mu.Unlock()

	s.logger.Info("loading images", "sources", len(srcs))
	start := time.Now()
	assets, err := s.loader.LoadBatch(ctx, srcs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		asset.ReleaseAll(assets)
		s.logger.Debug("discarded stale batch", "generation", gen, "current", s.generation)
		return errs.New(errs.ErrCodeStaleBatch, "batch superseded by a newer load")
	}
	if err != nil {
		s.logger.Error("batch load failed", "error", errs.UserMessage(err))
		return err
	}
	if err := s.coll.Load(assets); err != nil {
		return err
	}
	s.visible = true
	s.logger.Info("loaded images", "images", len(assets), "duration", time.Since(start))
	return nil
}

// LoadAssets shows an already decoded batch, as LoadBatch would on success.
func (s *Session) LoadAssets(assets []*asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.hideLocked()
	if err := s.coll.Load(assets); err != nil {
		return err
	}
	s.visible = true
	return nil
}

// Reset empties the session, drops any drag and hides the output. Batches
// still decoding become stale.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.hideLocked()
}

func (s *Session) hideLocked() {
	s.ctrl.Reset()
	s.coll.Clear()
	s.visible = false
	s.frame = nil

	s.moveMu.Lock()
	s.lastMove = Move{Seq: s.lastMove.Seq}
	s.moveMu.Unlock()
}

// recordMove runs under the controller lock, so it only takes moveMu.
func (s *Session) recordMove(ch reorder.Change) {
	s.moveMu.Lock()
	defer s.moveMu.Unlock()
	s.lastMove = Move{Change: ch, Seq: s.lastMove.Seq + 1}
}

// LastMove returns the most recent reorder of the current batch. ok is
// false when nothing has moved since the batch was shown.
func (s *Session) LastMove() (mv Move, ok bool) {
	s.moveMu.Lock()
	defer s.moveMu.Unlock()
	return s.lastMove, s.lastMove.AssetID != uuid.Nil
}

// Visible reports whether a complete batch is currently shown.
func (s *Session) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Policy returns the current scaling policy.
func (s *Session) Policy() compositor.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// SetPolicy changes the scaling policy. The next composite uses it.
func (s *Session) SetPolicy(p compositor.Policy) error {
	if !p.Valid() {
		return errs.New(errs.ErrCodeInvalidPolicy, "unknown scaling policy %d", int(p))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy != p {
		s.logger.Debug("scaling policy changed", "policy", p)
	}
	s.policy = p
	return nil
}

// TogglePolicy flips the scaling policy and returns the new one.
func (s *Session) TogglePolicy() compositor.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = s.policy.Toggle()
	return s.policy
}

// Composite returns the surface for the current order and policy,
// recompositing only when either changed since the last call. The returned
// surface must not be modified.
func (s *Session) Composite(ctx context.Context) (*image.RGBA, compositor.Layout, error) {
	f, err := s.Frame(ctx)
	if err != nil {
		return nil, compositor.Layout{}, err
	}
	return f.Surface, f.Layout, nil
}

// Frame is like Composite but also reports the order and policy the
// surface was drawn with. The surface must not be modified.
func (s *Session) Frame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.visible || s.coll.Len() == 0 {
		return Frame{}, errs.New(errs.ErrCodeEmptyComposite, "no images loaded")
	}
	snap := s.coll.Snapshot()
	if f := s.frame; f != nil && f.Version == snap.Version() && f.Policy == s.policy {
		return *f, nil
	}

	start := time.Now()
	surface, layout, err := compositor.Compose(ctx, snap.Assets(), s.policy, s.composeOpts...)
	if err != nil {
		return Frame{}, err
	}
	s.frame = &Frame{
		Surface: surface,
		Layout:  layout,
		Order:   snap.IDs(),
		Version: snap.Version(),
		Policy:  s.policy,
	}
	s.logger.Debug("composited", "images", snap.Len(), "policy", s.policy,
		"width", layout.Width, "height", layout.Height, "duration", time.Since(start))
	return *s.frame, nil
}

// Export encodes the current composite to w.
func (s *Session) Export(ctx context.Context, w io.Writer, opts export.Options) error {
	surface, _, err := s.Composite(ctx)
	if err != nil {
		return err
	}
	return export.Encode(ctx, w, surface, opts)
}

// ExportFile writes the current composite into dir and returns the path.
func (s *Session) ExportFile(ctx context.Context, dir, name string, opts export.Options) (string, error) {
	surface, _, err := s.Composite(ctx)
	if err != nil {
		return "", err
	}
	return export.WriteFile(ctx, dir, name, surface, opts)
}

// Item is a list-view row for one asset.
type Item struct {
	ID          string     `json:"id"`
	Index       int        `json:"index"`
	Label       string     `json:"label"`
	Name        string     `json:"name"`
	Format      string     `json:"format"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Accent      string     `json:"accent"`
	CanMoveUp   bool       `json:"can_move_up"`
	CanMoveDown bool       `json:"can_move_down"`
	AccentRGBA  color.RGBA `json:"-"`
}

// Items returns the list view of the current order.
func (s *Session) Items() []Item {
	snap := s.coll.Snapshot()
	aff := reorder.Affordances(snap)
	items := make([]Item, snap.Len())
	for i := range items {
		a := snap.At(i)
		acc := a.Accent()
		items[i] = Item{
			ID:          a.ID().String(),
			Index:       i,
			Label:       fmt.Sprintf("Image %d", i+1),
			Name:        a.Name(),
			Format:      a.Format(),
			Width:       a.Width(),
			Height:      a.Height(),
			Accent:      fmt.Sprintf("#%02x%02x%02x", acc.R, acc.G, acc.B),
			CanMoveUp:   aff[i].CanMoveUp,
			CanMoveDown: aff[i].CanMoveDown,
			AccentRGBA:  acc,
		}
	}
	return items
}

// Touch records activity for idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

// LastAccess returns the time of the last recorded activity.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}
