package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/imgstack/pkg/asset"
	"github.com/matzehuels/imgstack/pkg/cache"
	"github.com/matzehuels/imgstack/pkg/compositor"
	errs "github.com/matzehuels/imgstack/pkg/errors"
	"github.com/matzehuels/imgstack/pkg/export"
	"github.com/matzehuels/imgstack/pkg/reorder"
	"github.com/matzehuels/imgstack/pkg/session"
	"github.com/matzehuels/imgstack/pkg/viewport"
)

// stateResponse is the list view of a session.
type stateResponse struct {
	Visible  bool              `json:"visible"`
	Policy   compositor.Policy `json:"policy"`
	Images   []session.Item    `json:"images"`
	Drag     *dragState        `json:"drag,omitempty"`
	LastMove *moveState        `json:"last_move,omitempty"`
}

type moveState struct {
	Seq     uint64        `json:"seq"`
	Cause   reorder.Cause `json:"cause"`
	AssetID uuid.UUID     `json:"asset_id"`
	From    int           `json:"from"`
	To      int           `json:"to"`
}

type dragState struct {
	AssetID       uuid.UUID `json:"asset_id"`
	OriginalIndex int       `json:"original_index"`
	CurrentIndex  int       `json:"current_index"`
}

func state(sess *session.Session) stateResponse {
	resp := stateResponse{
		Visible: sess.Visible(),
		Policy:  sess.Policy(),
		Images:  sess.Items(),
	}
	if d, ok := sess.Controller().Active(); ok {
		resp.Drag = &dragState{AssetID: d.AssetID, OriginalIndex: d.OriginalIndex, CurrentIndex: d.CurrentIndex}
	}
	if mv, ok := sess.LastMove(); ok {
		resp.LastMove = &moveState{Seq: mv.Seq, Cause: mv.Cause, AssetID: mv.AssetID, From: mv.From, To: mv.To}
	}
	return resp
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	width, err := strconv.Atoi(r.URL.Query().Get("width"))
	if err != nil || width < 0 {
		s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "width must be a non-negative integer"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"width":      width,
		"breakpoint": s.cfg.Breakpoint,
		"narrow":     viewport.Narrow(width, s.cfg.Breakpoint),
		"hint":       viewport.Hint(width, s.cfg.Breakpoint),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, state(sessionFrom(r)))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid upload"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	srcs := make([]asset.Source, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, errs.Wrap(errs.ErrCodeRead, err, "read %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, errs.Wrap(errs.ErrCodeRead, err, "read %s", fh.Filename))
			return
		}
		srcs = append(srcs, asset.BytesSource{Label: fh.Filename, Data: data})
	}
	s.loadBatch(w, r, sess, srcs)
}

type urlsRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) handleURLs(w http.ResponseWriter, r *http.Request) {
	var req urlsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	srcs := make([]asset.Source, len(req.URLs))
	for i, u := range req.URLs {
		if err := errs.ValidateURL(u); err != nil {
			s.writeError(w, err)
			return
		}
		srcs[i] = asset.URLSource{URL: u}
	}
	s.loadBatch(w, r, sessionFrom(r), srcs)
}

// handleFixtures loads the built-in sample batch. DELETE /api/images
// clears it again.
func (s *Server) handleFixtures(w http.ResponseWriter, r *http.Request) {
	s.loadBatch(w, r, sessionFrom(r), asset.Fixtures())
}

func (s *Server) loadBatch(w http.ResponseWriter, r *http.Request, sess *session.Session, srcs []asset.Source) {
	if err := sess.LoadBatch(r.Context(), srcs); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state(sess))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Reset()
	s.writeJSON(w, http.StatusOK, state(sess))
}

// lookup resolves the {id} URL parameter to an asset of sess.
func lookup(r *http.Request, sess *session.Session) (*asset.Asset, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid image id")
	}
	snap := sess.Collection().Snapshot()
	i := snap.IndexOf(id)
	if i < 0 {
		return nil, errs.New(errs.ErrCodeNotMember, "image %s is not in the collection", id)
	}
	return snap.At(i), nil
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	a, err := lookup(r, sess)
	if err != nil {
		s.writeError(w, err)
		return
	}

	size := s.cfg.ThumbnailSize
	keyer := cache.NewScopedKeyer(s.keyer, "session:"+sess.ID+":")
	key := keyer.ThumbnailKey(a.ID().String(), size, size)
	if data, hit, err := s.cache.Get(r.Context(), key); err == nil && hit {
		writeBytes(w, "image/png", data)
		return
	}

	img := a.Image()
	if img == nil {
		s.writeError(w, errs.New(errs.ErrCodeNotMember, "image %s was released", a.ID()))
		return
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, size, size, imaging.Lanczos), imaging.PNG); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "encode thumbnail"))
		return
	}
	_ = s.cache.Set(r.Context(), key, buf.Bytes(), cache.TTLThumbnail)
	writeBytes(w, "image/png", buf.Bytes())
}

type direction int

const (
	up direction = iota
	down
)

func (s *Server) handleMove(d direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		a, err := lookup(r, sess)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if d == up {
			err = sess.Controller().RequestMoveUp(a.ID())
		} else {
			err = sess.Controller().RequestMoveDown(a.ID())
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, state(sess))
	}
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var req dragRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ev, err := req.event()
	if err != nil {
		s.writeError(w, err)
		return
	}
	geom, err := req.Geometry.build()
	if err != nil {
		s.writeError(w, err)
		return
	}
	changed, err := sess.Controller().Dispatch(ev, geom)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Changed bool `json:"changed"`
		stateResponse
	}{changed, state(sess)})
}

type policyRequest struct {
	Policy compositor.Policy `json:"policy"`
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var req policyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.SetPolicy(req.Policy); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state(sess))
}

// handleComposite serves the current surface as a preview in the server's
// default export format.
func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	data, err := s.encodeComposite(r, sess, s.cfg.Export)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeBytes(w, s.cfg.Export.Format.ContentType(), data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()

	opts := s.cfg.Export
	if v := q.Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			s.writeError(w, err)
			return
		}
		opts.Format = f
	}
	if v := q.Get("quality"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid quality"))
			return
		}
		opts.Quality = n
	}
	name := q.Get("filename")
	if err := errs.ValidateFilename(name); err != nil {
		s.writeError(w, err)
		return
	}

	data, err := s.encodeComposite(r, sess, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	filename := export.Filename(name, opts.Format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeBytes(w, opts.Format.ContentType(), data)
	s.logger.Info("exported composite", "session", sess.ID[:8], "file", filename, "bytes", len(data))
}

// encodeComposite returns encoded composite bytes, cached per ordered asset
// set, policy and encoder settings.
func (s *Server) encodeComposite(r *http.Request, sess *session.Session, opts export.Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ctx := r.Context()
	frame, err := sess.Frame(ctx)
	if err != nil {
		return nil, err
	}
	key := s.compositeKey(sess.ID, frame, opts)
	if data, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		return data, nil
	}

	data, err := export.Bytes(ctx, frame.Surface, opts)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, data, cache.TTLComposite)
	return data, nil
}

// compositeKey keys encoded bytes on the order and policy the frame was
// drawn with, never on the live collection.
func (s *Server) compositeKey(sessionID string, frame session.Frame, opts export.Options) string {
	ids := make([]string, len(frame.Order))
	for i, id := range frame.Order {
		ids[i] = id.String()
	}
	keyer := cache.NewScopedKeyer(s.keyer, "session:"+sessionID+":")
	return keyer.CompositeKey(ids, cache.CompositeKeyOpts{
		Policy:  frame.Policy.String(),
		Format:  string(opts.Format),
		Quality: opts.Quality,
	})
}

// dragRequest carries one pointer or touch event plus, on the start event,
// the list geometry the client rendered.
type dragRequest struct {
	Kind     string          `json:"kind"`
	Event    json.RawMessage `json:"event"`
	Geometry *geometrySpec   `json:"geometry,omitempty"`
}

func (d dragRequest) event() (reorder.Event, error) {
	switch d.Kind {
	case "pointer", "":
		var ev reorder.PointerEvent
		if err := json.Unmarshal(d.Event, &ev); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid pointer event")
		}
		return ev, nil
	case "touch":
		var ev reorder.TouchEvent
		if err := json.Unmarshal(d.Event, &ev); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid touch event")
		}
		return ev, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "unknown event kind %q (want pointer or touch)", d.Kind)
}

// geometrySpec describes list slots: either uniform slots of Extent, or
// stacked slots with individual Sizes.
type geometrySpec struct {
	Origin float64   `json:"origin"`
	Extent float64   `json:"extent,omitempty"`
	Sizes  []float64 `json:"sizes,omitempty"`
	Axis   string    `json:"axis,omitempty"`
}

func (g *geometrySpec) build() (reorder.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	var axis reorder.Axis
	switch g.Axis {
	case "", "vertical":
		axis = reorder.Vertical
	case "horizontal":
		axis = reorder.Horizontal
	default:
		return nil, errs.New(errs.ErrCodeInvalidInput, "unknown axis %q", g.Axis)
	}
	if len(g.Sizes) > 0 {
		for _, sz := range g.Sizes {
			if sz <= 0 {
				return nil, errs.New(errs.ErrCodeInvalidInput, "slot sizes must be positive")
			}
		}
		return reorder.Stacked{Origin: g.Origin, Sizes: g.Sizes, Direction: axis}, nil
	}
	if g.Extent <= 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "geometry needs a positive extent or sizes")
	}
	return reorder.Uniform{Origin: g.Origin, Extent: g.Extent, Direction: axis}, nil
}
