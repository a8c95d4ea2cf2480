// Package server exposes imgstack sessions over HTTP.
//
// Every browser gets its own [session.Session], identified by the
// imgstack_session cookie. The JSON API mirrors what the interactive
// front-ends do: upload a batch, reorder it by drag or by explicit
// up/down moves, switch the scaling policy and download the composite.
//
// # Routes
//
//	GET    /healthz
//	GET    /api/hint?width=N
//	GET    /api/images
//	POST   /api/images                 multipart "files"
//	POST   /api/images/urls            {"urls": [...]}
//	DELETE /api/images
//	GET    /api/images/{id}/thumbnail
//	POST   /api/images/{id}/up
//	POST   /api/images/{id}/down
//	POST   /api/drag                   {"kind", "event", "geometry"}
//	PUT    /api/policy                 {"policy": "widest"}
//	GET    /api/composite
//	GET    /api/export?filename=&format=&quality=
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/imgstack/pkg/cache"
	"github.com/matzehuels/imgstack/pkg/export"
	"github.com/matzehuels/imgstack/pkg/session"
	"github.com/matzehuels/imgstack/pkg/viewport"
)

// CookieName is the session cookie.
const CookieName = "imgstack_session"

// Defaults for [Config].
const (
	DefaultAddr            = ":8080"
	DefaultMaxUploadBytes  = 100 << 20
	DefaultCleanupInterval = 5 * time.Minute
	DefaultThumbnailSize   = 160
	shutdownTimeout        = 5 * time.Second
)

// Config holds server settings.
type Config struct {
	Addr            string
	MaxUploadBytes  int64
	Breakpoint      int
	ThumbnailSize   int
	CleanupInterval time.Duration
	Export          export.Options
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Breakpoint <= 0 {
		c.Breakpoint = viewport.DefaultBreakpoint
	}
	if c.ThumbnailSize <= 0 {
		c.ThumbnailSize = DefaultThumbnailSize
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.Export.Format == "" {
		c.Export.Format = export.JPEG
	}
	if c.Export.Quality == 0 {
		c.Export.Quality = export.DefaultQuality
	}
}

// Server is the imgstack HTTP API.
type Server struct {
	cfg    Config
	store  *session.Store
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
	router chi.Router
}

// New creates a server over store. Thumbnails and composite previews are
// cached in c; a nil cache disables caching and a nil logger uses
// log.Default().
func New(cfg Config, store *session.Store, c cache.Cache, logger *log.Logger) *Server {
	cfg.setDefaults()
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		cache:  c,
		keyer:  cache.NewDefaultKeyer(),
		logger: logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/hint", s.handleHint)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)

			r.Get("/images", s.handleState)
			r.Post("/images", s.handleUpload)
			r.Post("/images/urls", s.handleURLs)
			r.Post("/images/fixtures", s.handleFixtures)
			r.Delete("/images", s.handleReset)
			r.Get("/images/{id}/thumbnail", s.handleThumbnail)
			r.Post("/images/{id}/up", s.handleMove(up))
			r.Post("/images/{id}/down", s.handleMove(down))
			r.Post("/drag", s.handleDrag)
			r.Put("/policy", s.handlePolicy)
			r.Get("/composite", s.handleComposite)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Expired sessions are swept every CleanupInterval.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("imgstack server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			} else if n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		case err := <-serverErr:
			return err
		case <-ctx.Done():
			s.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			s.logger.Info("server stopped")
			return s.store.Close()
		}
	}
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type ctxKey int

const sessionKey ctxKey = 0

// withSession attaches the caller's session, creating one and setting the
// cookie when the request carries none or an expired one.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(CookieName); err == nil {
			id = c.Value
		}
		sess, created, err := s.store.GetOrCreate(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			s.logger.Debug("session created", "session", sess.ID[:8])
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey).(*session.Session)
}
