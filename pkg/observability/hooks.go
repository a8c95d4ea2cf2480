// Package observability lets a front-end watch what the libraries are doing
// without the libraries knowing who is listening.
//
// Three event families are emitted:
//   - [PipelineHooks]: batch loads, composites and exports
//   - [CacheHooks]: hits, misses and writes, tagged by key kind
//   - [HTTPHooks]: remote image fetches
//
// Every family starts out as a no-op. A binary registers its own
// implementations once at startup, before any work begins:
//
//	observability.SetPipelineHooks(myHooks)
//
// Libraries fetch the current hooks at the point of use:
//
//	hooks := observability.Pipeline()
//	hooks.OnLoadStart(ctx, len(sources))
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the load, composite and export stages.
type PipelineHooks interface {
	OnLoadStart(ctx context.Context, sources int)
	OnLoadComplete(ctx context.Context, images int, duration time.Duration, err error)

	OnCompositeStart(ctx context.Context, images int, policy string)
	OnCompositeComplete(ctx context.Context, width, height int, duration time.Duration, err error)

	OnExportComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// CacheHooks receives cache events. kind is "source", "thumbnail" or
// "composite".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, kind string)
	OnCacheMiss(ctx context.Context, kind string)
	OnCacheSet(ctx context.Context, kind string, size int)
}

// HTTPHooks receives events for outgoing image downloads.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError is called for transport failures, not for error statuses.
	OnError(ctx context.Context, method, host, path string, err error)
}

// Noop implements every hook interface and ignores all events. Embed it to
// implement only the events you care about.
type Noop struct{}

func (Noop) OnLoadStart(context.Context, int)                                    {}
func (Noop) OnLoadComplete(context.Context, int, time.Duration, error)           {}
func (Noop) OnCompositeStart(context.Context, int, string)                       {}
func (Noop) OnCompositeComplete(context.Context, int, int, time.Duration, error) {}
func (Noop) OnExportComplete(context.Context, string, int, time.Duration, error) {}
func (Noop) OnCacheHit(context.Context, string)                                  {}
func (Noop) OnCacheMiss(context.Context, string)                                 {}
func (Noop) OnCacheSet(context.Context, string, int)                             {}
func (Noop) OnRequest(context.Context, string, string, string)                   {}
func (Noop) OnResponse(context.Context, string, string, string, int, time.Duration) {
}
func (Noop) OnError(context.Context, string, string, string, error) {}

// slot holds one registered hook family.
type slot[T any] struct {
	mu sync.RWMutex
	h  T
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

func (s *slot[T]) set(h T) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

var (
	pipelineSlot = &slot[PipelineHooks]{h: Noop{}}
	cacheSlot    = &slot[CacheHooks]{h: Noop{}}
	httpSlot     = &slot[HTTPHooks]{h: Noop{}}
)

// SetPipelineHooks registers pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		pipelineSlot.set(h)
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheSlot.set(h)
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		httpSlot.set(h)
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.get() }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.get() }

// Reset restores the no-op hooks. Tests use it to undo registrations.
func Reset() {
	pipelineSlot.set(Noop{})
	cacheSlot.set(Noop{})
	httpSlot.set(Noop{})
}
