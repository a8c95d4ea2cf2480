package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/imgstack/pkg/observability"
)

// logHooks reports pipeline and cache events to a logger at debug level.
type logHooks struct {
	logger *log.Logger
}

// RegisterHooks routes observability events to the CLI logger. They only
// show up with --verbose.
func (c *CLI) RegisterHooks() {
	h := logHooks{logger: c.Logger}
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h logHooks) OnLoadStart(_ context.Context, sources int) {
	h.logger.Debug("load started", "sources", sources)
}

func (h logHooks) OnLoadComplete(_ context.Context, images int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("load failed", "duration", d, "error", err)
		return
	}
	h.logger.Debug("load complete", "images", images, "duration", d)
}

func (h logHooks) OnCompositeStart(_ context.Context, images int, policy string) {
	h.logger.Debug("composite started", "images", images, "policy", policy)
}

func (h logHooks) OnCompositeComplete(_ context.Context, width, height int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("composite failed", "duration", d, "error", err)
		return
	}
	h.logger.Debug("composite complete", "width", width, "height", height, "duration", d)
}

func (h logHooks) OnExportComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	h.logger.Debug("export complete", "format", format, "bytes", size, "duration", d, "error", err)
}

func (h logHooks) OnCacheHit(_ context.Context, kind string) {
	h.logger.Debug("cache hit", "kind", kind)
}

func (h logHooks) OnCacheMiss(_ context.Context, kind string) {
	h.logger.Debug("cache miss", "kind", kind)
}

func (h logHooks) OnCacheSet(_ context.Context, kind string, size int) {
	h.logger.Debug("cache set", "kind", kind, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("fetch", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("fetched", "host", host, "path", path, "status", status, "duration", d)
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("fetch failed", "host", host, "path", path, "error", err)
}
