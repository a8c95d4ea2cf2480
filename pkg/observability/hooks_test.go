package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()

	Pipeline().OnLoadStart(ctx, 3)
	Pipeline().OnLoadComplete(ctx, 3, time.Second, nil)
	Pipeline().OnCompositeStart(ctx, 3, "narrowest")
	Pipeline().OnCompositeComplete(ctx, 200, 140, time.Second, nil)
	Pipeline().OnExportComplete(ctx, "jpeg", 1024, time.Second, nil)
	Cache().OnCacheHit(ctx, "source")
	Cache().OnCacheMiss(ctx, "thumbnail")
	Cache().OnCacheSet(ctx, "composite", 1024)
	HTTP().OnRequest(ctx, "GET", "example.com", "/a.png")
	HTTP().OnResponse(ctx, "GET", "example.com", "/a.png", 200, time.Second)
	HTTP().OnError(ctx, "GET", "example.com", "/a.png", errors.New("reset"))

	if _, ok := Pipeline().(Noop); !ok {
		t.Errorf("Pipeline() = %T, want Noop", Pipeline())
	}
}

// recorder counts the events it cares about and ignores the rest.
type recorder struct {
	Noop
	loads  int
	hits   []string
	status []int
}

func (r *recorder) OnLoadComplete(_ context.Context, images int, _ time.Duration, _ error) {
	r.loads += images
}

func (r *recorder) OnCacheHit(_ context.Context, kind string) {
	r.hits = append(r.hits, kind)
}

func (r *recorder) OnResponse(_ context.Context, _, _, _ string, code int, _ time.Duration) {
	r.status = append(r.status, code)
}

func TestRegisterAndReset(t *testing.T) {
	Reset()
	defer Reset()
	ctx := context.Background()

	rec := &recorder{}
	SetPipelineHooks(rec)
	SetCacheHooks(rec)
	SetHTTPHooks(rec)

	Pipeline().OnLoadComplete(ctx, 4, time.Millisecond, nil)
	Cache().OnCacheHit(ctx, "thumbnail")
	HTTP().OnResponse(ctx, "GET", "example.com", "/b.jpg", 404, time.Millisecond)

	if rec.loads != 4 {
		t.Errorf("loads = %d, want 4", rec.loads)
	}
	if len(rec.hits) != 1 || rec.hits[0] != "thumbnail" {
		t.Errorf("hits = %v", rec.hits)
	}
	if len(rec.status) != 1 || rec.status[0] != 404 {
		t.Errorf("status = %v", rec.status)
	}

	Reset()
	Pipeline().OnLoadComplete(ctx, 1, time.Millisecond, nil)
	if rec.loads != 4 {
		t.Error("events reached the recorder after Reset")
	}
}

func TestSetNilIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	rec := &recorder{}
	SetPipelineHooks(rec)
	SetPipelineHooks(nil)
	SetCacheHooks(nil)
	SetHTTPHooks(nil)

	if Pipeline() != PipelineHooks(rec) {
		t.Error("SetPipelineHooks(nil) replaced the registered hooks")
	}
	if _, ok := Cache().(Noop); !ok {
		t.Error("SetCacheHooks(nil) replaced the default")
	}
}
