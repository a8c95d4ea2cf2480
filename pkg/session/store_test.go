package session

import (
	"context"
	"testing"
	"time"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

func TestStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	st := NewStore(time.Minute, nil)

	sess, err := st.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got, err := st.Get(ctx, sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := st.Get(ctx, "missing"); !errs.Is(err, errs.ErrCodeSessionNotFound) {
		t.Errorf("err = %v, want SESSION_NOT_FOUND", err)
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	st := NewStore(time.Minute, nil)
	now := time.Now()
	st.now = func() time.Time { return now }

	live, _ := st.Create(ctx)
	idle, _ := st.Create(ctx)
	now = now.Add(2 * time.Minute)
	live.mu.Lock()
	live.lastAccess = now
	live.mu.Unlock()

	n, err := st.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || st.Len() != 1 {
		t.Errorf("Cleanup removed %d, %d left; want 1 removed, 1 left", n, st.Len())
	}
	if _, err := st.Get(ctx, idle.ID); !errs.Is(err, errs.ErrCodeSessionNotFound) {
		t.Errorf("idle session: err = %v", err)
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	ctx := context.Background()
	st := NewStore(0, nil)

	s1, created, err := st.GetOrCreate(ctx, "")
	if err != nil || !created {
		t.Fatalf("first call: created %v, err %v", created, err)
	}
	s2, created, _ := st.GetOrCreate(ctx, s1.ID)
	if created || s2 != s1 {
		t.Error("existing id should return the same session")
	}
	_, created, _ = st.GetOrCreate(ctx, "stale-cookie")
	if !created {
		t.Error("unknown id should create a session")
	}
}

func TestStoreDeleteAndClose(t *testing.T) {
	ctx := context.Background()
	st := NewStore(0, nil)
	a, _ := st.Create(ctx)
	st.Create(ctx)

	if err := st.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(ctx, a.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
	st.Close()
	if st.Len() != 0 {
		t.Errorf("Len after Close = %d", st.Len())
	}
}
