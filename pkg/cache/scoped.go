package cache

// ScopedKeyer wraps a Keyer with a prefix for per-session isolation.
// The server gives every browser session its own namespace so that a
// thumbnail or composite of one session is never served to another, even
// when a shared redis backend is used.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "session:"+id+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SourceKey generates a prefixed key for URL source bytes.
func (k *ScopedKeyer) SourceKey(url string) string {
	return k.prefix + k.inner.SourceKey(url)
}

// ThumbnailKey generates a prefixed key for a thumbnail.
func (k *ScopedKeyer) ThumbnailKey(assetID string, width, height int) string {
	return k.prefix + k.inner.ThumbnailKey(assetID, width, height)
}

// CompositeKey generates a prefixed key for an encoded composite.
func (k *ScopedKeyer) CompositeKey(assetIDs []string, opts CompositeKeyOpts) string {
	return k.prefix + k.inner.CompositeKey(assetIDs, opts)
}
