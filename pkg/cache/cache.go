// Package cache provides byte-level caching for fetched image sources,
// thumbnails and encoded composites.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entries under a directory (CLI default, ~/.cache/imgstack)
//   - [RedisCache]: shared cache for server deployments
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that every call site agrees on the
// key format. [ScopedKeyer] prefixes keys for per-session isolation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Default time-to-live per entry kind.
const (
	// TTLSource is how long a downloaded URL source is reused.
	TTLSource = 24 * time.Hour

	// TTLThumbnail is how long an encoded thumbnail is reused.
	TTLThumbnail = time.Hour

	// TTLComposite is how long an encoded composite preview is reused.
	TTLComposite = 10 * time.Minute
)

// Cache stores opaque byte values with an optional TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// SourceKey is the key for the raw bytes behind a URL source.
	SourceKey(url string) string

	// ThumbnailKey is the key for an encoded thumbnail of one asset.
	ThumbnailKey(assetID string, width, height int) string

	// CompositeKey is the key for an encoded composite of an ordered set of
	// assets under a scaling policy.
	CompositeKey(assetIDs []string, opts CompositeKeyOpts) string
}

// CompositeKeyOpts holds the settings that change composite output bytes.
type CompositeKeyOpts struct {
	Policy  string `json:"policy"`
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SourceKey returns "source:<sha256(url)>".
func (DefaultKeyer) SourceKey(url string) string {
	return hashKey("source", url)
}

// ThumbnailKey returns "thumb:<sha256(id,w,h)>".
func (DefaultKeyer) ThumbnailKey(assetID string, width, height int) string {
	return hashKey("thumb", assetID, width, height)
}

// CompositeKey returns "composite:<sha256(ids,opts)>". Order matters.
func (DefaultKeyer) CompositeKey(assetIDs []string, opts CompositeKeyOpts) string {
	return hashKey("composite", assetIDs, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:sha256(json(parts)).
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash computes a SHA-256 hash of the input data as 64 hex characters.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
