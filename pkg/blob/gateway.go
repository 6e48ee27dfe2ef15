package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/localcache"
)

// Gateway issues signed URLs for stored media. Transcoding and signing live
// with the storage collaborator; this package only fronts it with a cache.
type Gateway interface {
	SignedURL(ctx context.Context, bucket, path string) (string, error)
	ThumbnailURL(ctx context.Context, bucket, path string) (string, error)
}

type cachedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CachedGateway remembers issued URLs in the local cache, keyed bucket/path,
// so repeated renders skip the gateway round trip. A gateway failure with a
// cached entry on hand returns the cached URL even past its TTL.
type CachedGateway struct {
	next  Gateway
	cache *localcache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedGateway wraps the gateway with the URL cache.
func NewCachedGateway(next Gateway, cache *localcache.Store, ttl time.Duration) (*CachedGateway, error) {
	if next == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	return &CachedGateway{next: next, cache: cache, ttl: ttl, now: time.Now}, nil
}

// SignedURL returns the full-size object URL.
func (g *CachedGateway) SignedURL(ctx context.Context, bucket, path string) (string, error) {
	return g.resolve(ctx, "blob/"+bucket+"/"+path, func() (string, error) {
		return g.next.SignedURL(ctx, bucket, path)
	})
}

// ThumbnailURL returns the thumbnail rendition URL.
func (g *CachedGateway) ThumbnailURL(ctx context.Context, bucket, path string) (string, error) {
	return g.resolve(ctx, "thumb/"+bucket+"/"+path, func() (string, error) {
		return g.next.ThumbnailURL(ctx, bucket, path)
	})
}

func (g *CachedGateway) resolve(ctx context.Context, key string, issue func() (string, error)) (string, error) {
	entry, found, err := localcache.GetJSON[cachedURL](ctx, g.cache, key)
	if err == nil && found && g.now().Before(entry.ExpiresAt) {
		return entry.URL, nil
	}

	url, issueErr := issue()
	if issueErr != nil {
		if found && entry.URL != "" {
			return entry.URL, nil
		}
		return "", issueErr
	}

	fresh := cachedURL{URL: url, ExpiresAt: g.now().Add(g.ttl)}
	if err := localcache.SetJSON(ctx, g.cache, key, fresh); err != nil {
		// The URL itself is still good.
		return url, nil
	}
	return url, nil
}
