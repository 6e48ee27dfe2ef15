package blob

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	calls int
	url   string
	err   error
}

func (s *stubGateway) SignedURL(context.Context, string, string) (string, error) {
	s.calls++
	return s.url, s.err
}

func (s *stubGateway) ThumbnailURL(context.Context, string, string) (string, error) {
	s.calls++
	return s.url, s.err
}

func newTestCache(t *testing.T) *localcache.Store {
	t.Helper()
	store, err := localcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSignedURLCachesWithinTTL(t *testing.T) {
	gateway := &stubGateway{url: "https://cdn/img.png?sig=abc"}
	cached, err := NewCachedGateway(gateway, newTestCache(t), time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := cached.SignedURL(ctx, "media", "img.png")
	require.NoError(t, err)
	second, err := cached.SignedURL(ctx, "media", "img.png")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gateway.calls, "second call must be served from cache")
}

func TestSignedURLRefreshesAfterExpiry(t *testing.T) {
	gateway := &stubGateway{url: "https://cdn/img.png?sig=abc"}
	cached, err := NewCachedGateway(gateway, newTestCache(t), time.Minute)
	require.NoError(t, err)

	now := time.Now()
	cached.now = func() time.Time { return now }

	ctx := context.Background()
	_, err = cached.SignedURL(ctx, "media", "img.png")
	require.NoError(t, err)

	cached.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = cached.SignedURL(ctx, "media", "img.png")
	require.NoError(t, err)

	assert.Equal(t, 2, gateway.calls, "expired entry must be reissued")
}

func TestGatewayFailureFallsBackToStaleEntry(t *testing.T) {
	gateway := &stubGateway{url: "https://cdn/img.png?sig=abc"}
	cached, err := NewCachedGateway(gateway, newTestCache(t), time.Minute)
	require.NoError(t, err)

	now := time.Now()
	cached.now = func() time.Time { return now }

	ctx := context.Background()
	url, err := cached.ThumbnailURL(ctx, "media", "img.png")
	require.NoError(t, err)

	cached.now = func() time.Time { return now.Add(time.Hour) }
	gateway.err = errors.New("gateway unreachable")

	stale, err := cached.ThumbnailURL(ctx, "media", "img.png")
	require.NoError(t, err)
	assert.Equal(t, url, stale)
}

func TestGatewayFailureWithoutCacheSurfaces(t *testing.T) {
	gateway := &stubGateway{err: errors.New("gateway unreachable")}
	cached, err := NewCachedGateway(gateway, newTestCache(t), time.Minute)
	require.NoError(t, err)

	_, err = cached.SignedURL(context.Background(), "media", "missing.png")
	assert.Error(t, err)
}

func TestThumbnailAndFullSizeUseDistinctSlots(t *testing.T) {
	gateway := &stubGateway{url: "https://cdn/u"}
	cached, err := NewCachedGateway(gateway, newTestCache(t), time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.SignedURL(ctx, "media", "img.png")
	require.NoError(t, err)
	_, err = cached.ThumbnailURL(ctx, "media", "img.png")
	require.NoError(t, err)

	assert.Equal(t, 2, gateway.calls)
}
