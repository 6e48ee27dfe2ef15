package fallback

import (
	"context"

	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

// Guard centralizes the recovery policy every accessor follows: try the
// remote store, and on any failure continue against the local cache without
// surfacing the error to the caller. Each recovery is logged and counted so
// degraded operation stays visible to operators even though callers never
// see it.
type Guard struct {
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
}

// NewGuard builds a fallback guard. Logger may be nil in tests.
func NewGuard(logg *logger.Logger, syncMetrics *metrics.SyncMetrics) *Guard {
	return &Guard{logg: logg, metrics: syncMetrics}
}

// Recovered records that op on collection failed remotely and was served
// from the local cache instead.
func (g *Guard) Recovered(ctx context.Context, collection, op string, err error) {
	if g == nil {
		return
	}
	g.metrics.IncFallback(collection, op)
	if g.logg == nil {
		return
	}
	logCtx := g.logg.WithCollection(ctx, collection)
	logCtx = g.logg.WithField(logCtx, "op", op)
	if err != nil {
		logCtx = g.logg.WithField(logCtx, "cause", err.Error())
	}
	g.logg.Warn(logCtx, "remote unavailable, serving local cache")
}

// SkippedAnonymous records that an actor-scoped op skipped the remote store
// because no actor resolved.
func (g *Guard) SkippedAnonymous(ctx context.Context, collection, op string) {
	if g == nil {
		return
	}
	g.metrics.IncFallback(collection, op)
	if g.logg == nil {
		return
	}
	logCtx := g.logg.WithCollection(ctx, collection)
	logCtx = g.logg.WithActor(logCtx, "")
	logCtx = g.logg.WithField(logCtx, "op", op)
	g.logg.Debug(logCtx, "anonymous actor, using local cache only")
}
