package remote

import (
	"context"

	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
	"gorm.io/gorm"
)

// Base provides the shared foundation for collection adapters. Every remote
// round trip goes through do, which counts the attempt and wraps failures
// with the collection and operation that produced them.
type Base struct {
	db      *gorm.DB
	metrics *metrics.SyncMetrics
}

// NewBase constructs a Base bound to the provided GORM connection.
func NewBase(db *gorm.DB, syncMetrics *metrics.SyncMetrics) Base {
	return Base{db: db, metrics: syncMetrics}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

func (b Base) do(ctx context.Context, collection, op string, fn func(db *gorm.DB) error) error {
	b.metrics.IncRemoteOp(collection, op)
	if err := fn(b.DB(ctx)); err != nil {
		b.metrics.IncRemoteFailure(collection, op)
		return pkgerrors.Store(collection, op, err)
	}
	return nil
}
