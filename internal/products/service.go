package products

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/pagination"
)

const collectionName = "products"

// RemoteStore is the slice of the remote adapter the catalog accessor needs.
type RemoteStore interface {
	FetchAll(ctx context.Context) ([]models.Product, error)
	FetchPage(ctx context.Context, params pagination.Params) ([]models.Product, string, error)
	FetchOne(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service is the product catalog accessor. The catalog is shared state, so
// every successful remote read refreshes the local mirror and every write
// announces productsUpdated.
type Service interface {
	List(ctx context.Context) ([]models.Product, error)
	ListPage(ctx context.Context, params pagination.Params) ([]models.Product, string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	Refresh(ctx context.Context) ([]models.Product, error)
}

type service struct {
	remote RemoteStore
	cache  *localcache.Store
	bus    *events.Bus
	guard  *fallback.Guard
	logg   *logger.Logger
}

// Params groups the catalog service dependencies.
type Params struct {
	Remote RemoteStore
	Cache  *localcache.Store
	Bus    *events.Bus
	Guard  *fallback.Guard
	Logger *logger.Logger
}

// NewService builds the catalog accessor.
func NewService(params Params) (Service, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products service requires a remote store")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products service requires a local cache")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products service requires an event bus")
	}
	return &service{
		remote: params.Remote,
		cache:  params.Cache,
		bus:    params.Bus,
		guard:  params.Guard,
		logg:   params.Logger,
	}, nil
}

// List returns the catalog, remote-first with silent cache recovery.
func (s *service) List(ctx context.Context) ([]models.Product, error) {
	rows, err := s.remote.FetchAll(ctx)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "list", err)
		return s.cached(ctx)
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyProducts, rows); err != nil {
		s.warn(ctx, "caching catalog snapshot failed", err)
	}
	if rows == nil {
		rows = []models.Product{}
	}
	return rows, nil
}

// ListPage returns one catalog page, cursor-ordered newest first. During an
// outage the cached full mirror serves as a single unpaged page; cursors do
// not survive the fallback.
func (s *service) ListPage(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	rows, next, err := s.remote.FetchPage(ctx, params)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			return nil, "", err
		}
		s.guard.Recovered(ctx, collectionName, "list_page", err)
		cachedRows, cacheErr := s.cached(ctx)
		if cacheErr != nil {
			return nil, "", cacheErr
		}
		if limit := pagination.NormalizeLimit(params.Limit); len(cachedRows) > limit {
			cachedRows = cachedRows[:limit]
		}
		return cachedRows, "", nil
	}
	if rows == nil {
		rows = []models.Product{}
	}
	return rows, next, nil
}

// Get returns one product. On remote failure the cached catalog mirror is
// scanned; a product absent from both sides is CodeNotFound.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, err := s.remote.FetchOne(ctx, id)
	if err == nil {
		return row, nil
	}
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}
	s.guard.Recovered(ctx, collectionName, "get", err)

	cachedRows, cacheErr := s.cached(ctx)
	if cacheErr != nil {
		return nil, cacheErr
	}
	for i := range cachedRows {
		if cachedRows[i].ID == id {
			return &cachedRows[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

// Create inserts a catalog row and refreshes the mirror.
func (s *service) Create(ctx context.Context, product *models.Product) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	if product.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product requires a title")
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := s.remote.Insert(ctx, product); err != nil {
		return err
	}
	return s.refreshAndAnnounce(ctx)
}

// Update applies a partial update to a catalog row and refreshes the mirror.
func (s *service) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product update requires fields")
	}
	if err := s.remote.UpdateFields(ctx, id, fields); err != nil {
		return err
	}
	return s.refreshAndAnnounce(ctx)
}

// Delete removes a catalog row and refreshes the mirror.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.remote.Delete(ctx, id); err != nil {
		return err
	}
	return s.refreshAndAnnounce(ctx)
}

// Refresh re-reads the catalog and announces the change. Observers of
// productsUpdated emitted elsewhere in the fleet call this to converge.
func (s *service) Refresh(ctx context.Context) ([]models.Product, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindProductsUpdated})
	return rows, nil
}

// refreshAndAnnounce re-mirrors the catalog after a write. Catalog writes go
// through the shared remote store, so the mirror is rebuilt from a full read
// rather than patched in place.
func (s *service) refreshAndAnnounce(ctx context.Context) error {
	rows, err := s.remote.FetchAll(ctx)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "refresh", err)
	} else if err := localcache.SetJSON(ctx, s.cache, localcache.KeyProducts, rows); err != nil {
		s.warn(ctx, "caching catalog snapshot failed", err)
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindProductsUpdated})
	return nil
}

func (s *service) cached(ctx context.Context) ([]models.Product, error) {
	rows, found, err := localcache.GetJSON[[]models.Product](ctx, s.cache, localcache.KeyProducts)
	if err != nil {
		return nil, err
	}
	if !found || rows == nil {
		return []models.Product{}, nil
	}
	return rows, nil
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}
