package products

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
	"github.com/angelmondragon/storefront-sync/pkg/pagination"
)

type fakeRemote struct {
	rows    []models.Product
	failing bool
}

func (f *fakeRemote) FetchAll(context.Context) ([]models.Product, error) {
	if f.failing {
		return nil, errors.New("remote store unavailable")
	}
	return append([]models.Product(nil), f.rows...), nil
}

func (f *fakeRemote) FetchPage(_ context.Context, params pagination.Params) ([]models.Product, string, error) {
	if f.failing {
		return nil, "", errors.New("remote store unavailable")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid page cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows := append([]models.Product(nil), f.rows...)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (f *fakeRemote) FetchOne(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if f.failing {
		return nil, errors.New("remote store unavailable")
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			row := f.rows[i]
			return &row, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (f *fakeRemote) Insert(_ context.Context, product *models.Product) error {
	if f.failing {
		return errors.New("remote store unavailable")
	}
	f.rows = append(f.rows, *product)
	return nil
}

func (f *fakeRemote) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]any) error {
	if f.failing {
		return errors.New("remote store unavailable")
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			if title, ok := fields["title"].(string); ok {
				f.rows[i].Title = title
			}
			if price, ok := fields["price_cents"].(int); ok {
				f.rows[i].PriceCents = price
			}
			return nil
		}
	}
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, id uuid.UUID) error {
	if f.failing {
		return errors.New("remote store unavailable")
	}
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

func newTestService(t *testing.T, remote RemoteStore) (Service, *localcache.Store, *events.Bus) {
	t.Helper()
	cache, err := localcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	bus := events.NewBus(nil)
	svc, err := NewService(Params{
		Remote: remote,
		Cache:  cache,
		Bus:    bus,
		Guard:  fallback.NewGuard(nil, metrics.NewSyncMetrics(nil)),
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc, cache, bus
}

func product(title string) models.Product {
	return models.Product{ID: uuid.New(), Title: title, PriceCents: 999, IsActive: true}
}

func TestListMirrorsCatalog(t *testing.T) {
	remote := &fakeRemote{rows: []models.Product{product("boards"), product("bindings")}}
	svc, cache, _ := newTestService(t, remote)
	ctx := context.Background()

	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 products, got %d", len(rows))
	}

	mirror, found, err := localcache.GetJSON[[]models.Product](ctx, cache, localcache.KeyProducts)
	if err != nil || !found {
		t.Fatalf("expected catalog mirror, found=%v err=%v", found, err)
	}
	if len(mirror) != 2 {
		t.Fatalf("mirror diverged: %d rows", len(mirror))
	}
}

func TestListServesMirrorWhenRemoteDown(t *testing.T) {
	remote := &fakeRemote{rows: []models.Product{product("boards")}}
	svc, _, _ := newTestService(t, remote)
	ctx := context.Background()

	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("warm-up list: %v", err)
	}
	remote.failing = true

	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("expected silent recovery, got error: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "boards" {
		t.Fatalf("expected mirrored catalog, got %+v", rows)
	}
}

func TestListPagePaginatesAndFallsBack(t *testing.T) {
	remote := &fakeRemote{rows: []models.Product{product("one"), product("two"), product("three")}}
	svc, _, _ := newTestService(t, remote)
	ctx := context.Background()

	rows, next, err := svc.ListPage(ctx, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(rows) != 2 || next == "" {
		t.Fatalf("expected 2 rows and a next cursor, got %d rows next=%q", len(rows), next)
	}

	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("warm-up list: %v", err)
	}
	remote.failing = true

	rows, next, err = svc.ListPage(ctx, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("expected silent recovery, got error: %v", err)
	}
	if len(rows) != 2 || next != "" {
		t.Fatalf("expected 2 cached rows with no cursor, got %d rows next=%q", len(rows), next)
	}
}

func TestListPageRejectsBadCursor(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeRemote{rows: []models.Product{product("one")}})
	_, _, err := svc.ListPage(context.Background(), pagination.Params{Cursor: "%%%"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetFallsBackToMirror(t *testing.T) {
	target := product("boards")
	remote := &fakeRemote{rows: []models.Product{target}}
	svc, _, _ := newTestService(t, remote)
	ctx := context.Background()

	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("warm-up list: %v", err)
	}
	remote.failing = true

	row, err := svc.Get(ctx, target.ID)
	if err != nil {
		t.Fatalf("expected mirror hit, got error: %v", err)
	}
	if row.Title != "boards" {
		t.Fatalf("expected mirrored product, got %+v", row)
	}
}

func TestGetMissingEverywhere(t *testing.T) {
	remote := &fakeRemote{failing: true}
	svc, _, _ := newTestService(t, remote)

	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestGetRemoteNotFoundIsNotRecovered(t *testing.T) {
	remote := &fakeRemote{}
	svc, _, _ := newTestService(t, remote)

	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCreateAnnouncesAndMirrors(t *testing.T) {
	remote := &fakeRemote{}
	svc, cache, bus := newTestService(t, remote)
	ctx := context.Background()

	announced := 0
	if _, err := bus.Subscribe(events.KindProductsUpdated, func(context.Context, events.Event) {
		announced++
	}); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	row := product("boards")
	if err := svc.Create(ctx, &row); err != nil {
		t.Fatalf("create: %v", err)
	}
	if announced != 1 {
		t.Fatalf("expected one productsUpdated, got %d", announced)
	}

	mirror, _, err := localcache.GetJSON[[]models.Product](ctx, cache, localcache.KeyProducts)
	if err != nil {
		t.Fatalf("reading mirror: %v", err)
	}
	if len(mirror) != 1 || mirror[0].Title != "boards" {
		t.Fatalf("mirror missed the write: %+v", mirror)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeRemote{})
	if err := svc.Create(context.Background(), &models.Product{}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateSurfacesRemoteFailure(t *testing.T) {
	remote := &fakeRemote{failing: true}
	svc, _, _ := newTestService(t, remote)

	err := svc.Update(context.Background(), uuid.New(), map[string]any{"title": "new"})
	if err == nil {
		t.Fatal("expected catalog write against a dead remote to fail")
	}
}
