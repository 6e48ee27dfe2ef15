package customers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

type fakeRemote struct {
	rows    []models.Customer
	failing bool
}

func (f *fakeRemote) FetchAll(context.Context) ([]models.Customer, error) {
	if f.failing {
		return nil, errors.New("remote store unavailable")
	}
	return append([]models.Customer(nil), f.rows...), nil
}

func (f *fakeRemote) Upsert(_ context.Context, customer *models.Customer) error {
	if f.failing {
		return errors.New("remote store unavailable")
	}
	for i := range f.rows {
		if f.rows[i].Email == customer.Email {
			f.rows[i].Name = customer.Name
			f.rows[i].Phone = customer.Phone
			return nil
		}
	}
	f.rows = append(f.rows, *customer)
	return nil
}

func newTestService(t *testing.T, remote RemoteStore) (Service, *events.Bus) {
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
	return svc, bus
}

func TestUpsertKeyedByEmail(t *testing.T) {
	remote := &fakeRemote{}
	svc, bus := newTestService(t, remote)
	ctx := context.Background()

	updates := 0
	if _, err := bus.Subscribe(events.KindCustomersUpdated, func(context.Context, events.Event) { updates++ }); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	if err := svc.Upsert(ctx, &models.Customer{Name: "Ada", Email: "Ada@Example.com"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := svc.Upsert(ctx, &models.Customer{Name: "Ada Lovelace", Email: "ada@example.com"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if len(remote.rows) != 1 {
		t.Fatalf("expected one customer row, got %d", len(remote.rows))
	}
	if remote.rows[0].Name != "Ada Lovelace" {
		t.Fatalf("expected refreshed name, got %q", remote.rows[0].Name)
	}
	if remote.rows[0].Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", remote.rows[0].Email)
	}
	if updates != 2 {
		t.Fatalf("expected 2 customersUpdated events, got %d", updates)
	}
}

func TestUpsertValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeRemote{})
	ctx := context.Background()

	if err := svc.Upsert(ctx, &models.Customer{Name: "Ada"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing email, got %v", err)
	}
	if err := svc.Upsert(ctx, &models.Customer{Email: "ada@example.com"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}
}

func TestUpsertFailsWhenRemoteDown(t *testing.T) {
	svc, _ := newTestService(t, &fakeRemote{failing: true})
	err := svc.Upsert(context.Background(), &models.Customer{Name: "Ada", Email: "ada@example.com"})
	if err == nil {
		t.Fatal("expected upsert against a dead remote to fail")
	}
}

func TestListServesCacheWhenRemoteDown(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(t, remote)
	ctx := context.Background()

	if err := svc.Upsert(ctx, &models.Customer{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	remote.failing = true

	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("expected silent recovery, got error: %v", err)
	}
	if len(rows) != 1 || rows[0].Email != "ada@example.com" {
		t.Fatalf("expected cached customers, got %+v", rows)
	}
}
