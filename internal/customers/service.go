package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

const collectionName = "customers"

// RemoteStore is the slice of the remote adapter the customer accessor needs.
type RemoteStore interface {
	FetchAll(ctx context.Context) ([]models.Customer, error)
	Upsert(ctx context.Context, customer *models.Customer) error
}

// Service is the customer accessor backing the admin back office. Records are
// keyed by email; placing an order for a known email refreshes the record
// instead of duplicating it.
type Service interface {
	List(ctx context.Context) ([]models.Customer, error)
	Upsert(ctx context.Context, customer *models.Customer) error
}

type service struct {
	remote RemoteStore
	cache  *localcache.Store
	bus    *events.Bus
	guard  *fallback.Guard
	logg   *logger.Logger
}

// Params groups the customer service dependencies.
type Params struct {
	Remote RemoteStore
	Cache  *localcache.Store
	Bus    *events.Bus
	Guard  *fallback.Guard
	Logger *logger.Logger
}

// NewService builds the customer accessor.
func NewService(params Params) (Service, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customers service requires a remote store")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customers service requires a local cache")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customers service requires an event bus")
	}
	return &service{
		remote: params.Remote,
		cache:  params.Cache,
		bus:    params.Bus,
		guard:  params.Guard,
		logg:   params.Logger,
	}, nil
}

// List returns every customer record, remote-first with silent cache
// recovery.
func (s *service) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.remote.FetchAll(ctx)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "list", err)
		return s.cached(ctx)
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyCustomers, rows); err != nil {
		s.warn(ctx, "caching customer snapshot failed", err)
	}
	if rows == nil {
		rows = []models.Customer{}
	}
	return rows, nil
}

// Upsert creates or refreshes the record for the customer's email and
// announces customersUpdated. Remote-authoritative, like orders.
func (s *service) Upsert(ctx context.Context, customer *models.Customer) error {
	if customer == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
	}
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.Email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer requires an email")
	}
	if customer.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer requires a name")
	}
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	if err := s.remote.Upsert(ctx, customer); err != nil {
		return err
	}

	rows, err := s.remote.FetchAll(ctx)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "upsert", err)
	} else if err := localcache.SetJSON(ctx, s.cache, localcache.KeyCustomers, rows); err != nil {
		s.warn(ctx, "caching customer snapshot failed", err)
	}

	s.bus.Publish(ctx, events.Event{Kind: events.KindCustomersUpdated, Payload: customer.Email})
	return nil
}

func (s *service) cached(ctx context.Context) ([]models.Customer, error) {
	rows, found, err := localcache.GetJSON[[]models.Customer](ctx, s.cache, localcache.KeyCustomers)
	if err != nil {
		return nil, err
	}
	if !found || rows == nil {
		return []models.Customer{}, nil
	}
	return rows, nil
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}
