package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	"github.com/angelmondragon/storefront-sync/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

const collectionName = "orders"

// transitions is the legal status graph. Cancellation is only possible while
// the order has not shipped.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusCreated:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// RemoteStore is the slice of the remote adapter the order accessor needs.
type RemoteStore interface {
	FetchAll(ctx context.Context) ([]models.Order, error)
	FetchByOwner(ctx context.Context, ownerEmail string) ([]models.Order, error)
	FetchOne(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Insert(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

// Notifier receives order placements for the admin notification feed.
type Notifier interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Service is the order accessor. Orders are remote-authoritative: writes
// that cannot reach the remote store fail instead of queueing locally, and
// the cache only serves reads during outages.
type Service interface {
	Create(ctx context.Context, ownerEmail string, items models.OrderLines) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

type service struct {
	remote   RemoteStore
	cache    *localcache.Store
	bus      *events.Bus
	guard    *fallback.Guard
	notifier Notifier
	logg     *logger.Logger
}

// Params groups the order service dependencies. Notifier is optional.
type Params struct {
	Remote   RemoteStore
	Cache    *localcache.Store
	Bus      *events.Bus
	Guard    *fallback.Guard
	Notifier Notifier
	Logger   *logger.Logger
}

// NewService builds the order accessor.
func NewService(params Params) (Service, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service requires a remote store")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service requires a local cache")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service requires an event bus")
	}
	return &service{
		remote:   params.Remote,
		cache:    params.Cache,
		bus:      params.Bus,
		guard:    params.Guard,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

// Create places an order. A placement that cannot reach the remote store is
// an error; money-adjacent rows never exist only on one device.
func (s *service) Create(ctx context.Context, ownerEmail string, items models.OrderLines) (*models.Order, error) {
	if ownerEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires an owner email")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}

	total := 0
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order line quantity must be at least one")
		}
		total += item.UnitPriceCents * item.Quantity
	}

	order := &models.Order{
		ID:         uuid.New(),
		OwnerEmail: ownerEmail,
		Items:      items,
		TotalCents: total,
		Status:     enums.OrderStatusCreated,
	}
	if err := s.remote.Insert(ctx, order); err != nil {
		return nil, err
	}

	s.refreshMirror(ctx, "create")
	s.announcePlacement(ctx, order)
	return order, nil
}

// List returns every order, remote-first with silent cache recovery.
func (s *service) List(ctx context.Context) ([]models.Order, error) {
	rows, err := s.remote.FetchAll(ctx)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "list", err)
		return s.cached(ctx)
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyOrders, rows); err != nil {
		s.warn(ctx, "caching order snapshot failed", err)
	}
	if rows == nil {
		rows = []models.Order{}
	}
	return rows, nil
}

// ListByOwner returns the owner's orders. Outages fall back to filtering the
// cached full snapshot.
func (s *service) ListByOwner(ctx context.Context, ownerEmail string) ([]models.Order, error) {
	rows, err := s.remote.FetchByOwner(ctx, ownerEmail)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "list_by_owner", err)
		cachedRows, cacheErr := s.cached(ctx)
		if cacheErr != nil {
			return nil, cacheErr
		}
		owned := []models.Order{}
		for _, row := range cachedRows {
			if row.OwnerEmail == ownerEmail {
				owned = append(owned, row)
			}
		}
		return owned, nil
	}
	if rows == nil {
		rows = []models.Order{}
	}
	return rows, nil
}

// Get returns one order. Outages fall back to the cached snapshot.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
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
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

// UpdateStatus moves an order along the transition table and announces
// ordersUpdated. Like Create, it is remote-authoritative.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}
	current, err := s.remote.FetchOne(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == status {
		return nil
	}
	if !CanTransition(current.Status, status) {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order cannot move from %s to %s", current.Status, status))
	}
	if err := s.remote.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.refreshMirror(ctx, "update_status")
	s.bus.Publish(ctx, events.Event{Kind: events.KindOrdersUpdated, Payload: id})
	return nil
}

// announcePlacement emits newOrder plus ordersUpdated and files the admin
// notification. Notification failures are logged, not surfaced; the order is
// already placed.
func (s *service) announcePlacement(ctx context.Context, order *models.Order) {
	s.bus.Publish(ctx, events.Event{Kind: events.KindNewOrder, Payload: order.ID})
	s.bus.Publish(ctx, events.Event{Kind: events.KindOrdersUpdated, Payload: order.ID})

	if s.notifier == nil {
		return
	}
	notification := &models.Notification{
		Category: enums.NotificationCategoryOrder,
		Title:    "New order placed",
		Message:  fmt.Sprintf("Order from %s totaling %d cents", order.OwnerEmail, order.TotalCents),
		Metadata: models.NotificationMetadata{
			"order_id":    order.ID.String(),
			"owner_email": order.OwnerEmail,
			"total_cents": order.TotalCents,
		},
	}
	if err := s.notifier.Create(ctx, notification); err != nil {
		s.warn(ctx, "filing order notification failed", err)
	}
}

// refreshMirror re-reads the full order list into the cache after a write.
func (s *service) refreshMirror(ctx context.Context, op string) {
	rows, err := s.remote.FetchAll(ctx)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, op, err)
		return
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyOrders, rows); err != nil {
		s.warn(ctx, "caching order snapshot failed", err)
	}
}

func (s *service) cached(ctx context.Context) ([]models.Order, error) {
	rows, found, err := localcache.GetJSON[[]models.Order](ctx, s.cache, localcache.KeyOrders)
	if err != nil {
		return nil, err
	}
	if !found || rows == nil {
		return []models.Order{}, nil
	}
	return rows, nil
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}
