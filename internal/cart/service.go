package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

const collectionName = "user_carts"

// RemoteStore is the slice of the remote adapter the cart accessor needs.
type RemoteStore interface {
	FetchByOwner(ctx context.Context, ownerKey string) (models.CartLines, error)
	Upsert(ctx context.Context, ownerKey string, items models.CartLines) error
	Delete(ctx context.Context, ownerKey string) error
}

// ActorResolver yields the key owning the cart, ok=false for anonymous.
type ActorResolver interface {
	ActorID(ctx context.Context) (string, bool)
}

// Service is the cart accessor. Reads are remote-first with silent cache
// recovery; writes go remote then cache, and always emit cartUpdated.
type Service interface {
	Get(ctx context.Context) (models.CartLines, error)
	Add(ctx context.Context, line models.CartLine) (models.CartLines, error)
	Remove(ctx context.Context, index int) (models.CartLines, error)
	UpdateQuantity(ctx context.Context, index, delta int) (models.CartLines, error)
	Reconcile(ctx context.Context) (models.CartLines, error)
	Clear(ctx context.Context) error
	TotalQuantity(ctx context.Context) (int, error)
}

type service struct {
	remote   RemoteStore
	cache    *localcache.Store
	bus      *events.Bus
	guard    *fallback.Guard
	identity ActorResolver
	logg     *logger.Logger
}

// Params groups the cart service dependencies.
type Params struct {
	Remote   RemoteStore
	Cache    *localcache.Store
	Bus      *events.Bus
	Guard    *fallback.Guard
	Identity ActorResolver
	Logger   *logger.Logger
}

// NewService builds the cart accessor.
func NewService(params Params) (Service, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service requires a remote store")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service requires a local cache")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service requires an event bus")
	}
	if params.Identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service requires an identity resolver")
	}
	return &service{
		remote:   params.Remote,
		cache:    params.Cache,
		bus:      params.Bus,
		guard:    params.Guard,
		identity: params.Identity,
		logg:     params.Logger,
	}, nil
}

// Get returns the current cart snapshot. An empty remote snapshot does not
// overwrite a populated local one; a fresh remote row for a known actor says
// nothing about the cart the device accumulated offline.
func (s *service) Get(ctx context.Context) (models.CartLines, error) {
	actorID, known := s.identity.ActorID(ctx)
	if !known {
		s.guard.SkippedAnonymous(ctx, collectionName, "get")
		return s.cached(ctx)
	}

	remoteItems, err := s.remote.FetchByOwner(ctx, actorID)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "get", err)
		return s.cached(ctx)
	}

	if len(remoteItems) == 0 {
		cachedItems, found, cacheErr := localcache.GetJSON[models.CartLines](ctx, s.cache, localcache.KeyCart)
		if cacheErr == nil && found && len(cachedItems) > 0 {
			return cachedItems, nil
		}
	}

	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyCart, remoteItems); err != nil {
		s.warn(ctx, "caching cart snapshot failed", err)
	}
	if remoteItems == nil {
		remoteItems = models.CartLines{}
	}
	return remoteItems, nil
}

// Add folds line into the cart, merging with an existing (ItemID, Variant)
// entry when present.
func (s *service) Add(ctx context.Context, line models.CartLine) (models.CartLines, error) {
	if line.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line requires an item id")
	}
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	merged := MergeLine(current, line)
	if err := s.persist(ctx, "add", merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Remove drops the line at index.
func (s *service) Remove(ctx context.Context, index int) (models.CartLines, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	next, err := RemoveLine(current, index)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, "remove", next); err != nil {
		return nil, err
	}
	return next, nil
}

// UpdateQuantity applies delta to the quantity of the line at index,
// floored at one.
func (s *service) UpdateQuantity(ctx context.Context, index, delta int) (models.CartLines, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	next, err := BumpQuantity(current, index, delta)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, "update_quantity", next); err != nil {
		return nil, err
	}
	return next, nil
}

// Reconcile merges the locally accumulated cart into the actor's remote
// snapshot. Called when a session appears for a device that was browsing
// anonymously. Anonymous actors keep their local cart untouched.
func (s *service) Reconcile(ctx context.Context) (models.CartLines, error) {
	actorID, known := s.identity.ActorID(ctx)
	localItems, _, err := localcache.GetJSON[models.CartLines](ctx, s.cache, localcache.KeyCart)
	if err != nil {
		return nil, err
	}
	if !known {
		s.guard.SkippedAnonymous(ctx, collectionName, "reconcile")
		if localItems == nil {
			localItems = models.CartLines{}
		}
		return localItems, nil
	}

	remoteItems, err := s.remote.FetchByOwner(ctx, actorID)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "reconcile", err)
		remoteItems = nil
	}
	merged := MergeCarts(remoteItems, localItems)
	if err := s.persist(ctx, "reconcile", merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Clear empties the cart.
func (s *service) Clear(ctx context.Context) error {
	actorID, known := s.identity.ActorID(ctx)
	if known {
		if err := s.remote.Delete(ctx, actorID); err != nil {
			s.guard.Recovered(ctx, collectionName, "clear", err)
		}
	} else {
		s.guard.SkippedAnonymous(ctx, collectionName, "clear")
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyCart, models.CartLines{}); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindCartUpdated, Payload: models.CartLines{}})
	return nil
}

// TotalQuantity sums quantities across the cart, for badge counters.
func (s *service) TotalQuantity(ctx context.Context) (int, error) {
	items, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return items.TotalQuantity(), nil
}

// persist writes the snapshot remote-first, recovers silently on remote
// failure, then commits the cache and announces the change. The cache write
// is the one step that can fail the operation; losing it would leave readers
// on a stale snapshot.
func (s *service) persist(ctx context.Context, op string, items models.CartLines) error {
	actorID, known := s.identity.ActorID(ctx)
	if known {
		if err := s.remote.Upsert(ctx, actorID, items); err != nil {
			s.guard.Recovered(ctx, collectionName, op, err)
		}
	} else {
		s.guard.SkippedAnonymous(ctx, collectionName, op)
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyCart, items); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindCartUpdated, Payload: items})
	return nil
}

func (s *service) cached(ctx context.Context) (models.CartLines, error) {
	items, found, err := localcache.GetJSON[models.CartLines](ctx, s.cache, localcache.KeyCart)
	if err != nil {
		return nil, err
	}
	if !found || items == nil {
		return models.CartLines{}, nil
	}
	return items, nil
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}
