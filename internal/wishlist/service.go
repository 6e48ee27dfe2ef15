package wishlist

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

const collectionName = "wishlist_items"

// RemoteStore is the slice of the remote adapter the wishlist accessor needs.
type RemoteStore interface {
	FetchByOwner(ctx context.Context, ownerKey string) ([]uuid.UUID, error)
	Insert(ctx context.Context, ownerKey string, productID uuid.UUID) error
	Delete(ctx context.Context, ownerKey string, productID uuid.UUID) error
}

// ActorResolver yields the key owning the wishlist, ok=false for anonymous.
type ActorResolver interface {
	ActorID(ctx context.Context) (string, bool)
}

// Service is the wishlist accessor. Actor-scoped like the cart: anonymous
// shoppers keep a cache-only list, known actors sync through the remote
// store with silent recovery.
type Service interface {
	Get(ctx context.Context) ([]uuid.UUID, error)
	Add(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)
	Remove(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)
	Contains(ctx context.Context, productID uuid.UUID) (bool, error)
}

type service struct {
	remote   RemoteStore
	cache    *localcache.Store
	bus      *events.Bus
	guard    *fallback.Guard
	identity ActorResolver
	logg     *logger.Logger
}

// Params groups the wishlist service dependencies.
type Params struct {
	Remote   RemoteStore
	Cache    *localcache.Store
	Bus      *events.Bus
	Guard    *fallback.Guard
	Identity ActorResolver
	Logger   *logger.Logger
}

// NewService builds the wishlist accessor.
func NewService(params Params) (Service, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service requires a remote store")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service requires a local cache")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service requires an event bus")
	}
	if params.Identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service requires an identity resolver")
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

// Get returns the liked product IDs, remote-first with silent cache recovery.
func (s *service) Get(ctx context.Context) ([]uuid.UUID, error) {
	actorID, known := s.identity.ActorID(ctx)
	if !known {
		s.guard.SkippedAnonymous(ctx, collectionName, "get")
		return s.cached(ctx)
	}

	ids, err := s.remote.FetchByOwner(ctx, actorID)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "get", err)
		return s.cached(ctx)
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyWishlist, ids); err != nil {
		s.warn(ctx, "caching wishlist snapshot failed", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// Add likes a product. Re-liking an already-liked product is a no-op.
func (s *service) Add(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist requires a product id")
	}
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	next := current
	if !contains(current, productID) {
		next = append(append([]uuid.UUID(nil), current...), productID)
	}

	actorID, known := s.identity.ActorID(ctx)
	if known {
		if err := s.remote.Insert(ctx, actorID, productID); err != nil {
			s.guard.Recovered(ctx, collectionName, "add", err)
		}
	} else {
		s.guard.SkippedAnonymous(ctx, collectionName, "add")
	}

	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyWishlist, next); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindWishlistUpdated, Payload: next})
	return next, nil
}

// Remove unlikes a product. Removing an absent product is a no-op.
func (s *service) Remove(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	next := []uuid.UUID{}
	for _, id := range current {
		if id != productID {
			next = append(next, id)
		}
	}

	actorID, known := s.identity.ActorID(ctx)
	if known {
		if err := s.remote.Delete(ctx, actorID, productID); err != nil {
			s.guard.Recovered(ctx, collectionName, "remove", err)
		}
	} else {
		s.guard.SkippedAnonymous(ctx, collectionName, "remove")
	}

	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyWishlist, next); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindWishlistUpdated, Payload: next})
	return next, nil
}

// Contains reports whether the product is liked, for heart toggles.
func (s *service) Contains(ctx context.Context, productID uuid.UUID) (bool, error) {
	ids, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return contains(ids, productID), nil
}

func contains(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func (s *service) cached(ctx context.Context) ([]uuid.UUID, error) {
	ids, found, err := localcache.GetJSON[[]uuid.UUID](ctx, s.cache, localcache.KeyWishlist)
	if err != nil {
		return nil, err
	}
	if !found || ids == nil {
		return []uuid.UUID{}, nil
	}
	return ids, nil
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}
