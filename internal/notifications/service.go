package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

const (
	collectionName   = "admin_notifications"
	defaultReadLimit = 100
)

// RemoteStore is the slice of the remote adapter the notification accessor
// needs.
type RemoteStore interface {
	FetchRecent(ctx context.Context, limit int) ([]models.Notification, error)
	Insert(ctx context.Context, notification *models.Notification) error
	MarkRead(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service is the admin notification accessor. Writes degrade to the local
// fallback copy during outages so the feed keeps moving; the poller converges
// it once the remote store returns.
type Service interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UnreadCount(ctx context.Context) (int, error)
	Refresh(ctx context.Context) error
}

type service struct {
	remote    RemoteStore
	cache     *localcache.Store
	bus       *events.Bus
	guard     *fallback.Guard
	readLimit int
	logg      *logger.Logger
}

// Params groups the notification service dependencies.
type Params struct {
	Remote    RemoteStore
	Cache     *localcache.Store
	Bus       *events.Bus
	Guard     *fallback.Guard
	ReadLimit int
	Logger    *logger.Logger
}

// NewService builds the notification accessor.
func NewService(params Params) (Service, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service requires a remote store")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service requires a local cache")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service requires an event bus")
	}
	if params.ReadLimit <= 0 {
		params.ReadLimit = defaultReadLimit
	}
	return &service{
		remote:    params.Remote,
		cache:     params.Cache,
		bus:       params.Bus,
		guard:     params.Guard,
		readLimit: params.ReadLimit,
		logg:      params.Logger,
	}, nil
}

// Create files a notification and announces newNotification. A remote outage
// parks it in the local fallback copy instead of failing the caller.
func (s *service) Create(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification is required")
	}
	if !notification.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid notification category %q", notification.Category))
	}
	if notification.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification requires a title")
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}

	if err := s.remote.Insert(ctx, notification); err != nil {
		s.guard.Recovered(ctx, collectionName, "create", err)
		if err := s.mutateCache(ctx, func(rows []models.Notification) []models.Notification {
			return append([]models.Notification{*notification}, rows...)
		}); err != nil {
			return err
		}
	} else {
		s.refreshMirror(ctx, "create")
	}

	s.bus.Publish(ctx, events.Event{Kind: events.KindNewNotification, Payload: notification.ID})
	return nil
}

// List returns the newest notifications, remote-first with silent cache
// recovery.
func (s *service) List(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.remote.FetchRecent(ctx, s.readLimit)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "list", err)
		return s.cached(ctx)
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyAdminNotifications, rows); err != nil {
		s.warn(ctx, "caching notification snapshot failed", err)
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return rows, nil
}

// MarkRead flips one notification to read and announces notificationUpdated.
func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	found, err := s.remote.MarkRead(ctx, id)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "mark_read", err)
		if err := s.mutateCache(ctx, func(rows []models.Notification) []models.Notification {
			for i := range rows {
				if rows[i].ID == id {
					rows[i].Read = true
				}
			}
			return rows
		}); err != nil {
			return err
		}
	} else if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	} else {
		s.refreshMirror(ctx, "mark_read")
	}

	s.bus.Publish(ctx, events.Event{Kind: events.KindNotificationUpdated, Payload: id})
	return nil
}

// MarkAllRead flips every unread notification and reports how many changed.
func (s *service) MarkAllRead(ctx context.Context) (int64, error) {
	count, err := s.remote.MarkAllRead(ctx)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, "mark_all_read", err)
		count = 0
		if err := s.mutateCache(ctx, func(rows []models.Notification) []models.Notification {
			for i := range rows {
				if !rows[i].Read {
					rows[i].Read = true
					count++
				}
			}
			return rows
		}); err != nil {
			return 0, err
		}
	} else {
		s.refreshMirror(ctx, "mark_all_read")
	}

	s.bus.Publish(ctx, events.Event{Kind: events.KindNotificationUpdated})
	return count, nil
}

// Delete removes a notification and announces notificationUpdated.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.remote.Delete(ctx, id); err != nil {
		s.guard.Recovered(ctx, collectionName, "delete", err)
		if err := s.mutateCache(ctx, func(rows []models.Notification) []models.Notification {
			kept := rows[:0]
			for _, row := range rows {
				if row.ID != id {
					kept = append(kept, row)
				}
			}
			return kept
		}); err != nil {
			return err
		}
	} else {
		s.refreshMirror(ctx, "delete")
	}

	s.bus.Publish(ctx, events.Event{Kind: events.KindNotificationUpdated, Payload: id})
	return nil
}

// UnreadCount counts unread notifications in the current snapshot, for the
// admin badge.
func (s *service) UnreadCount(ctx context.Context) (int, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, row := range rows {
		if !row.Read {
			unread++
		}
	}
	return unread, nil
}

// Refresh re-reads the remote feed and announces newNotification when rows
// appear that the previous snapshot lacked. The poller and the realtime
// consumer both converge through here.
func (s *service) Refresh(ctx context.Context) error {
	previous, baselined, err := localcache.GetJSON[[]models.Notification](ctx, s.cache, localcache.KeyAdminNotifications)
	if err != nil {
		return err
	}

	rows, err := s.remote.FetchRecent(ctx, s.readLimit)
	if err != nil {
		return err
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyAdminNotifications, rows); err != nil {
		return err
	}

	// The very first refresh only establishes the baseline. Rows that
	// predate this process are not news.
	if baselined && hasNewRows(previous, rows) {
		s.bus.Publish(ctx, events.Event{Kind: events.KindNewNotification})
	}
	return nil
}

func hasNewRows(previous, current []models.Notification) bool {
	seen := make(map[uuid.UUID]struct{}, len(previous))
	for _, row := range previous {
		seen[row.ID] = struct{}{}
	}
	for _, row := range current {
		if _, ok := seen[row.ID]; !ok {
			return true
		}
	}
	return false
}

// refreshMirror re-reads the feed into the cache after a successful remote
// write.
func (s *service) refreshMirror(ctx context.Context, op string) {
	rows, err := s.remote.FetchRecent(ctx, s.readLimit)
	if err != nil {
		s.guard.Recovered(ctx, collectionName, op, err)
		return
	}
	if err := localcache.SetJSON(ctx, s.cache, localcache.KeyAdminNotifications, rows); err != nil {
		s.warn(ctx, "caching notification snapshot failed", err)
	}
}

func (s *service) mutateCache(ctx context.Context, fn func([]models.Notification) []models.Notification) error {
	rows, _, err := localcache.GetJSON[[]models.Notification](ctx, s.cache, localcache.KeyAdminNotifications)
	if err != nil {
		return err
	}
	return localcache.SetJSON(ctx, s.cache, localcache.KeyAdminNotifications, fn(rows))
}

func (s *service) cached(ctx context.Context) ([]models.Notification, error) {
	rows, found, err := localcache.GetJSON[[]models.Notification](ctx, s.cache, localcache.KeyAdminNotifications)
	if err != nil {
		return nil, err
	}
	if !found || rows == nil {
		return []models.Notification{}, nil
	}
	return rows, nil
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}
