package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-sync/internal/cart"
	"github.com/angelmondragon/storefront-sync/internal/customers"
	"github.com/angelmondragon/storefront-sync/internal/fallback"
	"github.com/angelmondragon/storefront-sync/internal/identity"
	"github.com/angelmondragon/storefront-sync/internal/notifications"
	"github.com/angelmondragon/storefront-sync/internal/orders"
	"github.com/angelmondragon/storefront-sync/internal/products"
	"github.com/angelmondragon/storefront-sync/internal/remote"
	"github.com/angelmondragon/storefront-sync/internal/wishlist"
	"github.com/angelmondragon/storefront-sync/pkg/blob"
	"github.com/angelmondragon/storefront-sync/pkg/config"
	"github.com/angelmondragon/storefront-sync/pkg/db"
	"github.com/angelmondragon/storefront-sync/pkg/events"
	"github.com/angelmondragon/storefront-sync/pkg/localcache"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
	"github.com/angelmondragon/storefront-sync/pkg/migrate"
	"github.com/angelmondragon/storefront-sync/pkg/pubsub"
	"github.com/angelmondragon/storefront-sync/pkg/redis"
	"github.com/angelmondragon/storefront-sync/pkg/storage/gcs"
)

const shutdownGrace = 10 * time.Second

// syncd keeps the shared mirrors warm and relays change events between
// processes. Actor-scoped collections (cart, wishlist) are exposed as
// read-only HTTP endpoints: the actor is resolved from the request's bearer
// session token, so the embedding application keeps the write paths while
// other processes can still inspect the synced state.
func main() {
	logg := logger.New(logger.Options{ServiceName: "syncd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "syncd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	cache, err := localcache.Open(cfg.Cache.Path)
	if err != nil {
		logg.Error(context.Background(), "failed to open local cache", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logg.Error(context.Background(), "error closing local cache", err)
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)
	bus := events.NewBus(syncMetrics)
	guard := fallback.NewGuard(logg, syncMetrics)
	base := remote.NewBase(dbClient.DB(), syncMetrics)

	notificationsSvc, err := notifications.NewService(notifications.Params{
		Remote:    remote.NewNotifications(base),
		Cache:     cache,
		Bus:       bus,
		Guard:     guard,
		ReadLimit: cfg.Notifications.ReadLimit,
		Logger:    logg,
	})
	requireService(logg, "notifications", err)

	productsSvc, err := products.NewService(products.Params{
		Remote: remote.NewProducts(base),
		Cache:  cache,
		Bus:    bus,
		Guard:  guard,
		Logger: logg,
	})
	requireService(logg, "products", err)

	ordersSvc, err := orders.NewService(orders.Params{
		Remote:   remote.NewOrders(base),
		Cache:    cache,
		Bus:      bus,
		Guard:    guard,
		Notifier: notificationsSvc,
		Logger:   logg,
	})
	requireService(logg, "orders", err)

	resolver := identity.NewResolver(identity.Params{
		Tokens: identity.TokenSourceFunc(sessionTokenFromContext),
		Cache:  cache,
		Secret: cfg.Session.JWTSecret,
		Issuer: cfg.Session.Issuer,
		Logger: logg,
	})

	cartSvc, err := cart.NewService(cart.Params{
		Remote:   remote.NewCarts(base),
		Cache:    cache,
		Bus:      bus,
		Guard:    guard,
		Identity: resolver,
		Logger:   logg,
	})
	requireService(logg, "cart", err)

	wishlistSvc, err := wishlist.NewService(wishlist.Params{
		Remote:   remote.NewWishlist(base),
		Cache:    cache,
		Bus:      bus,
		Guard:    guard,
		Identity: resolver,
		Logger:   logg,
	})
	requireService(logg, "wishlist", err)

	customersSvc, err := customers.NewService(customers.Params{
		Remote: remote.NewCustomers(base),
		Cache:  cache,
		Bus:    bus,
		Guard:  guard,
		Logger: logg,
	})
	requireService(logg, "customers", err)

	poller, err := notifications.NewPoller(notifications.PollerParams{
		Refresher: notificationsSvc,
		Interval:  cfg.Notifications.PollInterval,
		Metrics:   syncMetrics,
		Logger:    logg,
	})
	requireService(logg, "notification poller", err)

	var consumer *notifications.Consumer
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		consumer, err = notifications.NewConsumer(notifications.ConsumerParams{
			Subscriber: pubsubClient.NotificationSubscription(),
			Refresher:  notificationsSvc,
			Logger:     logg,
		})
		requireService(logg, "notification consumer", err)
	}

	var media blob.Gateway
	if cfg.Blob.Enabled() {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.Blob, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap blob storage", err)
			os.Exit(1)
		}
		media, err = blob.NewCachedGateway(gcsClient, cache, cfg.Blob.SignedURLTTL)
		requireService(logg, "blob gateway", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": cfg.HTTP.Addr,
	})

	if redisClient != nil {
		bridge, err := events.NewBridge(bus, redisClient, cfg.Redis.Channel, logg)
		requireService(logg, "event bridge", err)
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "event bridge stopped unexpectedly", err)
			}
		}()
	}

	// Warm the shared mirrors once before serving so a remote outage right
	// after startup still has something to fall back on.
	warmMirror(ctx, logg, "products", func() error { _, err := productsSvc.List(ctx); return err })
	warmMirror(ctx, logg, "orders", func() error { _, err := ordersSvc.List(ctx); return err })
	warmMirror(ctx, logg, "customers", func() error { _, err := customersSvc.List(ctx); return err })
	warmMirror(ctx, logg, "notifications", func() error { return notificationsSvc.Refresh(ctx) })

	go poller.Run(ctx)
	if consumer != nil {
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "notification consumer stopped unexpectedly", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: newRouter(cfg, media, cartSvc, wishlistSvc),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	logg.Info(ctx, "syncd started")

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "http server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := multierr.Append(nil, server.Shutdown(shutdownCtx)); err != nil {
		logg.Error(ctx, "error during shutdown", err)
	}

	logg.Info(ctx, "syncd shutting down gracefully")
}

func warmMirror(ctx context.Context, logg *logger.Logger, collection string, warm func() error) {
	if err := warm(); err != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"collection": collection,
			"cause":      err.Error(),
		})
		logg.Warn(ctx, "mirror warmup failed")
	}
}

type sessionTokenKey struct{}

// withSessionToken copies the request's bearer token into the context so the
// identity resolver can pick it up per request.
func withSessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			req = req.WithContext(context.WithValue(req.Context(), sessionTokenKey{}, strings.TrimSpace(token)))
		}
		next.ServeHTTP(w, req)
	})
}

func sessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenKey{}).(string)
	return token, ok && token != ""
}

func newRouter(cfg *config.Config, media blob.Gateway, cartSvc cart.Service, wishlistSvc wishlist.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withSessionToken)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/v1/cart", func(w http.ResponseWriter, req *http.Request) {
		lines, err := cartSvc.Get(req.Context())
		if err != nil {
			http.Error(w, "cart unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"items": lines})
	})
	r.Get("/v1/wishlist", func(w http.ResponseWriter, req *http.Request) {
		ids, err := wishlistSvc.Get(req.Context())
		if err != nil {
			http.Error(w, "wishlist unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"product_ids": ids})
	})

	if media != nil {
		r.Get("/v1/media/url", func(w http.ResponseWriter, req *http.Request) {
			objectPath := req.URL.Query().Get("path")
			if objectPath == "" {
				http.Error(w, "missing path", http.StatusBadRequest)
				return
			}
			url, err := media.SignedURL(req.Context(), cfg.Blob.Bucket, objectPath)
			if err != nil {
				http.Error(w, "signing failed", http.StatusBadGateway)
				return
			}
			thumb, err := media.ThumbnailURL(req.Context(), cfg.Blob.Bucket, objectPath)
			if err != nil {
				thumb = ""
			}
			writeJSON(w, map[string]string{
				"url":           url,
				"thumbnail_url": thumb,
			})
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
