package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	DB            DBConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Session       SessionConfig
	Notifications NotificationsConfig
	PubSub        PubSubConfig
	Blob          BlobConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Notifications.PollInterval <= 0 {
		return nil, fmt.Errorf("notification poll interval must be positive")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SYNC_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"SYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	Addr string `envconfig:"SYNC_HTTP_ADDR" default:":8090"`
}

type DBConfig struct {
	DSN         string `envconfig:"SYNC_DB_DSN" required:"true"`
	AutoMigrate bool   `envconfig:"SYNC_DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"SYNC_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SYNC_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// CacheConfig locates the on-device bbolt mirror.
type CacheConfig struct {
	Path string `envconfig:"SYNC_CACHE_PATH" default:"data/storefront-cache.db"`
}

// RedisConfig drives the cross-process event bridge. Leaving URL empty
// disables the bridge; the in-process bus still works.
type RedisConfig struct {
	URL          string        `envconfig:"SYNC_REDIS_URL"`
	Channel      string        `envconfig:"SYNC_REDIS_CHANNEL" default:"storefront:events"`
	DialTimeout  time.Duration `envconfig:"SYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

// SessionConfig verifies the session token consulted by the identity resolver.
type SessionConfig struct {
	JWTSecret string `envconfig:"SYNC_SESSION_JWT_SECRET"`
	Issuer    string `envconfig:"SYNC_SESSION_ISSUER"`
}

type NotificationsConfig struct {
	PollInterval time.Duration `envconfig:"SYNC_NOTIFICATION_POLL_INTERVAL" default:"5s"`
	ReadLimit    int           `envconfig:"SYNC_NOTIFICATION_READ_LIMIT" default:"100"`
}

// PubSubConfig enables the optional real-time notification channel. The
// poller remains the backstop when this is unset.
type PubSubConfig struct {
	ProjectID    string `envconfig:"SYNC_PUBSUB_PROJECT_ID"`
	Subscription string `envconfig:"SYNC_PUBSUB_SUBSCRIPTION"`
}

func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != "" && strings.TrimSpace(p.Subscription) != ""
}

// BlobConfig locates the media bucket and tunes the signed-URL cache in
// front of the blob gateway. Leaving Bucket empty disables the gateway.
type BlobConfig struct {
	Bucket          string        `envconfig:"SYNC_BLOB_BUCKET"`
	CredentialsJSON string        `envconfig:"SYNC_BLOB_CREDENTIALS_JSON"`
	CredentialsFile string        `envconfig:"SYNC_BLOB_CREDENTIALS_FILE"`
	SignedURLTTL    time.Duration `envconfig:"SYNC_BLOB_SIGNED_URL_TTL" default:"45m"`
}

func (b BlobConfig) Enabled() bool {
	return strings.TrimSpace(b.Bucket) != ""
}
