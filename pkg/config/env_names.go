package config

const EnvPrefix = "SYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names shared with tests and deploy tooling.
const (
	EnvAppEnv       = "SYNC_APP_ENV"
	EnvLogLevel     = "SYNC_LOG_LEVEL"
	EnvHTTPAddr     = "SYNC_HTTP_ADDR"
	EnvDBDSN        = "SYNC_DB_DSN"
	EnvCachePath    = "SYNC_CACHE_PATH"
	EnvRedisURL     = "SYNC_REDIS_URL"
	EnvRedisChannel = "SYNC_REDIS_CHANNEL"
	EnvJWTSecret    = "SYNC_SESSION_JWT_SECRET"
	EnvIssuer       = "SYNC_SESSION_ISSUER"
	EnvPollInterval = "SYNC_NOTIFICATION_POLL_INTERVAL"
	EnvReadLimit    = "SYNC_NOTIFICATION_READ_LIMIT"
	EnvPubSubProj   = "SYNC_PUBSUB_PROJECT_ID"
	EnvPubSubSub    = "SYNC_PUBSUB_SUBSCRIPTION"
	EnvSignedURLTTL = "SYNC_BLOB_SIGNED_URL_TTL"
	EnvBlobBucket   = "SYNC_BLOB_BUCKET"
)
