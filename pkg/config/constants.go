package config

// EnvPrefix is intentionally empty: every variable carries the DISPATCH_ prefix
// explicitly in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, docs).
const (
	EnvAppEnv           = "DISPATCH_APP_ENV"
	EnvPort             = "DISPATCH_APP_PORT"
	EnvDBDSN            = "DISPATCH_DB_DSN"
	EnvRedisURL         = "DISPATCH_REDIS_URL"
	EnvJWTSecret        = "DISPATCH_JWT_SECRET"
	EnvJWTIssuer        = "DISPATCH_JWT_ISSUER"
	EnvPayOSClientID    = "DISPATCH_PAYOS_CLIENT_ID"
	EnvPayOSAPIKey      = "DISPATCH_PAYOS_API_KEY"
	EnvPayOSChecksumKey = "DISPATCH_PAYOS_CHECKSUM_KEY"
)
