package config

const (
	EnvPrefix = "RENTQUOTE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv   = "RENTQUOTE_APP_ENV"
	EnvPort     = "RENTQUOTE_APP_PORT"
	EnvLocale   = "RENTQUOTE_LOCALE"
	EnvCurrency = "RENTQUOTE_CURRENCY"

	EnvDBDSN     = "RENTQUOTE_DB_DSN"
	EnvDBDriver  = "RENTQUOTE_DB_DRIVER"
	EnvDBHost    = "RENTQUOTE_DB_HOST"
	EnvDBUser    = "RENTQUOTE_DB_USER"
	EnvDBName    = "RENTQUOTE_DB_NAME"
	EnvUseSQLite = "RENTQUOTE_USE_SQLITE"

	EnvRedisURL = "RENTQUOTE_REDIS_URL"

	EnvJWTSecret              = "RENTQUOTE_JWT_SECRET"
	EnvJWTIssuer              = "RENTQUOTE_JWT_ISSUER"
	EnvJWTExpMins             = "RENTQUOTE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "RENTQUOTE_REFRESH_TOKEN_TTL_MINUTES"

	EnvCronSchedule      = "RENTQUOTE_CRON_SCHEDULE"
	EnvQuoteAuditRepair  = "RENTQUOTE_QUOTE_AUDIT_REPAIR"
	EnvQuoteNumberPrefix = "RENTQUOTE_QUOTE_NUMBER_PREFIX"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
