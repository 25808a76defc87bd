package config

const (
	EnvPrefix = "PREMIUMCITY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "PREMIUMCITY_APP_ENV"
	EnvPort      = "PREMIUMCITY_APP_PORT"
	EnvLogLevel  = "PREMIUMCITY_LOG_LEVEL"
	EnvLogFormat = "PREMIUMCITY_LOG_FORMAT"

	EnvDBDSN      = "PREMIUMCITY_DB_DSN"
	EnvDBDriver   = "PREMIUMCITY_DB_DRIVER"
	EnvDBHost     = "PREMIUMCITY_DB_HOST"
	EnvDBUser     = "PREMIUMCITY_DB_USER"
	EnvDBName     = "PREMIUMCITY_DB_NAME"
	EnvDBPassword = "PREMIUMCITY_DB_PASSWORD"

	EnvDBTxMaxAttempts = "PREMIUMCITY_DB_TX_MAX_ATTEMPTS"
	EnvDBTxRetryBase   = "PREMIUMCITY_DB_TX_RETRY_BASE"
	EnvDBSlowQuery     = "PREMIUMCITY_DB_SLOW_QUERY"

	EnvRedisURL = "PREMIUMCITY_REDIS_URL"

	EnvJWTSecret              = "PREMIUMCITY_JWT_SECRET"
	EnvJWTIssuer              = "PREMIUMCITY_JWT_ISSUER"
	EnvJWTExpMins             = "PREMIUMCITY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PREMIUMCITY_REFRESH_TOKEN_TTL_MINUTES"

	EnvSendgridAPIKey = "PREMIUMCITY_SENDGRID_API_KEY"
	EnvAdminEmail     = "PREMIUMCITY_ADMIN_ALERT_EMAIL"
	EnvPublicBaseURL  = "PREMIUMCITY_PUBLIC_BASE_URL"

	EnvTopupMinAmount      = "PREMIUMCITY_TOPUP_MIN_AMOUNT"
	EnvTopupMaxAmount      = "PREMIUMCITY_TOPUP_MAX_AMOUNT"
	EnvMaxPurchaseQuantity = "PREMIUMCITY_MAX_PURCHASE_QUANTITY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
