package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Sendgrid      SendgridConfig
	Notifications NotificationsConfig
	Outbox        OutboxConfig
	Wallet        WalletConfig
	Maintenance   MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Wallet.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PREMIUMCITY_APP_ENV" required:"true"`
	Port         string `envconfig:"PREMIUMCITY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PREMIUMCITY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PREMIUMCITY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PREMIUMCITY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PREMIUMCITY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PREMIUMCITY_DB_DSN"`
	Driver string `envconfig:"PREMIUMCITY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PREMIUMCITY_DB_HOST"`
	LegacyPort     int    `envconfig:"PREMIUMCITY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PREMIUMCITY_DB_USER"`
	LegacyPassword string `envconfig:"PREMIUMCITY_DB_PASSWORD"`
	LegacyName     string `envconfig:"PREMIUMCITY_DB_NAME"`
	LegacySSLMode  string `envconfig:"PREMIUMCITY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PREMIUMCITY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PREMIUMCITY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PREMIUMCITY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PREMIUMCITY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	TxMaxAttempts int           `envconfig:"PREMIUMCITY_DB_TX_MAX_ATTEMPTS" default:"3"`
	TxRetryBase   time.Duration `envconfig:"PREMIUMCITY_DB_TX_RETRY_BASE" default:"25ms"`

	SlowQuery time.Duration `envconfig:"PREMIUMCITY_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the configured driver targets a local sqlite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"PREMIUMCITY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PREMIUMCITY_REDIS_ADDR"`
	Password     string        `envconfig:"PREMIUMCITY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PREMIUMCITY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PREMIUMCITY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PREMIUMCITY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PREMIUMCITY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PREMIUMCITY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PREMIUMCITY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PREMIUMCITY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PREMIUMCITY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PREMIUMCITY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PREMIUMCITY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PREMIUMCITY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PREMIUMCITY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PREMIUMCITY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PREMIUMCITY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PREMIUMCITY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PREMIUMCITY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PREMIUMCITY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PREMIUMCITY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PREMIUMCITY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PREMIUMCITY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PREMIUMCITY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PREMIUMCITY_AUTO_MIGRATE" default:"false"`
	Metrics     bool `envconfig:"PREMIUMCITY_METRICS_ENABLED" default:"true"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"PREMIUMCITY_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"PREMIUMCITY_SENDGRID_FROM_EMAIL" default:"no-reply@premiumcity.local"`
	FromName    string `envconfig:"PREMIUMCITY_SENDGRID_FROM_NAME" default:"PremiumCity"`
}

// Enabled reports whether outbound email should hit the SendGrid API.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type NotificationsConfig struct {
	AdminEmail    string `envconfig:"PREMIUMCITY_ADMIN_ALERT_EMAIL"`
	PublicBaseURL string `envconfig:"PREMIUMCITY_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PREMIUMCITY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PREMIUMCITY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PREMIUMCITY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MaintenanceConfig struct {
	Interval        time.Duration `envconfig:"PREMIUMCITY_MAINTENANCE_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"PREMIUMCITY_OUTBOX_RETENTION" default:"720h"`
	ReconcileBatch  int           `envconfig:"PREMIUMCITY_RECONCILE_BATCH" default:"200"`
}

type WalletConfig struct {
	TopupMinAmount      string `envconfig:"PREMIUMCITY_TOPUP_MIN_AMOUNT" default:"1.00"`
	TopupMaxAmount      string `envconfig:"PREMIUMCITY_TOPUP_MAX_AMOUNT" default:"10000.00"`
	MaxPurchaseQuantity int    `envconfig:"PREMIUMCITY_MAX_PURCHASE_QUANTITY" default:"50"`
}

// TopupBounds returns the inclusive amount range accepted for new top-up requests.
func (w WalletConfig) TopupBounds() (decimal.Decimal, decimal.Decimal) {
	min, err := decimal.NewFromString(strings.TrimSpace(w.TopupMinAmount))
	if err != nil {
		min = decimal.Zero
	}
	max, err := decimal.NewFromString(strings.TrimSpace(w.TopupMaxAmount))
	if err != nil {
		max = decimal.Zero
	}
	return min, max
}

func (w WalletConfig) validate() error {
	min, err := decimal.NewFromString(strings.TrimSpace(w.TopupMinAmount))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvTopupMinAmount, err)
	}
	max, err := decimal.NewFromString(strings.TrimSpace(w.TopupMaxAmount))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvTopupMaxAmount, err)
	}
	if !min.IsPositive() {
		return fmt.Errorf("%s must be positive", EnvTopupMinAmount)
	}
	if max.LessThan(min) {
		return fmt.Errorf("%s must be >= %s", EnvTopupMaxAmount, EnvTopupMinAmount)
	}
	if w.MaxPurchaseQuantity <= 0 {
		return fmt.Errorf("%s must be positive", EnvMaxPurchaseQuantity)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
