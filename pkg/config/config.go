package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
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
	Quotes        QuotesConfig
	Cron          CronConfig
	Sendgrid      SendgridConfig
	Metrics       MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"RENTQUOTE_APP_ENV" required:"true"`
	Port         string   `envconfig:"RENTQUOTE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RENTQUOTE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RENTQUOTE_LOG_WARN_STACK" default:"false"`
	Locale       string   `envconfig:"RENTQUOTE_LOCALE" default:"en-US"`
	Currency     string   `envconfig:"RENTQUOTE_CURRENCY" default:"USD"`
	CORSOrigins  []string `envconfig:"RENTQUOTE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTQUOTE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTQUOTE_DB_DSN"`
	Driver string `envconfig:"RENTQUOTE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTQUOTE_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTQUOTE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTQUOTE_DB_USER"`
	LegacyPassword string `envconfig:"RENTQUOTE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTQUOTE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTQUOTE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"RENTQUOTE_SQLITE_PATH" default:"rentquote.db"`

	MaxOpenConns    int           `envconfig:"RENTQUOTE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTQUOTE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTQUOTE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTQUOTE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"RENTQUOTE_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTQUOTE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTQUOTE_REDIS_ADDR"`
	Password     string        `envconfig:"RENTQUOTE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTQUOTE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTQUOTE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTQUOTE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTQUOTE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTQUOTE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTQUOTE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RENTQUOTE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RENTQUOTE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RENTQUOTE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RENTQUOTE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RENTQUOTE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RENTQUOTE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RENTQUOTE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RENTQUOTE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RENTQUOTE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RENTQUOTE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RENTQUOTE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RENTQUOTE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RENTQUOTE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RENTQUOTE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RENTQUOTE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RENTQUOTE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RENTQUOTE_AUTO_MIGRATE" default:"false"`
}

type QuotesConfig struct {
	NumberPrefix   string        `envconfig:"RENTQUOTE_QUOTE_NUMBER_PREFIX" default:"Q"`
	DraftLockTTL   time.Duration `envconfig:"RENTQUOTE_QUOTE_DRAFT_LOCK_TTL" default:"30s"`
	ValidityDays   int           `envconfig:"RENTQUOTE_QUOTE_VALIDITY_DAYS" default:"30"`
	IdempotencyTTL time.Duration `envconfig:"RENTQUOTE_IDEMPOTENCY_TTL" default:"24h"`
}

type CronConfig struct {
	Schedule    string `envconfig:"RENTQUOTE_CRON_SCHEDULE" default:"@every 1h"`
	AuditRepair bool   `envconfig:"RENTQUOTE_QUOTE_AUDIT_REPAIR" default:"false"`
	AuditBatch  int    `envconfig:"RENTQUOTE_QUOTE_AUDIT_BATCH_SIZE" default:"200"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"RENTQUOTE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"RENTQUOTE_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"RENTQUOTE_SENDGRID_FROM_NAME" default:"RentQuote"`
}

// Enabled reports whether outbound mail can be delivered through SendGrid.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.DefaultFrom) != ""
}

type MetricsConfig struct {
	Addr string `envconfig:"RENTQUOTE_METRICS_ADDR" default:":9090"`
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
