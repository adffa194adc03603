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
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Settlement   SettlementConfig
	Gateway      GatewayConfig
	Tiers        TiersConfig
	Sweep        SweepConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SWIFTDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"SWIFTDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWIFTDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWIFTDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWIFTDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWIFTDROP_DB_DSN"`
	Driver string `envconfig:"SWIFTDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWIFTDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"SWIFTDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWIFTDROP_DB_USER"`
	LegacyPassword string `envconfig:"SWIFTDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWIFTDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWIFTDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWIFTDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWIFTDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWIFTDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWIFTDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWIFTDROP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWIFTDROP_REDIS_ADDR"`
	Password     string        `envconfig:"SWIFTDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWIFTDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWIFTDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWIFTDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWIFTDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWIFTDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWIFTDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SettlementConfig carries the money rules of the settlement engine. Rates are
// decimal fractions (0.02 = 2%), limits are whole cents.
type SettlementConfig struct {
	PlatformFeeRate   decimal.Decimal `envconfig:"SWIFTDROP_PLATFORM_FEE_RATE" default:"0.02"`
	ProcessingFeeRate decimal.Decimal `envconfig:"SWIFTDROP_PROCESSING_FEE_RATE" default:"0.01"`

	PayoutDelay time.Duration `envconfig:"SWIFTDROP_PAYOUT_DELAY" default:"24h"`

	DailyLimitCents   int64 `envconfig:"SWIFTDROP_DAILY_LIMIT_CENTS" default:"100000"`
	WeeklyLimitCents  int64 `envconfig:"SWIFTDROP_WEEKLY_LIMIT_CENTS" default:"500000"`
	MonthlyLimitCents int64 `envconfig:"SWIFTDROP_MONTHLY_LIMIT_CENTS" default:"2000000"`

	AdmissionLockWait time.Duration `envconfig:"SWIFTDROP_ADMISSION_LOCK_WAIT" default:"3s"`
	AdmissionLockTTL  time.Duration `envconfig:"SWIFTDROP_ADMISSION_LOCK_TTL" default:"15s"`
}

func (s SettlementConfig) validate() error {
	one := decimal.NewFromInt(1)
	if s.PlatformFeeRate.IsNegative() || s.PlatformFeeRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("platform fee rate must be in [0,1), got %s", s.PlatformFeeRate)
	}
	if s.ProcessingFeeRate.IsNegative() || s.ProcessingFeeRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("processing fee rate must be in [0,1), got %s", s.ProcessingFeeRate)
	}
	if s.DailyLimitCents <= 0 || s.WeeklyLimitCents <= 0 || s.MonthlyLimitCents <= 0 {
		return fmt.Errorf("withdrawal limits must be positive")
	}
	return nil
}

type GatewayConfig struct {
	BaseURL string        `envconfig:"SWIFTDROP_GATEWAY_BASE_URL"`
	APIKey  string        `envconfig:"SWIFTDROP_GATEWAY_API_KEY"`
	Timeout time.Duration `envconfig:"SWIFTDROP_GATEWAY_TIMEOUT" default:"10s"`
}

type TiersConfig struct {
	BaseURL string        `envconfig:"SWIFTDROP_TIERS_BASE_URL"`
	APIKey  string        `envconfig:"SWIFTDROP_TIERS_API_KEY"`
	Timeout time.Duration `envconfig:"SWIFTDROP_TIERS_TIMEOUT" default:"5s"`
}

type SweepConfig struct {
	Interval  time.Duration `envconfig:"SWIFTDROP_SWEEP_INTERVAL" default:"5m"`
	BatchSize int           `envconfig:"SWIFTDROP_SWEEP_BATCH_SIZE" default:"50"`
	LockTTL   time.Duration `envconfig:"SWIFTDROP_SWEEP_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SWIFTDROP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SWIFTDROP_AUTO_MIGRATE" default:"false"`
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
