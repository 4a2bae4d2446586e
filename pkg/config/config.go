package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig prefix shared by every FlockTrack binary.
const EnvPrefix = "FLOCKTRACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
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
	Identity      IdentityConfig
	SMS           SMSConfig
	Wishes        WishesConfig
	Messaging     MessagingConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLOCKTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"FLOCKTRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLOCKTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLOCKTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FLOCKTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FLOCKTRACK_DB_DSN"`
	Driver string `envconfig:"FLOCKTRACK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FLOCKTRACK_DB_HOST"`
	Port     int    `envconfig:"FLOCKTRACK_DB_PORT" default:"5432"`
	User     string `envconfig:"FLOCKTRACK_DB_USER"`
	Password string `envconfig:"FLOCKTRACK_DB_PASSWORD"`
	Name     string `envconfig:"FLOCKTRACK_DB_NAME"`
	SSLMode  string `envconfig:"FLOCKTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLOCKTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLOCKTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLOCKTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLOCKTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLOCKTRACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLOCKTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"FLOCKTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLOCKTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLOCKTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLOCKTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLOCKTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLOCKTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLOCKTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FLOCKTRACK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FLOCKTRACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FLOCKTRACK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FLOCKTRACK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FLOCKTRACK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FLOCKTRACK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FLOCKTRACK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FLOCKTRACK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FLOCKTRACK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FLOCKTRACK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FLOCKTRACK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FLOCKTRACK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FLOCKTRACK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FLOCKTRACK_AUTO_MIGRATE" default:"false"`
}

// IdentityConfig points at the external login-identity provider.
type IdentityConfig struct {
	BaseURL   string        `envconfig:"FLOCKTRACK_IDENTITY_BASE_URL"`
	APIKey    string        `envconfig:"FLOCKTRACK_IDENTITY_API_KEY"`
	Timeout   time.Duration `envconfig:"FLOCKTRACK_IDENTITY_TIMEOUT" default:"10s"`
	Namespace string        `envconfig:"FLOCKTRACK_IDENTITY_NAMESPACE" default:"flocktrack"`
}

type SMSConfig struct {
	BaseURL  string        `envconfig:"FLOCKTRACK_SMS_BASE_URL"`
	APIKey   string        `envconfig:"FLOCKTRACK_SMS_API_KEY"`
	SenderID string        `envconfig:"FLOCKTRACK_SMS_SENDER_ID" default:"FLOCKTRACK"`
	Timeout  time.Duration `envconfig:"FLOCKTRACK_SMS_TIMEOUT" default:"15s"`
}

// WishesConfig configures the AI text vendor used for birthday wishes.
type WishesConfig struct {
	BaseURL string        `envconfig:"FLOCKTRACK_WISHES_BASE_URL"`
	APIKey  string        `envconfig:"FLOCKTRACK_WISHES_API_KEY"`
	Model   string        `envconfig:"FLOCKTRACK_WISHES_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"FLOCKTRACK_WISHES_TIMEOUT" default:"8s"`
}

type MessagingConfig struct {
	// SMSBatchSize caps concurrent sends per batch. Vendor rate-limit policy
	// knob, not a correctness requirement.
	SMSBatchSize int `envconfig:"FLOCKTRACK_SMS_BATCH_SIZE" default:"5"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FLOCKTRACK_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FLOCKTRACK_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FLOCKTRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"FLOCKTRACK_DB_HOST": db.Host,
		"FLOCKTRACK_DB_USER": db.User,
		"FLOCKTRACK_DB_NAME": db.Name,
	}
	for _, env := range []string{"FLOCKTRACK_DB_HOST", "FLOCKTRACK_DB_USER", "FLOCKTRACK_DB_NAME"} {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either FLOCKTRACK_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
