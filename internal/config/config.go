package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	pkgconfig "github.com/Upendra-HQ/professional-backend-code/pkg/config"
)

// Development placeholders. They differ so the token codec accepts them.
const (
	devAccessSecret  = "change-this-access-secret"
	devRefreshSecret = "change-this-refresh-secret"
)

// minSecretLength applies outside development.
const minSecretLength = 32

// Media providers.
const (
	MediaCloudinary = "cloudinary"
	MediaS3         = "s3"
	MediaMemory     = "memory"
)

// Config holds all configuration for the account service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"channelhub"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"channelhub_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"channelhub"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis backs the failed-login throttle.
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka. Empty disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tokens
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"change-this-access-secret"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"change-this-refresh-secret"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`
	TokenIssuer        string        `env:"TOKEN_ISSUER" envDefault:"channelhub"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"12"`
	// RevokeOnPasswordChange ends the current session when the password changes.
	RevokeOnPasswordChange bool `env:"REVOKE_ON_PASSWORD_CHANGE" envDefault:"false"`

	// Cookies
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"true"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"lax"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Rate limiting
	AuthRateLimitRPS   float64       `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int           `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`
	TrustProxyHeaders  bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	LoginMaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow        time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`

	// Media host
	MediaProvider       string `env:"MEDIA_PROVIDER" envDefault:"memory"`
	MediaMemoryBaseURL  string `env:"MEDIA_MEMORY_BASE_URL" envDefault:"http://localhost:8000/media"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryBaseURL   string `env:"CLOUDINARY_BASE_URL"`
	S3Region            string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint          string `env:"S3_ENDPOINT"`
	S3Bucket            string `env:"S3_BUCKET"`
	S3AccessKey         string `env:"S3_ACCESS_KEY"`
	S3SecretKey         string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL     string `env:"S3_PUBLIC_BASE_URL"`
	S3PathStyle         bool   `env:"S3_PATH_STYLE" envDefault:"true"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// PprofAllowedCIDRs enables /debug/pprof for these networks. Empty disables it.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether relaxed secret checks apply.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		errs = append(errs, errors.New("token expiries must be positive"))
	}
	if c.RefreshTokenExpiry <= c.AccessTokenExpiry {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRY must be longer than ACCESS_TOKEN_EXPIRY"))
	}
	errs = append(errs, c.validateSecrets()...)

	if _, err := c.SameSite(); err != nil {
		errs = append(errs, err)
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst < 1 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must be positive"))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1], got %v", c.OTELSampleRate))
	}
	for _, cidr := range c.PprofAllowedCIDRs {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			errs = append(errs, fmt.Errorf("invalid PPROF_ALLOWED_CIDRS entry %q", cidr))
		}
	}
	errs = append(errs, c.validateMedia()...)

	return errors.Join(errs...)
}

func (c *Config) validateSecrets() []error {
	var errs []error
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set"))
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.IsDevelopment() {
		return errs
	}

	for name, secret := range map[string]string{
		"ACCESS_TOKEN_SECRET":  c.AccessTokenSecret,
		"REFRESH_TOKEN_SECRET": c.RefreshTokenSecret,
	} {
		if secret == devAccessSecret || secret == devRefreshSecret {
			errs = append(errs, fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, c.Environment))
			continue
		}
		if len(secret) < minSecretLength {
			errs = append(errs, fmt.Errorf("%s must be at least %d characters long, got %d", name, minSecretLength, len(secret)))
		}
	}
	return errs
}

func (c *Config) validateMedia() []error {
	switch c.MediaProvider {
	case MediaMemory:
		if !c.IsDevelopment() {
			return []error{fmt.Errorf("MEDIA_PROVIDER %q is only allowed in development", MediaMemory)}
		}
	case MediaCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return []error{errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")}
		}
	case MediaS3:
		if c.S3Bucket == "" || c.S3PublicBaseURL == "" {
			return []error{errors.New("S3_BUCKET and S3_PUBLIC_BASE_URL are required")}
		}
	default:
		return []error{fmt.Errorf("unknown MEDIA_PROVIDER %q", c.MediaProvider)}
	}
	return nil
}

// SameSite maps COOKIE_SAME_SITE to its http constant.
func (c *Config) SameSite() (http.SameSite, error) {
	switch strings.ToLower(c.CookieSameSite) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		if !c.CookieSecure {
			return 0, errors.New("COOKIE_SAME_SITE=none requires COOKIE_SECURE=true")
		}
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("invalid COOKIE_SAME_SITE %q", c.CookieSameSite)
	}
}
