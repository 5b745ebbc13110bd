package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Upendra-HQ/professional-backend-code/internal/auth"
	"github.com/Upendra-HQ/professional-backend-code/internal/config"
	"github.com/Upendra-HQ/professional-backend-code/internal/event"
	handler "github.com/Upendra-HQ/professional-backend-code/internal/handler/http"
	"github.com/Upendra-HQ/professional-backend-code/internal/limiter"
	"github.com/Upendra-HQ/professional-backend-code/internal/media"
	"github.com/Upendra-HQ/professional-backend-code/internal/media/cloudinary"
	"github.com/Upendra-HQ/professional-backend-code/internal/media/memory"
	"github.com/Upendra-HQ/professional-backend-code/internal/media/s3store"
	"github.com/Upendra-HQ/professional-backend-code/internal/repository/postgres"
	"github.com/Upendra-HQ/professional-backend-code/internal/service"
	"github.com/Upendra-HQ/professional-backend-code/migrations"
	"github.com/Upendra-HQ/professional-backend-code/pkg/database"
	"github.com/Upendra-HQ/professional-backend-code/pkg/health"
	"github.com/Upendra-HQ/professional-backend-code/pkg/httpclient"
	pkgkafka "github.com/Upendra-HQ/professional-backend-code/pkg/kafka"
	"github.com/Upendra-HQ/professional-backend-code/pkg/middleware"
	"github.com/Upendra-HQ/professional-backend-code/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "channelhub"

// App wires together all dependencies and runs the account service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	// stopBackground ends goroutines owned by the router, such as rate
	// limiter cleanup.
	stopBackground context.CancelFunc
}

// NewApp creates a new application instance. An unreachable PostgreSQL is
// fatal; Redis and Kafka are optional and only degrade readiness.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, ServiceName)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		_ = tracerShutdown(context.Background())
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	rdb := openRedis(ctx, cfg, logger)

	// Kafka is optional. Without brokers the services use a no-op publisher.
	var (
		producer  *pkgkafka.Producer
		publisher service.EventPublisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("KAFKA_BROKERS is empty, user events are disabled")
	}

	host, err := newMediaHost(ctx, cfg, logger)
	if err != nil {
		rdb.Close()
		pool.Close()
		_ = tracerShutdown(context.Background())
		return nil, fmt.Errorf("init media host: %w", err)
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshTTL:    cfg.RefreshTokenExpiry,
		Issuer:        cfg.TokenIssuer,
	})
	if err != nil {
		rdb.Close()
		pool.Close()
		_ = tracerShutdown(context.Background())
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	// Build the dependency graph.
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	userRepo := postgres.NewUserRepository(pool)
	subRepo := postgres.NewSubscriptionRepository(pool)
	historyRepo := postgres.NewHistoryRepository(pool)
	throttle := limiter.New(rdb, limiter.Config{MaxAttempts: cfg.LoginMaxAttempts, Window: cfg.LoginWindow}, logger)

	sessions := service.NewSessionService(userRepo, tokens, hasher, throttle, publisher, service.SessionConfig{
		RevokeOnPasswordChange: cfg.RevokeOnPasswordChange,
	}, logger)
	accounts := service.NewUserService(userRepo, subRepo, historyRepo, hasher, host, publisher, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	sameSite, err := cfg.SameSite()
	if err != nil {
		rdb.Close()
		pool.Close()
		_ = tracerShutdown(context.Background())
		return nil, err
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	bgCtx, stopBackground := context.WithCancel(context.Background())
	router := handler.NewRouter(bgCtx, sessions, accounts, healthHandler, handler.RouterConfig{
		ServiceName: ServiceName,
		CORS:        cors,
		Cookies: handler.CookieConfig{
			Secure:   cfg.CookieSecure,
			Domain:   cfg.CookieDomain,
			SameSite: sameSite,
		},
		AuthRateLimit: middleware.RateLimitConfig{
			RPS:        cfg.AuthRateLimitRPS,
			Burst:      cfg.AuthRateLimitBurst,
			TrustProxy: cfg.TrustProxyHeaders,
		},
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          rdb,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
		stopBackground: stopBackground,
	}, nil
}

// openRedis pings Redis once. When it is down the service still starts:
// the client reconnects lazily and the throttle fails open meanwhile.
func openRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	redisCfg := database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	client, err := database.NewRedisClient(pingCtx, redisCfg)
	if err != nil {
		logger.Warn("redis unavailable at startup, login throttling is disabled until it recovers",
			slog.String("addr", redisCfg.Addr()),
			slog.String("error", err.Error()),
		)
		return database.OpenRedis(redisCfg)
	}
	logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))
	return client
}

func newMediaHost(ctx context.Context, cfg *config.Config, logger *slog.Logger) (media.Host, error) {
	switch cfg.MediaProvider {
	case config.MediaCloudinary:
		return cloudinary.New(cloudinary.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			BaseURL:   cfg.CloudinaryBaseURL,
		}, httpclient.New(httpclient.DefaultConfig()), logger)
	case config.MediaS3:
		return s3store.New(ctx, s3store.Config{
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			PathStyle:     cfg.S3PathStyle,
		}, logger)
	case config.MediaMemory:
		logger.Warn("using in-memory media host, uploads are lost on restart")
		return memory.New(cfg.MediaMemoryBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.MediaProvider)
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in dependency order: HTTP server first so
// in-flight requests drain, then the tracer, the Kafka producer, Redis and
// finally PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.stopBackground()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
