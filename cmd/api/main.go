package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketapi/docs"
	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/config"
	"marketapi/internal/database"
	"marketapi/internal/database/migration"
	"marketapi/internal/events"
	handlers "marketapi/internal/http/handler"
	"marketapi/internal/http/middleware"
	"marketapi/internal/logger"
	"marketapi/internal/otel"
	"marketapi/internal/provider"
	"marketapi/internal/repository/postgres"
	"marketapi/internal/resilience"
	"marketapi/internal/secret"
	"marketapi/internal/service"
	"marketapi/internal/storage"
)

const (
	maxBodyBytes    = 25 << 20
	shutdownTimeout = 15 * time.Second
	limiterSweep    = time.Minute
	limiterIdle     = 10 * time.Minute
)

// @title Market Analysis API
// @version 1.0
// @description Competitor analysis across LLM providers, provider key management, documents and account data.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	zlog, err := logger.New(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, cfg.ServiceName, zlog)
	if err != nil {
		zlog.Fatal("tracing_init_failed", zap.Error(err))
	}

	// Initialize PostgreSQL connection (with pooling via database/sql) and apply migrations
	db, err := database.NewPostgres(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := migration.EnsureMigrated(db, zlog, cfg.Database.Host); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize object storage", zap.Error(err))
	}

	var respCache cache.Cache = cache.Noop{}
	var cachePing service.Pinger
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			zlog.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rc.Close()
		respCache, cachePing = rc, rc
	} else {
		zlog.Info("redis not configured, provider responses are not cached")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQP.URL != "" {
		p, err := events.Connect(cfg.AMQP, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to amqp", zap.Error(err))
		}
		defer p.Close()
		publisher = p
	} else {
		zlog.Info("amqp not configured, events are dropped")
	}

	sealingKey, err := cfg.SealingKeyBytes()
	if err != nil {
		zlog.Fatal("invalid api key sealing key", zap.Error(err))
	}
	sealer, err := secret.NewSealer(sealingKey)
	if err != nil {
		zlog.Fatal("failed to build api key sealer", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	providerMetrics, err := provider.NewMetrics(reg)
	if err != nil {
		zlog.Fatal("failed to register provider metrics", zap.Error(err))
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		zlog.Fatal("failed to register http metrics", zap.Error(err))
	}

	// Provider gateway: registry, per-user provider limits, per-provider breakers, retries
	registry := provider.FromConfig(cfg.Providers, provider.NewHTTPClient(cfg.Providers.Timeout))
	providerLimiter := resilience.NewKeyedLimiter(cfg.Resilience.ProviderRPS, cfg.Resilience.ProviderBurst)
	breakers := resilience.NewBreakers(resilience.BreakerSettings{
		Failures:      cfg.Resilience.BreakerFailures,
		OpenTimeout:   cfg.Resilience.BreakerOpenTimeout,
		IsSuccessful:  provider.CountsAsBreakerSuccess,
		OnStateChange: providerMetrics.ObserveBreaker,
	})
	gateway := provider.NewGateway(registry, respCache, providerLimiter, breakers, provider.GatewayConfig{
		Retry:    resilience.PolicyFromConfig(cfg.Resilience),
		CacheTTL: cfg.Resilience.CacheTTL,
	}, providerMetrics, zlog)
	zlog.Info("providers registered", zap.Strings("providers", registry.Names()), zap.Strings("server_keys", registry.Configured()))

	// Initialize repositories and services
	analysisRepo := postgres.NewAnalysisPostgres(db)
	keyRepo := postgres.NewAPIKeyPostgres(db)
	docRepo := postgres.NewDocumentPostgres(db)
	ticketRepo := postgres.NewTicketPostgres(db)
	metricRepo := postgres.NewMetricPostgres(db)

	keySvc := service.NewAPIKeyService(keyRepo, sealer, registry, gateway, zlog)
	roleSvc := service.NewRoleService(postgres.NewRolePostgres(db), publisher, zlog)
	svcs := handlers.Services{
		Health: service.NewHealthService(map[string]service.Pinger{
			"database": service.PingFunc(db.PingContext),
			"cache":    cachePing,
			"storage":  objStore,
		}, 2*time.Second),
		Documents:   service.NewDocumentService(objStore, docRepo, zlog),
		Analyses:    service.NewAnalysisService(analysisRepo, metricRepo, keySvc, registry, gateway, publisher, zlog),
		APIKeys:     keySvc,
		Preferences: service.NewPreferenceService(postgres.NewPreferencePostgres(db)),
		Billing:     service.NewBillingService(postgres.NewBillingPostgres(db)),
		Support:     service.NewSupportService(ticketRepo, publisher, zlog),
		Metrics:     service.NewMetricService(metricRepo),
		Dashboard:   service.NewDashboardService(analysisRepo, docRepo, ticketRepo, keySvc),
		Admin:       service.NewAdminService(roleSvc, registry, gateway, gateway.Breakers(), zlog),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    maxBodyBytes,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(zlog))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	httpLimiter := resilience.NewKeyedLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	tokens := auth.NewMaker(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	handlers.RegisterRoutes(app, svcs, tokens, httpLimiter)

	go providerLimiter.RunSweeper(ctx, limiterSweep, limiterIdle)
	go httpLimiter.RunSweeper(ctx, limiterSweep, limiterIdle)

	addr := ":" + cfg.Port
	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", addr))
		serveErr <- app.Listen(addr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			zlog.Error("http server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zlog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("http shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zlog.Error("tracing shutdown failed", zap.Error(err))
	}
}
