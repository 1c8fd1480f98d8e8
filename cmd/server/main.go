// @title           UK ETA Backend API
// @version         1.0.0
// @description     Backend API for the UK Electronic Travel Authorisation portal. It holds multi-step application drafts, stores passport scans and photos, scores photo quality, takes payments, tracks applications and serves the admin dashboard.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"uk-eta-backend/internal/captcha"
	"uk-eta-backend/internal/config"
	"uk-eta-backend/internal/database"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/handlers"
	"uk-eta-backend/internal/imagequality"
	"uk-eta-backend/internal/logger"
	"uk-eta-backend/internal/metrics"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/payment"
	"uk-eta-backend/internal/resume"
	"uk-eta-backend/internal/security"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/store"
	"uk-eta-backend/internal/supabase"
	"uk-eta-backend/internal/translate"
	"uk-eta-backend/internal/validation"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		FilePath: cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	slog.SetDefault(appLogger)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	validator := validation.New(validation.WithPassportNumberRange(validation.PassportNumberRange{
		Min: cfg.PassportNumberMin,
		Max: cfg.PassportNumberMax,
	}))
	if err := validation.RegisterBindings(validator); err != nil {
		return err
	}

	checks := map[string]handlers.HealthCheck{}

	// Persistence: Supabase Postgres when DATABASE_URL is set, memory otherwise
	var st store.Store
	if cfg.DatabaseURL != "" {
		dbClient, err := supabase.NewDatabaseClient(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer dbClient.Close()

		if err := database.NewMigrator(dbClient.DB(), appLogger).Run(ctx); err != nil {
			return err
		}
		appLogger.Info("migrations completed successfully")

		st = dbClient
		checks["database"] = dbClient.Ping
	} else {
		appLogger.Warn("DATABASE_URL not set, using the in-memory store")
		st = store.NewMemoryStore()
	}

	var objects store.ObjectStore
	var stats services.StatsProvider = services.StoreStats{Store: st}
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)
		if err != nil {
			return err
		}
		objects = storageClient

		supabaseClient, err := supabase.NewClient(cfg)
		if err != nil {
			return err
		}
		stats = supabaseClient
	} else {
		appLogger.Warn("Supabase storage not configured, keeping uploads in memory")
		objects = store.NewMemoryObjectStore(cfg.BaseURL + "/objects")
	}

	// Resume links live in Redis when available so they survive restarts
	var links resume.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		links = resume.NewRedisStore(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		links = resume.NewMemoryStore()
	}

	var gateway payment.Gateway
	if cfg.MidtransServerKey != "" {
		gateway = payment.NewSnapGateway(cfg.MidtransServerKey, cfg.MidtransProduction)
	} else {
		appLogger.Warn("MIDTRANS_SERVER_KEY not set, payments use the stub gateway")
		gateway = payment.NewStubGateway(cfg.PortalURL)
	}

	var upstream translate.Translator
	if cfg.TranslateAPIURL != "" {
		upstream = translate.NewLibreTranslateClient(cfg.TranslateAPIURL, "")
	}

	// Services
	serviceOpts := []services.Option{services.WithLogger(appLogger), services.WithMetrics(appMetrics)}

	notifier := notification.NewService(notification.NewLogMailer(appLogger),
		notification.WithLogger(appLogger), notification.WithMetrics(appMetrics))
	sanitizer := security.NewSanitizer(security.WithLogger(appLogger), security.WithMetrics(appMetrics))
	analyzer := imagequality.NewAnalyzer(imagequality.WithLogger(appLogger))
	drafts := draft.NewManager()
	jobTitles := translate.NewService(upstream, translate.WithLogger(appLogger))
	captchaVerifier := captcha.NewVerifier(cfg.CaptchaSecretKey, cfg.CaptchaVerifyURL, cfg.CaptchaEnabled())
	if !captchaVerifier.Enabled() {
		appLogger.Warn("CAPTCHA verification disabled")
	}

	apps := services.NewApplicationService(st, drafts, notifier, services.ApplicationConfig{
		FeePerApplicant: cfg.FeePerApplicant,
		PortalURL:       cfg.PortalURL,
		Objects:         objects,
	}, serviceOpts...)
	documents := services.NewDocumentService(st, objects, analyzer, sanitizer, serviceOpts...)
	payments := services.NewPaymentService(st, gateway, notifier, services.PaymentConfig{
		FeePerApplicant: cfg.FeePerApplicant,
		ServerKey:       cfg.MidtransServerKey,
		PortalURL:       cfg.PortalURL,
	}, serviceOpts...)
	resumes := services.NewResumeService(links, drafts, notifier, cfg.PortalURL, serviceOpts...)
	admin := services.NewAdminService(st, stats, notifier, cfg.PortalURL, serviceOpts...)

	// Handlers
	routes := handlers.Routes{
		Health: handlers.NewHealthHandler(checks),
		Config: handlers.NewConfigHandler(cfg),
		Drafts: handlers.NewDraftsHandler(handlers.DraftsHandlerConfig{
			Drafts:     drafts,
			Apps:       apps,
			Resumes:    resumes,
			Normalizer: services.NewApplicantNormalizer(validator, sanitizer),
			Validator:  validator,
			Captcha:    captchaVerifier,
			Logger:     appLogger,
		}),
		Resume:    handlers.NewResumeHandler(resumes, appLogger),
		Documents: handlers.NewDocumentsHandler(documents, analyzer, appLogger),
		Status:    handlers.NewStatusHandler(apps, appLogger),
		Translate: handlers.NewTranslateHandler(jobTitles, validator),
		Functions: handlers.NewFunctionsHandler(apps, payments, documents, validator, appLogger),
		Admin:     handlers.NewAdminHandler(admin, validator, appLogger),
		Webhook:   handlers.NewWebhookHandler(payments, validator, appLogger),
		Auth:      middleware.AuthMiddleware(cfg.SupabaseJWTSecret),
		AdminOnly: middleware.AdminMiddleware(st, appLogger),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, appMetrics)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(appLogger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.Use(limiter.Middleware())
	routes.Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Expired drafts and idle limiter buckets
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				purged := drafts.PurgeExpired()
				swept := limiter.Sweep(sweepInterval)
				if purged > 0 || swept > 0 {
					appLogger.Debug("sweep finished", "drafts_purged", purged, "limiters_swept", swept)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
