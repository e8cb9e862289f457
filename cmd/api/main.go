package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/camp-school-api/api/swagger"
	"github.com/noah-isme/camp-school-api/internal/handler"
	"github.com/noah-isme/camp-school-api/internal/repository"
	"github.com/noah-isme/camp-school-api/internal/router"
	"github.com/noah-isme/camp-school-api/internal/service"
	"github.com/noah-isme/camp-school-api/pkg/cache"
	"github.com/noah-isme/camp-school-api/pkg/config"
	"github.com/noah-isme/camp-school-api/pkg/database"
	"github.com/noah-isme/camp-school-api/pkg/events"
	"github.com/noah-isme/camp-school-api/pkg/export"
	"github.com/noah-isme/camp-school-api/pkg/jobs"
	"github.com/noah-isme/camp-school-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/camp-school-api/pkg/middleware/cors"
	"github.com/noah-isme/camp-school-api/pkg/payment"
)

// @title Camp School API
// @version 1.0.0
// @description Course catalog, selection and paid enrollment backend
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const serviceName = "camp-school-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	// An untyped nil keeps the cache repository in its disabled mode.
	var redisClient redis.UniversalClient
	if cfg.Catalog.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			redisClient = client
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events, serviceName, logr)
	}
	defer publisher.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, serviceName, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, userRepo, userRepo, cacheSvc, cfg.Catalog.CacheTTL, validate, logr)
	selectionSvc := service.NewSelectionService(selectionRepo, classRepo, validate, logr)
	intentSvc := service.NewPaymentIntentService(payment.NewStripeGateway(cfg.Stripe, logr), classRepo, cfg.Stripe.Currency, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentDeps{
		Payments:    paymentRepo,
		Classes:     classRepo,
		Enrollments: enrollmentRepo,
		Catalog:     classSvc,
		Publisher:   publisher,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
	})
	exportSvc := service.NewExportService(enrollmentSvc, export.NewCSVExporter(), export.NewPDFExporter(serviceName), cfg.Stripe.Currency, logr)

	reconCfg := service.ReconciliationConfig{
		Interval:    cfg.Reconciliation.Interval,
		GracePeriod: cfg.Reconciliation.GracePeriod,
		BatchSize:   cfg.Reconciliation.BatchSize,
	}
	var reconSvc *service.ReconciliationService
	queue := jobs.NewQueue("reconciliation", func(ctx context.Context, job jobs.Job) error {
		return reconSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reconciliation.Workers,
		MaxRetries: cfg.Reconciliation.MaxRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	reconSvc = service.NewReconciliationService(paymentRepo, enrollmentSvc, queue, metrics, logr, reconCfg)
	queue.Start(ctx)
	defer queue.Stop()
	if cfg.Reconciliation.Enabled {
		reconSvc.StartScheduler(ctx)
	}

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := router.New(router.Options{
		Env:       cfg.Env,
		APIPrefix: cfg.APIPrefix,
		Logger:    logr,
		Metrics:   metrics,
		Tokens:    authSvc,
	}, router.Handlers{
		Health:        handler.NewHealthHandler(metrics, checks),
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Classes:       handler.NewClassHandler(classSvc),
		Selections:    handler.NewSelectionHandler(selectionSvc),
		Payments:      handler.NewPaymentHandler(intentSvc, enrollmentSvc, exportSvc),
		AdminPayments: handler.NewAdminPaymentHandler(enrollmentSvc, reconSvc, exportSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           corsmiddleware.Wrap(engine, cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
