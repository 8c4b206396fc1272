package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"doccustody/internal/anchor"
	"doccustody/internal/classifier"
	"doccustody/internal/config"
	"doccustody/internal/database"
	"doccustody/internal/database/migration"
	handlers "doccustody/internal/http/handler"
	"doccustody/internal/http/middleware"
	"doccustody/internal/logging"
	"doccustody/internal/otel"
	"doccustody/internal/repository/postgres"
	"doccustody/internal/service"
	"doccustody/internal/storage"
	"doccustody/internal/validation"
	"doccustody/internal/verification"
)

const shutdownTimeout = 10 * time.Second

// @title Document Custody API
// @version 1.0
// @description Verified document intake with content hashing and anchoring.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, flush, err := logging.New(os.Stdout, logging.Options{
		Level:     cfg.Log.Level,
		Location:  logging.LoadLocation(cfg.Log.Timezone),
		SentryDSN: cfg.Log.SentryDSN,
		Env:       cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}
	defer flush()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		flush()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		flush()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("initialize blob storage: %w", err)
	}

	cls := newClassifier(cfg, logger)

	anc, closeAnchor, err := newAnchor(cfg.Anchor, logger)
	if err != nil {
		return fmt.Errorf("initialize anchor: %w", err)
	}
	defer closeAnchor()

	if cfg.Verification.FailOpen {
		logger.Warn("verification fails open: documents are accepted when the classifier is unavailable",
			"degraded_confidence", cfg.Verification.DegradedConfidence)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	docSvc := service.NewDocumentService(blobs, postgres.NewDocumentPostgres(db), cls, anc, service.Options{
		Limits: validation.Limits{
			MaxBytes:     cfg.Upload.MaxBytes,
			AllowedTypes: cfg.Upload.AllowedTypes,
			ValidatePDF:  cfg.Upload.ValidatePDF,
		},
		Policy: verification.Policy{
			Threshold:          cfg.Verification.Threshold,
			FailOpen:           cfg.Verification.FailOpen,
			DegradedConfidence: cfg.Verification.DegradedConfidence,
		},
		ClassifierTimeout: cfg.Classifier.Timeout,
		AnchorTimeout:     cfg.Anchor.Timeout,
		Logger:            logger,
		Metrics:           metrics,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Multipart framing on top of the largest accepted payload.
		BodyLimit: int(cfg.Upload.MaxBytes) + 1<<20,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, db, docSvc, handlers.RouteOptions{
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		JWTIssuer: cfg.Auth.JWTIssuer,
		Gatherer:  reg,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("server starting", "addr", addr, "env", cfg.Env)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newBlobStore(ctx context.Context, cfg config.BlobConfig) (storage.Blobs, error) {
	var (
		backend storage.Storage
		err     error
	)
	switch cfg.Backend {
	case "azure":
		backend, err = storage.NewAzure(ctx, cfg.Azure)
	default:
		backend, err = storage.NewMinIO(ctx, cfg.MinIO)
	}
	if err != nil {
		return nil, err
	}
	return storage.NewBlobStore(backend, cfg.Prefix), nil
}

func newClassifier(cfg *config.AppConfig, logger *slog.Logger) classifier.Classifier {
	if !cfg.Classifier.Enabled {
		logger.Warn("classifier disabled by configuration")
		return classifier.Disabled{}
	}
	g, err := classifier.NewGemini(classifier.GeminiOptions{
		APIKey:  cfg.Classifier.APIKey,
		Model:   cfg.Classifier.Model,
		BaseURL: cfg.Classifier.BaseURL,
		Timeout: cfg.Classifier.Timeout,
	})
	if err != nil {
		logger.Warn("classifier unavailable, uploads follow the fallback policy", "error", err)
		return classifier.Disabled{}
	}
	return g
}

func newAnchor(cfg config.AnchorConfig, logger *slog.Logger) (anchor.Client, func(), error) {
	var (
		base    anchor.Client
		closeFn = func() {}
	)
	switch cfg.Backend {
	case "redis":
		ledger := anchor.DialRedisLedger(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.KeyPrefix)
		base = ledger
		closeFn = func() {
			if err := ledger.Close(); err != nil {
				logger.Warn("anchor ledger close failed", "error", err)
			}
		}
	case "stub":
		logger.Warn("anchoring uses the stub backend: anchor references carry no integrity guarantee")
		base = anchor.NewStub()
	default:
		return nil, nil, fmt.Errorf("unsupported anchor backend %q", cfg.Backend)
	}
	return anchor.NewRetrying(base, cfg.MaxAttempts, logger.With("component", "anchor")), closeFn, nil
}
