package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"filerelay/internal/config"
	"filerelay/internal/database"
	"filerelay/internal/database/migration"
	handlers "filerelay/internal/http/handler"
	"filerelay/internal/http/middleware"
	"filerelay/internal/hub"
	"filerelay/internal/otel"
	"filerelay/internal/repository"
	"filerelay/internal/repository/jsonfile"
	"filerelay/internal/repository/postgres"
	"filerelay/internal/service"
	"filerelay/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "filerelay").Logger()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Metadata store: atomically swapped JSON file by default, PostgreSQL
	// when configured.
	var repo repository.FileRepository
	switch cfg.Metadata.Backend {
	case "postgres":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		repo = postgres.NewFilePostgres(db)
	case "jsonfile":
		if err := os.MkdirAll(filepath.Dir(cfg.Metadata.Path), 0o755); err != nil {
			log.Fatal().Err(err).Msg("failed to create metadata directory")
		}
		store, err := jsonfile.Open(cfg.Metadata.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open metadata store")
		}
		repo = store
	default:
		log.Fatal().Str("backend", cfg.Metadata.Backend).Msg("unknown metadata backend")
	}

	// Blob sink: local directory by default, S3-compatible when configured.
	var blobs storage.BlobStore
	switch cfg.Blob.Backend {
	case "minio":
		blobs, err = storage.NewMinIO(cfg.MinIO)
	case "local":
		blobs, err = storage.NewLocal(cfg.Blob.Dir)
	default:
		log.Fatal().Str("backend", cfg.Blob.Backend).Msg("unknown blob backend")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	// Push hub and upload pipeline
	h := hub.New(log)
	defer h.Close()
	relaySvc := service.NewRelayService(blobs, repo, h)

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "push_subscribers",
			Help: "Number of connected push subscribers.",
		},
		func() float64 { return float64(h.ClientCount()) },
	))

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register prometheus middleware")
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected dependencies
	handlers.RegisterRoutes(app, repo, relaySvc, h)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("metadata_backend", cfg.Metadata.Backend).Str("blob_backend", cfg.Blob.Backend).Msg("starting server")

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
