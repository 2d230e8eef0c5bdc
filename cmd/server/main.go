package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/erisonnicodemos/QuickIngestFile/internal/api"
	"github.com/erisonnicodemos/QuickIngestFile/internal/config"
	"github.com/erisonnicodemos/QuickIngestFile/internal/ingestion"
	"github.com/erisonnicodemos/QuickIngestFile/internal/logging"
	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser/delimited"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser/spreadsheet"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository/memory"
	mongorepo "github.com/erisonnicodemos/QuickIngestFile/internal/repository/mongo"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository/postgres"
)

func main() {
	if err := godotenv.Overload(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.MustLoad()

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()
	logger.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := buildRepository(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize repository backend", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	warnStaleJobs(ctx, repo, logger)

	registry := parser.NewRegistry()
	registry.Register(delimited.New())
	registry.Register(spreadsheet.New())

	service := ingestion.New(registry, repo, logger, cfg.Ingestion.QueueCapacity, cfg.Ingestion.Concurrency)
	go service.Run(ctx)

	server := api.NewServer(service, logger)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, draining in-flight jobs")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Ingestion.ShutdownDrainTimeout)
		defer cancelDrain()
		if err := service.Shutdown(drainCtx); err != nil {
			logger.Error("ingestion drain error", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil {
		logger.Info("server stopped", "error", err)
	}
}

// warnStaleJobs scans for jobs left in Processing from a prior process
// lifetime and logs them. It never rewrites their status: the pool
// never synthesizes a terminal state for a job it didn't run (§5), so
// a restart leaves stale jobs for an operator to triage rather than
// auto-failing them.
func warnStaleJobs(ctx context.Context, repo repository.Repository, logger *slog.Logger) {
	const scanPageSize = 500
	jobs, err := repo.ListJobs(ctx, scanPageSize, 0)
	if err != nil {
		logger.Warn("could not scan for stale jobs at startup", "error", err)
		return
	}

	var stale []string
	for _, job := range jobs {
		if job.Status == model.StatusProcessing {
			stale = append(stale, job.ID)
		}
	}
	if len(stale) > 0 {
		logger.Warn("found jobs stuck in Processing from a prior run; they were not resumed or failed automatically", "job_ids", stale, "count", len(stale))
	}
}

// buildRepository selects and constructs the repository.Repository
// implementation named by cfg.Database.Backend, returning a close func
// that releases any underlying connection pool/client.
func buildRepository(ctx context.Context, cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.Database.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo := postgres.New(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil

	case "mongo":
		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.Database.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, nil, err
		}
		repo := mongorepo.New(client, cfg.Database.MongoDatabase)
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(disconnectCtx)
		}
		return repo, closeFn, nil

	default: // "memory"
		return memory.New(), func() {}, nil
	}
}
