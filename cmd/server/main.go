package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/St1cky1/task-tracker/internal/api"
	grpcapi "github.com/St1cky1/task-tracker/internal/api/grpc"
	"github.com/St1cky1/task-tracker/internal/config"
	"github.com/St1cky1/task-tracker/internal/hub"
	"github.com/St1cky1/task-tracker/internal/infrastructure/auth"
	"github.com/St1cky1/task-tracker/internal/infrastructure/cache"
	"github.com/St1cky1/task-tracker/internal/infrastructure/client"
	"github.com/St1cky1/task-tracker/internal/infrastructure/mail"
	"github.com/St1cky1/task-tracker/internal/infrastructure/storage"
	"github.com/St1cky1/task-tracker/internal/logger"
	"github.com/St1cky1/task-tracker/internal/repository"
	"github.com/St1cky1/task-tracker/internal/repository/sqlite"
	"github.com/St1cky1/task-tracker/internal/usecase"
	"github.com/St1cky1/task-tracker/internal/worker"
	"github.com/St1cky1/task-tracker/migrations"
)

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	taskCache, closeCache := openCache(ctx, cfg.Redis, log)
	defer closeCache()

	audit := openAuditPublisher(cfg.RabbitMQ, log)
	defer audit.Close()

	files, err := storage.NewLocalStorage(cfg.Files.Dir)
	if err != nil {
		return err
	}

	h := hub.New(log, cfg.Hub.QueueSize, cfg.Hub.SendTimeout)

	runner := worker.NewRunner(worker.RunnerConfig{
		Workers:    cfg.Runner.Workers,
		QueueSize:  cfg.Runner.QueueSize,
		JobTimeout: cfg.Runner.JobTimeout,
	}, log)
	if err := runner.Start(); err != nil {
		return err
	}

	mailer := mail.NewSMTPMailer(cfg.SMTP, log)
	if !cfg.SMTP.Configured() {
		log.Warn().Msg("SMTP is not configured, task emails are disabled")
	}

	taskService := usecase.NewTaskService(store, h, runner, mailer, audit, taskCache, log)

	if n, err := taskService.CheckConsistency(ctx); err != nil {
		log.Warn().Err(err).Msg("consistency check failed")
	} else if n > 0 {
		log.Warn().Int("tasks", n).Msg("found tasks with inconsistent status fields")
	}

	router := api.NewRouter(api.RouterDeps{
		Tasks:    taskService,
		Comments: usecase.NewCommentService(store, log),
		Files:    usecase.NewFileService(store, files, log),
		Hub:      h,
		Tokens:   auth.NewJWTManager(cfg.JWT.Secret),
		Health:   store,
		Logger:   log,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	grpcServer := grpcapi.NewGRPCServer(log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.Run(gctx)
	})
	g.Go(func() error {
		grpcServer.WatchHealth(gctx, store, healthInterval)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Start(cfg.GRPC.Addr); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if cfg.RabbitMQ.URL != "" {
		auditWorker := worker.NewAuditWorker(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, store.Audits(), log)
		g.Go(func() error {
			return auditWorker.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.Stop()
		h.CloseAll()
		if stopErr := runner.Stop(shutdownCtx); stopErr != nil {
			log.Warn().Err(stopErr).Msg("runner did not drain in time")
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.NewStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Storage.SQLitePath).Msg("using sqlite store")
		return store, func() { _ = store.Close() }, nil
	default:
		if err := runMigrations(cfg.Postgres.URL()); err != nil {
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		pg, err := client.NewPostgresClient(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("host", cfg.Postgres.Host).Msg("connected to postgres")
		return repository.NewPostgresStore(pg.Pool), pg.Close, nil
	}
}

func runMigrations(dbURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func openCache(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (cache.TaskCache, func()) {
	if cfg.Addr == "" {
		return cache.NoopTaskCache{}, func() {}
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, task cache disabled")
		return cache.NoopTaskCache{}, func() {}
	}
	return cache.NewRedisTaskCache(rdb, cfg.TTL), func() { _ = rdb.Close() }
}

func openAuditPublisher(cfg config.RabbitMQConfig, log zerolog.Logger) client.AuditPublisher {
	if cfg.URL == "" {
		log.Info().Msg("RabbitMQ is not configured, audit feed is disabled")
		return client.NoopAuditPublisher{}
	}
	publisher, err := client.NewRabbitMQClient(cfg.URL, cfg.Queue, log)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable, audit feed is disabled")
		return client.NoopAuditPublisher{}
	}
	return publisher
}
