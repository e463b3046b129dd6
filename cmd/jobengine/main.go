// Command jobengine runs the scheduler service: the scheduling loop, its
// worker pool, and the HTTP API in internal/api, all wired against either
// the in-memory store or a Postgres-backed one depending on configuration.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/minisource/jobengine/config"
	"github.com/minisource/jobengine/internal/api"
	"github.com/minisource/jobengine/internal/engine"
	"github.com/minisource/jobengine/internal/executor"
	"github.com/minisource/jobengine/internal/history"
	"github.com/minisource/jobengine/internal/lock"
	"github.com/minisource/jobengine/internal/logging"
	"github.com/minisource/jobengine/internal/store"
	"github.com/minisource/jobengine/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty}, os.Stdout)
	logger.Info().Str("version", version.String()).Msg("starting job engine")

	jobStore, recorder, closeStorage := buildStorage(cfg, logger)
	defer closeStorage()

	facade := engine.New(engine.Options{
		Name:    "jobengine",
		Config:  cfg.Scheduler,
		Store:   jobStore,
		Factory: executor.NewJobFactory(30 * time.Second),
		Log:     &logger,
	})
	if err := engine.Register(facade); err != nil {
		logger.Warn().Err(err).Msg("scheduler name already registered")
	}
	_ = facade.AddJobListener(history.NewListener(recorder))

	ctx := context.Background()
	if err := facade.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	handlers := api.NewHandlers(facade, recorder)
	app := fiber.New(fiber.Config{
		AppName:      "Job Engine",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	})
	api.SetupRouter(app, handlers)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info().Str("addr", addr).Msg("starting job engine HTTP server")
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down job engine")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := facade.Shutdown(shutdownCtx, true); err != nil {
		logger.Error().Err(err).Msg("scheduler shutdown error")
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("job engine stopped")
}

// buildStorage selects the in-memory store (default, no POSTGRES_HOST
// configured) or the Postgres/Redis-backed one, returning a JobStore, an
// execution Recorder, and a cleanup func.
func buildStorage(cfg *config.Config, logger logging.Logger) (store.JobStore, history.Recorder, func()) {
	if os.Getenv("POSTGRES_HOST") == "" && cfg.Postgres.Host == "localhost" && os.Getenv("JOBENGINE_USE_POSTGRES") == "" {
		logger.Info().Msg("using in-memory job store (set JOBENGINE_USE_POSTGRES=1 for Postgres)")
		return store.NewInMemoryStore(), history.NewInMemoryRecorder(), func() {}
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password,
		cfg.Postgres.DBName, cfg.Postgres.SSLMode, cfg.Scheduler.Timezone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Postgres.MaxLifetimeMinutes) * time.Minute)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	lease := lock.NewLease(redisClient, "trigger-acquisition", workerID,
		time.Duration(cfg.Scheduler.LockTTLSeconds)*time.Second)

	pgStore := store.NewPostgresStore(db, lease)
	if err := pgStore.AutoMigrate(); err != nil {
		log.Fatalf("failed to auto-migrate store schema: %v", err)
	}
	gormRecorder := history.NewGormRecorder(db)
	if err := gormRecorder.AutoMigrate(); err != nil {
		log.Fatalf("failed to auto-migrate history schema: %v", err)
	}

	return pgStore, gormRecorder, func() {
		_ = redisClient.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
