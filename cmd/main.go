package main

import (
	"art-catalog-service/internal/api"
	"art-catalog-service/internal/config"
	"art-catalog-service/internal/entity"
	"art-catalog-service/internal/middleware"
	"art-catalog-service/internal/notifier"
	"art-catalog-service/internal/repository"
	"art-catalog-service/internal/service"
	"art-catalog-service/migrations"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func connectDB(ctx context.Context, cfg config.StoreConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < max(cfg.Retries, 1); i++ {
		db, err = sql.Open("mysql", cfg.DSN())
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				log.Info().Msgf("Connected to DB at %s:%s", cfg.Host, cfg.Port)
				return db, nil
			}
			db.Close()
		}
		log.Warn().Err(err).Msgf("Retry %d: failed to connect to DB at %s:%s", i+1, cfg.Host, cfg.Port)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to DB at %s:%s after retries: %w", cfg.Host, cfg.Port, err)
}

func newStore(ctx context.Context, cfg config.StoreConfig) (repository.RecordStore, func(), error) {
	if cfg.Backend == "memory" {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return repository.NewMemoryRepository(entity.KeyID, entity.Columns()...), func() {}, nil
	}

	db, err := connectDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := migrations.AutoMigrateProducts(ctx, db, 3); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return repository.NewRecordRepository(db), func() { db.Close() }, nil
}

func newRateLimiterStore(cfg *config.Config) (echomw.RateLimiterStore, func()) {
	if cfg.Redis.Addr == "" {
		return middleware.NewMemoryRateLimiterStore(cfg.RateLimit.Rate, cfg.RateLimit.Burst), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return middleware.NewRedisRateLimiterStore(rdb, cfg.RateLimit.Burst, cfg.RateLimit.Window), func() { rdb.Close() }
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == config.EnvLocal {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize record store")
	}
	defer closeStore()

	publisher, err := notifier.New(ctx, notifier.Options{
		Backend: cfg.Notify.Backend,
		Topic:   cfg.Notify.Topic,
		Brokers: cfg.Notify.BrokerURLs(),
		Region:  cfg.Notify.Region,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize notifier")
	}
	defer publisher.Close()

	limiterStore, closeLimiter := newRateLimiterStore(cfg)
	defer closeLimiter()

	// Initialize catalog service
	catalogService := service.NewCatalogService(store)
	catalogHandler := api.NewCatalogHandler(catalogService)
	notify := middleware.NewNotifier(publisher, 5*time.Second)

	// Initialize echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.BodyLimit(cfg.HTTP.BodyLimit))
	e.Use(middleware.CORS(cfg.HTTP.AllowOrigins))
	e.Use(middleware.RateLimit(limiterStore))
	e.Use(middleware.Auth(cfg.Auth.Secret))
	e.Use(notify.Middleware())

	// Routes
	catalogHandler.Register(e)

	// Start server
	go func() {
		log.Info().Msgf("Art catalog service starting on %s (store=%s, notify=%s)", cfg.HTTP.Addr, cfg.Store.Backend, cfg.Notify.Backend)
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}
	notify.Wait()

	log.Info().Msg("Art catalog service gracefully stopped")
}
