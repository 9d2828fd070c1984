package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notificationRelay/internal/config"
	"notificationRelay/internal/modules/notifications/application/handler"
	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/application/usecase"
	"notificationRelay/internal/modules/notifications/infrastructure"
	transport "notificationRelay/internal/modules/notifications/interface"
	"notificationRelay/internal/platform/broker"
	"notificationRelay/internal/platform/storage"
	"notificationRelay/internal/shared/auth"
	"notificationRelay/internal/shared/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: true,
		Directory: cfg.Logging.Directory,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.Any("topics", cfg.Kafka.Topics()), slog.Int("batchSize", cfg.Kafka.BatchSize))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("notification relay stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := openNotificationStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	tokenStore, closeTokens, err := openTokenStore(ctx, cfg.Redis, cfg.Stream.TokenTTL)
	if err != nil {
		return err
	}
	defer closeTokens()

	inspector, err := auth.NewInspector(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)
	if err != nil {
		return err
	}
	if !cfg.Security.Verifying() {
		slog.Warn("credential signatures are not verified; an upstream gateway must authenticate callers")
	}

	registry := infrastructure.NewSubscriptionRegistry()
	tokens := infrastructure.NewTokenExchange(tokenStore, cfg.Stream.TokenTTL)

	// Use cases
	deliveryUC := usecase.NewDeliveryUseCase(store, registry)
	notificationsUC := usecase.NewNotificationsUseCase(store, inspector, cfg.Security.AdminRole)
	subscribeUC := usecase.NewSubscribeUseCase(inspector, tokens, registry)

	// Topic decoders
	topics := infrastructure.NewTopicRegistry(deliveryUC)
	topics.Register(handler.NewOfferHandler(cfg.Kafka.OfferTopic))
	topics.Register(handler.NewExperienceHandler(cfg.Kafka.ExperienceTopic))

	consumerCtx, cancelConsumers := context.WithCancel(ctx)
	defer cancelConsumers()
	consumers := broker.StartKafkaConsumers(consumerCtx, topics, broker.Settings{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}, topics.Topics())

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	transport.Register(e, notificationsUC, subscribeUC, cfg.Stream.Heartbeat)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			cancelConsumers()
			consumers.Wait()
			return fmt.Errorf("http server: %w", err)
		}
	}

	cancelConsumers()
	// Shutdown does not cancel request contexts; completing the channels ends open streams.
	slog.Info("closing live streams", slog.Int("channels", registry.Len()))
	registry.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", slog.Any("error", err))
		_ = e.Close()
	}
	consumers.Wait()
	slog.Info("shutdown complete")
	return nil
}

func openNotificationStore(ctx context.Context, cfg config.DatabaseConfig) (port.NotificationStore, func(), error) {
	if cfg.URL == "" {
		slog.Warn("DATABASE_URL not set; notifications are kept in memory")
		return infrastructure.NewMemoryNotificationStore(), func() {}, nil
	}
	pool, err := storage.NewPostgresPool(ctx, storage.PostgresConfig{URL: cfg.URL, MaxConns: int32(cfg.MaxConns)})
	if err != nil {
		return nil, nil, err
	}
	store := infrastructure.NewPostgresNotificationStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func openTokenStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (port.TokenStore, func(), error) {
	if cfg.Addr == "" {
		store := infrastructure.NewMemoryTokenStore()
		sweepCtx, cancel := context.WithCancel(ctx)
		go store.RunSweeper(sweepCtx, sweepInterval(ttl))
		return store, cancel, nil
	}
	client, err := storage.NewRedisClient(ctx, storage.RedisConfig{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		return nil, nil, err
	}
	return infrastructure.NewRedisTokenStore(client), func() { _ = client.Close() }, nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}
