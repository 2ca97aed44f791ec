package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusarena/arena-system/cache"
	"github.com/campusarena/arena-system/config"
	"github.com/campusarena/arena-system/db"
	"github.com/campusarena/arena-system/events"
	"github.com/campusarena/arena-system/handlers"
	"github.com/campusarena/arena-system/live"
	"github.com/campusarena/arena-system/repositories"
	api "github.com/campusarena/arena-system/routes"
	"github.com/campusarena/arena-system/services"
	"github.com/campusarena/arena-system/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("remainder_policy", string(cfg.RemainderPolicy)),
		slog.Int("default_team_lives", cfg.DefaultTeamLives),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	txRunner := db.NewTxRunner(dbConn)

	// Кэш: без REDIS_URL работаем без инвалидации.
	var invalidator cache.Invalidator = cache.NoopInvalidator{}
	if cfg.RedisURL != "" {
		invalidator, err = cache.NewRedisInvalidator(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("redis cache invalidator initialized")
	}

	// Шина событий: без NATS_URL события никуда не публикуются.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		publisher, err = events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("NATS publisher initialized")
	}
	defer publisher.Close()

	// Архив отчётов о расчётах (Cloudflare R2). Необязателен.
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	stakeRepo := repositories.NewPostgresStakeRepository(dbConn)
	transactionRepo := repositories.NewPostgresTransactionRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	ledgerService := services.NewLedgerService(txRunner, userRepo, transactionRepo)
	bracketService := services.NewBracketService(teamRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	eventService := services.NewEventService(eventRepo)

	matchService := services.NewMatchService(
		txRunner,
		matchRepo,
		teamRepo,
		eventRepo,
		stakeRepo,
		notificationRepo,
		ledgerService,
		invalidator,
		publisher,
		wsHub,
		logger,
	)

	stakeService := services.NewStakeService(
		txRunner,
		matchRepo,
		stakeRepo,
		ledgerService,
		invalidator,
		logger,
	)

	settlementService := services.NewSettlementService(
		txRunner,
		matchRepo,
		stakeRepo,
		notificationRepo,
		ledgerService,
		bracketService,
		cfg.RemainderPolicy,
		invalidator,
		publisher,
		wsHub,
		uploader,
		logger,
	)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	matchHandler := handlers.NewMatchHandler(matchService, settlementService, stakeService)
	stakeHandler := handlers.NewStakeHandler(stakeService)
	walletHandler := handlers.NewWalletHandler(ledgerService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	eventHandler := handlers.NewEventHandler(eventService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		matchHandler,
		stakeHandler,
		walletHandler,
		notificationHandler,
		eventHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
