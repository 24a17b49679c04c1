package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact_form/internal/config"
	"contact_form/internal/domain"
	"contact_form/internal/handler"
	"contact_form/internal/middleware"
	"contact_form/internal/repository"
	"contact_form/internal/service"
	"contact_form/pkg/clock"
	"contact_form/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Правила полей и словарь спама
	rules, err := config.LoadFormRules(cfg.Form.RulesFile)
	if err != nil {
		appLogger.Fatal("Failed to load form rules", "error", err, "path", cfg.Form.RulesFile)
	}

	// Подключение к Redis (необязательно: без него окна хранятся в памяти)
	var rdb *redis.Client
	var storePing handler.Pinger
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established")
		storePing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Инициализация репозиториев
	repos := repository.NewRepositories(rdb, appLogger)

	// Почтовый relay
	mailRelay := service.NewMailRelayClient(cfg.Relay.URL, cfg.Relay.Timeout, cfg.Relay.HiddenFields)

	// Инициализация сервисов
	services := service.NewServices(repos, cfg, rules, mailRelay, clock.Real(), appLogger)

	// Инициализация middleware
	formTokenMiddleware := middleware.NewFormTokenMiddleware(services.FormSession, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit,
		domain.RateLimitRule{Limit: cfg.RateLimit.IPLimit, Window: cfg.RateLimit.IPWindow}, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, cfg, storePing, appLogger)

	// Настройка роутера
	router := handler.SetupRouter(handlers, formTokenMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Часы в канале Relay
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go services.Clock.Run(ctx, cfg.Form.ClockTickInterval)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}
