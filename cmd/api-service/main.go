package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/jobmarket-be/internal/api/handler"
	"github.com/cuongbtq/jobmarket-be/internal/api/ratelimit"
	"github.com/cuongbtq/jobmarket-be/internal/api/router"
	"github.com/cuongbtq/jobmarket-be/internal/auth"
	"github.com/cuongbtq/jobmarket-be/internal/bootstrap"
	"github.com/cuongbtq/jobmarket-be/internal/catalog"
	"github.com/cuongbtq/jobmarket-be/internal/config"
	"github.com/cuongbtq/jobmarket-be/internal/events"
	"github.com/cuongbtq/jobmarket-be/internal/ledger"
	"github.com/cuongbtq/jobmarket-be/shared/rabbitmq"
	"github.com/cuongbtq/jobmarket-be/shared/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("database_driver", cfg.Database.Driver),
	)

	st, err := bootstrap.OpenStore(context.Background(), cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	appLogger.Info("Store ready")

	// Bid events are optional; without RabbitMQ the counter is only
	// maintained by the inline increment
	var publisher ledger.EventPublisher
	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = rabbitmq.NewClient(bootstrap.RabbitMQConfig(&cfg.RabbitMQ), appLogger.Logger)
		if err != nil {
			st.Close()
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		publisher = events.NewRabbitPublisher(rabbitClient)
		appLogger.Info("RabbitMQ connection established")
	}

	var bidLimiter router.Allower
	var redisClient *goredis.Client
	if cfg.RateLimit.Enabled {
		redisClient, err = redis.NewClient(&redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, appLogger.Logger)
		if err != nil {
			st.Close()
			if rabbitClient != nil {
				rabbitClient.Close()
			}
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		bidLimiter = ratelimit.NewLimiter(redisClient, "bids", cfg.RateLimit.BidsPerMinute)
		appLogger.Info("Bid rate limiting enabled",
			slog.Int("bids_per_minute", cfg.RateLimit.BidsPerMinute),
		)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	deps := &handler.Dependencies{
		Logger:  appLogger.Logger,
		Store:   st,
		Catalog: catalog.NewService(st.Jobs(), appLogger.Component("catalog")),
		Ledger:  ledger.NewService(st.Bids(), st.Jobs(), publisher, appLogger.Component("ledger")),
		Tokens:  auth.NewTokenService(cfg.Session.Secret, cfg.Session.TTL),
		Session: handler.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Production: cfg.IsProduction(),
		},
	}

	r := router.SetupRouter(deps, router.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		BidLimiter:     bidLimiter,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if err := st.Close(); err != nil {
			appLogger.Error("Failed to close store", slog.Any("error", err))
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}
