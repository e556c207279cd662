package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/bootstrap"
	"github.com/cuongbtq/jobmarket-be/internal/config"
	"github.com/cuongbtq/jobmarket-be/internal/ledger"
	"github.com/cuongbtq/jobmarket-be/internal/worker"
	"github.com/cuongbtq/jobmarket-be/shared/rabbitmq"
	"github.com/joho/godotenv"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	workerID := cfg.Worker.ID
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("bid-worker-%s", hostname)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker_id", workerID),
	)

	st, err := bootstrap.OpenStore(context.Background(), cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	appLogger.Info("Store ready")

	rabbitClient, err := rabbitmq.NewClient(bootstrap.RabbitMQConfig(&cfg.RabbitMQ), appLogger.Logger)
	if err != nil {
		st.Close()
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// The worker never publishes, so the ledger gets no publisher
	reconciler := ledger.NewService(st.Bids(), st.Jobs(), nil, appLogger.Component("ledger"))

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:      appLogger.Component("worker"),
		Reconciler:  reconciler,
		Broker:      rabbitClient,
		WorkerID:    workerID,
		QueueName:   cfg.RabbitMQ.Queue.Name,
		Concurrency: cfg.Worker.Concurrency,
		JobTimeout:  cfg.Worker.JobTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if err := st.Close(); err != nil {
			appLogger.Error("Failed to close store", slog.Any("error", err))
		}
		rabbitClient.Close()
	}()

	appLogger.Info("Worker service started")

	// Start blocks until a signal arrives or the broker drops the consumer
	runErr := workerInstance.Start(ctx)
	if runErr != nil {
		appLogger.Error("Worker stopped consuming", slog.Any("error", runErr))
	} else {
		appLogger.Info("Received shutdown signal")
	}
	stop()

	stopped := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	return runErr
}
