// Package bootstrap builds the runtime dependencies shared by the API and
// worker services from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/config"
	"github.com/cuongbtq/jobmarket-be/internal/store"
	"github.com/cuongbtq/jobmarket-be/internal/store/memory"
	mongostore "github.com/cuongbtq/jobmarket-be/internal/store/mongo"
	pgstore "github.com/cuongbtq/jobmarket-be/internal/store/postgres"
	"github.com/cuongbtq/jobmarket-be/shared/logger"
	"github.com/cuongbtq/jobmarket-be/shared/mongodb"
	"github.com/cuongbtq/jobmarket-be/shared/postgresql"
	"github.com/cuongbtq/jobmarket-be/shared/rabbitmq"
)

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// OpenStore connects the backend selected by database.driver
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pgConfig := PostgresConfig(&cfg.Database)

		client, err := postgresql.NewClient(pgConfig, logger)
		if err != nil {
			return nil, err
		}

		if cfg.Database.AutoMigrate {
			if err := pgstore.Migrate(pgConfig.URL(), logger); err != nil {
				client.Close()
				return nil, err
			}
		}

		return pgstore.New(client, logger), nil

	case config.DriverMongo:
		client, err := mongodb.NewClient(&mongodb.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}

		s := mongostore.New(client, logger)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
}

// PostgresConfig maps the database section onto the client configuration
func PostgresConfig(cfg *config.DatabaseConfig) *postgresql.Config {
	return &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// RabbitMQConfig maps the rabbitmq section onto the client configuration
func RabbitMQConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
	}
}
