package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultPublishRetries = 3
	defaultRetryDelay     = 100 * time.Millisecond
	defaultBackoffMult    = 2.0
)

// ErrNotConnected is returned by Publish and Consume once the channel is gone
var ErrNotConnected = errors.New("not connected to RabbitMQ")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
	PrefetchCount      int
}

// URI returns the broker address; an empty vhost means the default "/"
func (c *Config) URI() amqp.URI {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}
}

// Client owns one connection and one channel bound to the configured
// exchange and queue
type Client struct {
	config *Config
	logger *slog.Logger

	mu        sync.RWMutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
}

// NewClient dials the broker, declares the topology and starts watching the channel
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	c := &Client{config: config, logger: logger}

	conn, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = ch
	c.connected = true

	go c.watch(ch.NotifyClose(make(chan *amqp.Error, 1)))

	logger.Info("RabbitMQ client initialized",
		slog.String("exchange", config.ExchangeName),
		slog.String("queue", config.QueueName),
		slog.String("routing_key", config.RoutingKey),
	)

	return c, nil
}

// dial connects with a fixed pause between attempts
func (c *Client) dial() (*amqp.Connection, error) {
	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	uri := c.config.URI()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := amqp.DialConfig(uri.String(), amqpConfig)
		if err == nil {
			c.logger.Info("Connected to RabbitMQ",
				slog.String("host", uri.Host),
				slog.Int("attempt", attempt),
			)
			return conn, nil
		}

		lastErr = err
		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

// declareTopology declares the exchange and queue and binds them with the routing key
func (c *Client) declareTopology(ch *amqp.Channel) error {
	cfg := c.config

	if err := ch.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType, cfg.ExchangeDurable, cfg.ExchangeAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, cfg.QueueDurable, cfg.QueueAutoDelete, cfg.QueueExclusive, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	return nil
}

// watch marks the client disconnected when the broker closes the channel.
// A nil error means the close was requested through Close.
func (c *Client) watch(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	if ok && amqpErr != nil {
		c.logger.Error("RabbitMQ channel closed unexpectedly",
			slog.Int("code", amqpErr.Code),
			slog.String("reason", amqpErr.Reason),
		)
	}
}

// Consume starts a manually acknowledged consumer on the configured queue
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	ch, err := c.activeChannel()
	if err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(c.config.QueueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Started consuming messages from RabbitMQ",
		slog.String("queue", c.config.QueueName),
		slog.String("consumer_tag", consumerTag),
	)

	return deliveries, nil
}

// PublishWithRetry publishes a persistent message, backing off exponentially between attempts
func (c *Client) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	ch, err := c.activeChannel()
	if err != nil {
		return err
	}

	retries := c.config.PublishRetries
	if retries <= 0 {
		retries = defaultPublishRetries
	}

	msg := amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  contentType,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		lastErr = ch.PublishWithContext(ctx, c.config.ExchangeName, c.config.RoutingKey, false, false, msg)
		if lastErr == nil {
			c.logger.Debug("Message published to RabbitMQ",
				slog.String("message_id", msg.MessageId),
				slog.Int("attempt", attempt+1),
				slog.Int("body_size", len(body)),
			)
			return nil
		}

		if attempt == retries {
			break
		}

		delay := backoff(c.config.PublishRetryDelay, c.config.PublishBackoffMult, attempt)
		c.logger.Warn("Failed to publish message to RabbitMQ, retrying",
			slog.String("message_id", msg.MessageId),
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_after", delay),
			slog.Any("error", lastErr),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("publish canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed to publish message after %d attempts: %w", retries+1, lastErr)
}

// backoff returns base * mult^attempt, substituting defaults for unset values
func backoff(base time.Duration, mult float64, attempt int) time.Duration {
	if base <= 0 {
		base = defaultRetryDelay
	}
	if mult <= 1 {
		mult = defaultBackoffMult
	}
	return time.Duration(float64(base) * math.Pow(mult, float64(attempt)))
}

func (c *Client) activeChannel() (*amqp.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.channel == nil {
		return nil, ErrNotConnected
	}
	return c.channel, nil
}

// Close closes the channel and then the connection
func (c *Client) Close() error {
	c.mu.Lock()
	c.connected = false
	ch, conn := c.channel, c.conn
	c.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel", slog.Any("error", err))
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection", slog.Any("error", err))
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed")
	return nil
}
