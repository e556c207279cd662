package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	appdomain "github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Start when the broker closes the delivery channel
var ErrDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// setupConsumer starts consuming the bid event queue under the worker id as consumer tag
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if w.broker == nil {
		return nil, fmt.Errorf("rabbitmq broker is nil")
	}

	deliveries, err := w.broker.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// parseDelivery decodes a bid.placed body into a worker message
func parseDelivery(delivery amqp.Delivery) (*domain.BidEventMessage, error) {
	var event appdomain.BidPlacedEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if event.JobID == "" {
		return nil, fmt.Errorf("%w: missing job_id", domain.ErrInvalidPayload)
	}

	return &domain.BidEventMessage{
		JobID:       event.JobID,
		BidID:       event.BidID,
		DeliveryTag: delivery.DeliveryTag,
		Redelivered: delivery.Redelivered,
		Acker:       delivery.Acknowledger,
	}, nil
}

// startMessageDispatcher feeds parsed deliveries to the pool until ctx is
// canceled or the broker closes the channel
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return ErrDeliveriesClosed
			}
			if !w.dispatch(ctx, delivery) {
				return nil
			}
		}
	}
}

// dispatch hands one delivery to the pool. It returns false when ctx ended
// first, after giving the delivery back to the broker.
func (w *Worker) dispatch(ctx context.Context, delivery amqp.Delivery) bool {
	msg, err := parseDelivery(delivery)
	if err != nil {
		w.logger.Error("Dropping malformed bid event",
			slog.String("error", err.Error()),
			slog.String("body", string(delivery.Body)),
		)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK malformed message", slog.String("error", nackErr.Error()))
		}
		return true
	}

	select {
	case w.jobsChan <- msg:
		return true
	case <-ctx.Done():
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			w.logger.Error("Failed to requeue message on shutdown", slog.String("error", nackErr.Error()))
		}
		return false
	}
}
