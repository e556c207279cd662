// Package events publishes bid lifecycle events to RabbitMQ
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
)

const contentTypeJSON = "application/json"

// Broker is the publishing side of the RabbitMQ client
type Broker interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// RabbitPublisher encodes bid events as JSON and hands them to the broker
type RabbitPublisher struct {
	broker Broker
}

func NewRabbitPublisher(broker Broker) *RabbitPublisher {
	return &RabbitPublisher{broker: broker}
}

func (p *RabbitPublisher) PublishBidPlaced(ctx context.Context, event domain.BidPlacedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal bid event: %w", err)
	}

	if err := p.broker.PublishWithRetry(ctx, body, contentTypeJSON); err != nil {
		return fmt.Errorf("failed to publish bid event: %w", err)
	}
	return nil
}
