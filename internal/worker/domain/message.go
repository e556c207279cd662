package domain

import amqp "github.com/rabbitmq/amqp091-go"

// BidEventMessage is a bid.placed delivery handed to the worker pool
type BidEventMessage struct {
	JobID       string
	BidID       string
	DeliveryTag uint64
	Redelivered bool
	Acker       amqp.Acknowledger
}
