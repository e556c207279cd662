package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	appdomain "github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcker struct {
	mu      sync.Mutex
	settled []settlement
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, ack: true})
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) snapshot() []settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]settlement(nil), a.settled...)
}

type fakeReconciler struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *fakeReconciler) ReconcileBidCount(_ context.Context, jobID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, jobID)
	return 1, r.err
}

type fakeBroker struct {
	deliveries chan amqp.Delivery
}

func (b *fakeBroker) Consume(string) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func newTestWorker(rec Reconciler, broker Broker) *Worker {
	return NewWorker(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Reconciler:  rec,
		Broker:      broker,
		WorkerID:    "test-worker",
		QueueName:   "bid_events",
		Concurrency: 2,
		JobTimeout:  time.Second,
	})
}

func TestParseDelivery(t *testing.T) {
	acker := &fakeAcker{}

	msg, err := parseDelivery(amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  7,
		Redelivered:  true,
		Body:         []byte(`{"bid_id":"B1","job_id":"J1","email":"f@x.com","placed_at":"2024-05-01T12:00:00Z"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "J1", msg.JobID)
	assert.Equal(t, "B1", msg.BidID)
	assert.Equal(t, uint64(7), msg.DeliveryTag)
	assert.True(t, msg.Redelivered)

	_, err = parseDelivery(amqp.Delivery{Body: []byte(`not json`)})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = parseDelivery(amqp.Delivery{Body: []byte(`{"bid_id":"B1"}`)})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestShouldRequeue(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transient", err: domain.Transient("reconcile", errors.New("timeout")), want: true},
		{name: "wrapped transient", err: fmt.Errorf("outer: %w", domain.Transient("reconcile", errors.New("x"))), want: true},
		{name: "invalid payload", err: domain.ErrInvalidPayload, want: false},
		{name: "max retries", err: fmt.Errorf("%w: boom", domain.ErrMaxRetriesExceeded), want: false},
		{name: "unknown", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRequeue(tt.err))
		})
	}
}

func TestHandleMessage(t *testing.T) {
	storeDown := fmt.Errorf("%w: count: connection reset", appdomain.ErrStoreFailure)

	tests := []struct {
		name        string
		reconcile   error
		redelivered bool
		want        settlement
	}{
		{name: "success acks", want: settlement{tag: 1, ack: true}},
		{name: "deleted job acks", reconcile: fmt.Errorf("job J1: %w", appdomain.ErrNotFound), want: settlement{tag: 1, ack: true}},
		{name: "store failure requeues", reconcile: storeDown, want: settlement{tag: 1, requeue: true}},
		{name: "second store failure drops", reconcile: storeDown, redelivered: true, want: settlement{tag: 1}},
		{name: "unknown error drops", reconcile: errors.New("boom"), want: settlement{tag: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconciler{err: tt.reconcile}
			acker := &fakeAcker{}
			w := newTestWorker(rec, nil)

			w.handleMessage(context.Background(), "test-worker-0", &domain.BidEventMessage{
				JobID:       "J1",
				DeliveryTag: 1,
				Redelivered: tt.redelivered,
				Acker:       acker,
			})

			assert.Equal(t, []string{"J1"}, rec.calls)
			assert.Equal(t, []settlement{tt.want}, acker.snapshot())
		})
	}
}

func TestWorker_ConsumesUntilCanceled(t *testing.T) {
	rec := &fakeReconciler{}
	acker := &fakeAcker{}
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 3)}
	w := newTestWorker(rec, broker)

	broker.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte(`{"job_id":"J1"}`)}
	broker.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte(`{{`)}
	broker.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: []byte(`{"job_id":"J2"}`)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return len(acker.snapshot()) == 3 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	w.Stop()

	assert.ElementsMatch(t, []settlement{
		{tag: 1, ack: true},
		{tag: 2},
		{tag: 3, ack: true},
	}, acker.snapshot())
	assert.ElementsMatch(t, []string{"J1", "J2"}, rec.calls)
}

func TestWorker_NilBroker(t *testing.T) {
	err := newTestWorker(&fakeReconciler{}, nil).Start(context.Background())
	assert.Error(t, err)
}

func TestWorker_DeliveryChannelClosed(t *testing.T) {
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery)}
	close(broker.deliveries)
	w := newTestWorker(&fakeReconciler{}, broker)

	err := w.Start(context.Background())
	assert.ErrorIs(t, err, ErrDeliveriesClosed)
	w.Stop()
}

func TestProcessEvent_KeepsCause(t *testing.T) {
	storeDown := fmt.Errorf("%w: count: connection reset", appdomain.ErrStoreFailure)
	w := newTestWorker(&fakeReconciler{err: storeDown}, nil)

	err := w.processEvent(context.Background(), &domain.BidEventMessage{JobID: "J1"})
	assert.True(t, domain.IsTransient(err))
	assert.ErrorIs(t, err, appdomain.ErrStoreFailure)
}
