package rabbitmq

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_URI(t *testing.T) {
	cfg := &Config{Host: "mq", Port: 5672, User: "guest", Password: "guest"}

	uri := cfg.URI()
	assert.Equal(t, "amqp", uri.Scheme)
	assert.Equal(t, "/", uri.Vhost)

	parsed, err := amqp.ParseURI(uri.String())
	require.NoError(t, err)
	assert.Equal(t, "mq", parsed.Host)
	assert.Equal(t, 5672, parsed.Port)
	assert.Equal(t, "guest", parsed.Username)
	assert.Equal(t, "guest", parsed.Password)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		mult    float64
		attempt int
		want    time.Duration
	}{
		{name: "first attempt uses base", base: 50 * time.Millisecond, mult: 3, attempt: 0, want: 50 * time.Millisecond},
		{name: "grows by multiplier", base: 50 * time.Millisecond, mult: 3, attempt: 2, want: 450 * time.Millisecond},
		{name: "default base", mult: 2, attempt: 1, want: 200 * time.Millisecond},
		{name: "multiplier at or below one falls back", base: 10 * time.Millisecond, mult: 1, attempt: 3, want: 80 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backoff(tt.base, tt.mult, tt.attempt))
		})
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{config: &Config{}}

	_, err := c.Consume("worker-1")
	assert.ErrorIs(t, err, ErrNotConnected)

	err = c.PublishWithRetry(context.Background(), []byte(`{}`), "application/json")
	assert.ErrorIs(t, err, ErrNotConnected)
}
