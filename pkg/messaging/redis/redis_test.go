package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *RedisBroker {
	t.Helper()

	srv := miniredis.RunT(t)
	broker, err := NewRedisBroker(Config{URL: "redis://" + srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	return broker.(*RedisBroker)
}

func TestNewRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not-a-url"})
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	broker := newTestBroker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := broker.Subscribe(ctx, "appointment.created")
	require.NoError(t, err)

	payload := map[string]string{"appointment_id": "a-1", "slot": "10:00"}

	// The subscription is established lazily, so publish until the
	// message lands.
	done := make(chan []byte, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if ok {
					done <- msg
				}
				return
			}
		}
	}()

	var received []byte
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for message")
		case received = <-done:
			break loop
		case <-ticker.C:
			require.NoError(t, broker.Publish(ctx, "appointment.created", payload))
		}
	}

	var got map[string]string
	require.NoError(t, json.Unmarshal(received, &got))
	assert.Equal(t, payload, got)
}

func TestPublishRawPayload(t *testing.T) {
	broker := newTestBroker(t)

	// Outbox payloads arrive pre-encoded; publishing must not double
	// encode them.
	raw := json.RawMessage(`{"recipient_id":"r-1"}`)
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(data))

	require.NoError(t, broker.Publish(context.Background(), "appointment.updated", raw))
}
