package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/booking-api/pkg/messaging"
)

func newTestBroker(t *testing.T) messaging.Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := zerolog.Nop()
	broker, err := NewRedisBroker(Config{Addr: mr.Addr()}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	return broker
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	broker := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := broker.Subscribe(ctx, "appointments")
	require.NoError(t, err)

	event := messaging.Message{
		Type:    "appointment.booked",
		Payload: map[string]interface{}{"date": "2026-09-01"},
	}

	// Pub/sub drops messages sent before the subscription registers, so
	// publish until one lands.
	var payload []byte
	require.Eventually(t, func() bool {
		require.NoError(t, broker.Publish(ctx, "appointments", event))
		select {
		case p := <-msgs:
			payload = p
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	var got messaging.Message
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "appointment.booked", got.Type)
}

func TestSubscribeStopsOnContextCancel(t *testing.T) {
	broker := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := broker.Subscribe(ctx, "appointments")
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
}

func TestSubscribeStopsWhenClientCloses(t *testing.T) {
	broker := newTestBroker(t)

	msgs, err := broker.Subscribe(context.Background(), "appointments")
	require.NoError(t, err)

	require.NoError(t, broker.Close())

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("subscription kept running after the client closed")
	}
}
