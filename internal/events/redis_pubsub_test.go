package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	sub := NewRedisSubscriber(client, zap.NewNop())
	require.NoError(t, sub.Subscribe(ctx, StreamBounty, func(e Event) { received <- e }))

	pub := NewRedisPublisher(client, zap.NewNop())
	require.NoError(t, pub.Publish(ctx, StreamBounty, Event{
		Type:    EventParticipationReviewed,
		Payload: map[string]any{"creator_address": "0xp1", "status": "approved"},
	}))

	select {
	case e := <-received:
		assert.Equal(t, EventParticipationReviewed, e.Type)
		assert.Equal(t, "0xp1", e.Recipient())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestRecipient(t *testing.T) {
	e := Event{Type: EventBountyCreated, Payload: map[string]any{"creator_address": "0xc"}}
	assert.Empty(t, e.Recipient(), "public events have no recipient")

	e = Event{Type: EventParticipationReviewed, Payload: map[string]any{}}
	assert.Empty(t, e.Recipient())
}
