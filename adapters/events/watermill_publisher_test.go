package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishLoginRoundTrip(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := bus.Subscribe(ctx, TopicLogin)
	require.NoError(t, err)

	p := NewWatermillPublisher(bus)
	require.NoError(t, p.PublishLogin(ctx, "ABC123DEF456GHI", "sess-1"))

	select {
	case msg := <-messages:
		var event LoginEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "ABC123DEF456GHI", event.DSSN)
		assert.Equal(t, "sess-1", event.SessionID)
		assert.False(t, event.At.IsZero())
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("login event never arrived")
	}
}

func TestPublishChallengeResolved(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := bus.Subscribe(ctx, TopicChallengeResolved)
	require.NoError(t, err)

	p := NewWatermillPublisher(bus)
	require.NoError(t, p.PublishChallengeResolved(ctx, "ch-1", "approved"))

	select {
	case msg := <-messages:
		var event ChallengeResolvedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "ch-1", event.ChallengeID)
		assert.Equal(t, "approved", event.Status)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("challenge event never arrived")
	}
}
