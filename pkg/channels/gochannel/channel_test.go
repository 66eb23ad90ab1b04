package gochannel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChannel_DeliversToSubscriber(t *testing.T) {
	pub, sub, err := CreateChannel(watermill.NopLogger{}, WithBuffer(2))
	require.NoError(t, err)

	defer func() { _ = pub.Close() }()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	messages, err := sub.Subscribe(ctx, "contact.event.received")
	require.NoError(t, err)

	published := make(chan error, 1)
	go func() {
		published <- pub.Publish("contact.event.received",
			message.NewMessage(watermill.NewUUID(), []byte(`{"contact_id":"C1"}`)),
			message.NewMessage(watermill.NewUUID(), []byte(`{"contact_id":"C2"}`)),
		)
	}()

	received := make([]string, 0, 2)

	for len(received) < 2 {
		select {
		case msg := <-messages:
			received = append(received, string(msg.Payload))
			msg.Ack()
		case <-ctx.Done():
			t.Fatal("timed out waiting for message")
		}
	}

	require.NoError(t, <-published)
	assert.ElementsMatch(t, []string{`{"contact_id":"C1"}`, `{"contact_id":"C2"}`}, received)
}

func TestWithBuffer_IgnoresNonPositive(t *testing.T) {
	cfg := config{buffer: DefaultBuffer}

	WithBuffer(0)(&cfg)
	WithBuffer(-5)(&cfg)
	assert.Equal(t, DefaultBuffer, cfg.buffer)

	WithBuffer(64)(&cfg)
	assert.Equal(t, 64, cfg.buffer)
}
