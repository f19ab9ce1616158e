package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherDeliversToSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var seen []string
	d.Subscribe(EventMessageSent, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventMessageSent, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		t.Fatal("unrelated handler invoked")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventMessageSent, 1, MessageSentPayload{MessageID: 7}))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:message_sent", "second:message_sent"}, seen)
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	calls := 0
	d.Subscribe(EventPasswordChanged, func(context.Context, Event) error {
		calls++
		return errors.New("sink unavailable")
	})
	d.Subscribe(EventPasswordChanged, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventPasswordChanged, 3, PasswordChangedPayload{UserID: 3}))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event handler failed", logs.All()[0].Message)
}

func TestNewEventStampsIdentity(t *testing.T) {
	a := NewEvent(EventUserRegistered, 1, nil)
	b := NewEvent(EventUserRegistered, 1, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}
