package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quick-chat/domain/chat"
	"quick-chat/domain/event"
)

func TestWsSink_Consume_And_Drain(t *testing.T) {
	req := require.New(t)
	s := NewWsSink(slog.Default(), 4)

	evt := event.NewMessage{Message: chat.Message{Text: "hello"}}

	// When the broker pushes an event
	req.NoError(s.Consume(context.Background(), evt))

	// Then the write loop can drain it
	select {
	case got := <-s.Events():
		req.Equal(evt, got)
	case <-time.After(100 * time.Millisecond):
		req.Fail("event should be available to the write loop")
	}
}

func TestWsSink_Consume_Full_Buffer_Honors_Context(t *testing.T) {
	req := require.New(t)
	s := NewWsSink(slog.Default(), 1)

	evt := event.NewMessage{Message: chat.Message{Text: "hello"}}
	req.NoError(s.Consume(context.Background(), evt))

	// Given nobody drains the buffer
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Then a push on the full buffer fails at the deadline instead of blocking
	err := s.Consume(ctx, evt)
	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestWsSink_Consume_After_Close(t *testing.T) {
	req := require.New(t)
	s := NewWsSink(slog.Default(), 1)

	s.Close()
	// Double close is expected from the transport teardown path
	s.Close()

	err := s.Consume(context.Background(), event.NewMessage{})
	req.Error(err)
}
