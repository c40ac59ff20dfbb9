// Package sink bridges the broker's event push to one client's websocket
// write loop.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"quick-chat/domain/event"
)

// WsSink is the EventSink for a single websocket connection. The broker
// writes into a buffered channel and never touches the socket itself; the
// connection's write loop drains the channel. A full buffer or a closed
// sink makes Consume fail, which the broker treats as a severed transport.
type WsSink struct {
	log       *slog.Logger
	events    chan event.DomainEvent
	closed    chan struct{}
	closeOnce sync.Once
}

func NewWsSink(log *slog.Logger, bufferSize int) *WsSink {
	return &WsSink{
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
		closed: make(chan struct{}),
	}
}

// Consume hands the event to the write loop. It blocks at most until the
// context deadline so a slow client cannot stall the broker.
func (s *WsSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.closed:
		return fmt.Errorf("sink closed")
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-s.closed:
		return fmt.Errorf("sink closed")
	case <-ctx.Done():
		s.log.Debug("Event dropped, client too slow", "kind", e.Kind())
		return ctx.Err()
	}
}

// Events is drained by the websocket write loop.
func (s *WsSink) Events() <-chan event.DomainEvent {
	return s.events
}

// Close makes all pending and future Consume calls fail. Safe to call more
// than once; late close signals from the transport are expected.
func (s *WsSink) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}
