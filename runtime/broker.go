package runtime

import (
	"context"
	"log/slog"
	"time"

	"quick-chat/contract"
	"quick-chat/domain/chat"
	"quick-chat/domain/event"
	"quick-chat/observability"
)

// Broker turns registry changes into presence broadcasts and attempts the
// real-time push of freshly persisted messages.
//
// Every push happens outside the registry lock so one slow client cannot
// stall register/deregister for the others. A failed push is converted into
// a deregister of the offending identity, as if a close had been observed,
// which keeps the registry free of stale entries.
type Broker struct {
	log        *slog.Logger
	registry   contract.IRegistry
	monitoring *observability.MonitoringManager
	timeout    time.Duration
}

func NewBroker(log *slog.Logger, registry contract.IRegistry,
	monitoring *observability.MonitoringManager, timeout time.Duration) *Broker {
	return &Broker{log: log, registry: registry, monitoring: monitoring, timeout: timeout}
}

// OnConnectionOpened registers the sink and broadcasts the new online set to
// every live connection, including the one that just opened.
func (b *Broker) OnConnectionOpened(ctx context.Context, id chat.UserID, sink contract.EventSink) {
	b.registry.Register(id, sink)
	b.log.Info("Connection opened", "user_id", id)
	b.broadcastPresence(ctx)
}

// OnConnectionClosed deregisters the identity and broadcasts the shrunk
// online set to the remaining connections.
func (b *Broker) OnConnectionClosed(ctx context.Context, id chat.UserID) {
	b.registry.Deregister(id)
	b.log.Info("Connection closed", "user_id", id)
	b.broadcastPresence(ctx)
}

// Deliver pushes msg to the recipient's live connection if one exists.
// The message is already durably stored by the caller, so a Buffered outcome
// loses nothing: the recipient picks it up on the next conversation fetch.
// The broker performs no retry and no queueing of the push itself.
func (b *Broker) Deliver(ctx context.Context, msg chat.Message) chat.DeliveryOutcome {
	sink, ok := b.registry.Lookup(msg.ReceiverID)
	if !ok {
		b.monitoring.IncrBuffered()
		return chat.Buffered
	}

	if err := b.push(ctx, msg.ReceiverID, sink, event.NewMessage{Message: msg}); err != nil {
		// The transport died between lookup and push. Self-heal as if a close
		// had been observed and let the message surface through the store.
		b.broadcastPresence(ctx)
		b.monitoring.IncrBuffered()
		return chat.Buffered
	}
	b.monitoring.IncrDelivered()
	return chat.Delivered
}

// broadcastPresence sends the current online set to every live connection.
// Failures are isolated per connection: a dead sink is deregistered and the
// loop keeps going, so one severed transport never hides a presence change
// from the others.
func (b *Broker) broadcastPresence(ctx context.Context) {
	for {
		snapshot := b.registry.Snapshot()
		evt := event.OnlineSetChanged{Online: snapshot}

		failures := 0
		for _, id := range snapshot {
			sink, ok := b.registry.Lookup(id)
			if !ok {
				continue
			}
			if err := b.push(ctx, id, sink, evt); err != nil {
				failures++
			}
		}
		b.monitoring.IncrBroadcast()
		b.monitoring.UpdateOnline(len(snapshot))

		if failures == 0 {
			return
		}
		// Each failed push deregistered its identity, so the set we just sent
		// is already stale. Re-broadcast; the loop terminates because every
		// round with failures strictly shrinks the registry.
	}
}

// push writes one event to one sink under the delivery timeout. On failure
// the identity is deregistered so the registry self-heals against entries
// whose transport is already gone.
func (b *Broker) push(ctx context.Context, id chat.UserID, sink contract.EventSink, evt event.DomainEvent) error {
	pushCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := sink.Consume(pushCtx, evt); err != nil {
		b.log.Warn("Push failed, deregistering stale connection",
			"user_id", id,
			"kind", evt.Kind(),
			"error", err)
		b.registry.Deregister(id)
		b.monitoring.IncrPushFailure()
		return err
	}
	return nil
}
