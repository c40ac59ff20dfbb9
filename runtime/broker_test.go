package runtime

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"quick-chat/domain/chat"
	"quick-chat/domain/event"
	"quick-chat/mocks"
	"quick-chat/observability"
)

const deliveryTimeout = 100 * time.Millisecond

func newTestBroker(registry *Registry) *Broker {
	log := slog.Default()
	return NewBroker(log, registry, observability.NewMonitoringManager(log), deliveryTimeout)
}

func TestBroker_Deliver_To_Online_Receiver(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	broker := newTestBroker(registry)
	bob := chat.UserID("bob")
	msg := chat.Message{SenderID: "alice", ReceiverID: bob, Text: "hello"}

	// Given bob is connected
	sink := mocks.NewMockEventSink(ctrl)
	// Presence broadcast on open plus the message push itself
	sink.EXPECT().Consume(gomock.Any(), event.OnlineSetChanged{Online: []chat.UserID{bob}}).Return(nil)
	sink.EXPECT().Consume(gomock.Any(), event.NewMessage{Message: msg}).Return(nil)
	broker.OnConnectionOpened(context.Background(), bob, sink)

	// When a message for bob arrives
	outcome := broker.Deliver(context.Background(), msg)

	// Then it is pushed in real time
	req.Equal(chat.Delivered, outcome)
}

func TestBroker_Deliver_Buffers_For_Offline_Receiver(t *testing.T) {
	req := require.New(t)

	registry := NewRegistry()
	broker := newTestBroker(registry)

	// Given bob has no live connection
	msg := chat.Message{SenderID: "alice", ReceiverID: "bob", Text: "hello"}

	// When a message for bob arrives
	outcome := broker.Deliver(context.Background(), msg)

	// Then nothing is pushed and the outcome reports buffering
	req.Equal(chat.Buffered, outcome)
}

func TestBroker_Deliver_Push_Failure_Deregisters(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	broker := newTestBroker(registry)
	bob := chat.UserID("bob")
	msg := chat.Message{SenderID: "alice", ReceiverID: bob, Text: "hello"}

	// Given bob's transport is already gone
	sink := mocks.NewMockEventSink(ctrl)
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.New("connection reset")).AnyTimes()
	registry.Register(bob, sink)

	// When a message for bob arrives
	outcome := broker.Deliver(context.Background(), msg)

	// Then the message is buffered and the stale entry is cleaned up
	req.Equal(chat.Buffered, outcome)
	_, ok := registry.Lookup(bob)
	req.False(ok)
	req.Empty(registry.Snapshot())
}

func TestBroker_Presence_Broadcast_On_Open_And_Close(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	broker := newTestBroker(registry)
	alice := chat.UserID("alice")
	bob := chat.UserID("bob")

	var aliceSets [][]chat.UserID
	aliceSink := mocks.NewMockEventSink(ctrl)
	aliceSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, e event.DomainEvent) error {
			if changed, ok := e.(event.OnlineSetChanged); ok {
				aliceSets = append(aliceSets, changed.Online)
			}
			return nil
		}).
		AnyTimes()

	bobSink := mocks.NewMockEventSink(ctrl)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	// When alice opens, then bob opens, then bob closes
	broker.OnConnectionOpened(context.Background(), alice, aliceSink)
	broker.OnConnectionOpened(context.Background(), bob, bobSink)
	broker.OnConnectionClosed(context.Background(), bob)

	// Then alice observed each transition of the online set
	req.Len(aliceSets, 3)
	req.ElementsMatch([]chat.UserID{alice}, aliceSets[0])
	req.ElementsMatch([]chat.UserID{alice, bob}, aliceSets[1])
	req.ElementsMatch([]chat.UserID{alice}, aliceSets[2])
}

func TestBroker_Broadcast_Rebroadcasts_After_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	broker := newTestBroker(registry)
	alice := chat.UserID("alice")
	dead := chat.UserID("dead")

	var aliceSets [][]chat.UserID
	aliceSink := mocks.NewMockEventSink(ctrl)
	aliceSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, e event.DomainEvent) error {
			if changed, ok := e.(event.OnlineSetChanged); ok {
				aliceSets = append(aliceSets, changed.Online)
			}
			return nil
		}).
		AnyTimes()

	deadSink := mocks.NewMockEventSink(ctrl)
	deadSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.New("broken pipe")).AnyTimes()

	registry.Register(alice, aliceSink)
	registry.Register(dead, deadSink)

	// When a presence change hits the dead connection
	broker.OnConnectionClosed(context.Background(), "someone-else")

	// Then the dead entry is pruned and alice ends up with the corrected set
	_, ok := registry.Lookup(dead)
	req.False(ok)
	req.NotEmpty(aliceSets)
	req.ElementsMatch([]chat.UserID{alice}, aliceSets[len(aliceSets)-1])
}
