//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"quick-chat/domain/chat"
	"quick-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one client's end of the outbound event path.
// Consume must not block longer than the context allows; a returned error
// means the underlying transport is gone.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry maps a user identity to at most one live EventSink.
type IRegistry interface {
	Register(id chat.UserID, sink EventSink)
	Deregister(id chat.UserID)
	Lookup(id chat.UserID) (EventSink, bool)
	Snapshot() []chat.UserID
}

// IBroker fans out presence changes and attempts real-time delivery of
// freshly persisted messages.
type IBroker interface {
	OnConnectionOpened(ctx context.Context, id chat.UserID, sink EventSink)
	OnConnectionClosed(ctx context.Context, id chat.UserID)
	Deliver(ctx context.Context, msg chat.Message) chat.DeliveryOutcome
}
