//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need for
// manual naming in the Worker interface.
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

// Transport pushes one named event to one live connection.
// It returns errors.ErrConnectionGone when the connection no longer exists.
type Transport interface {
	Send(ctx context.Context, connID domain.ConnectionID, eventName string, payload any) error
}

// IRegistry tracks live connections and the groups they joined.
type IRegistry interface {
	Connect(connID domain.ConnectionID, userID uuid.UUID)
	Disconnect(connID domain.ConnectionID)
	Join(connID domain.ConnectionID, group domain.GroupID) error
	Leave(connID domain.ConnectionID, group domain.GroupID) error
	MembersOf(group domain.GroupID) []domain.ConnectionID
	Lookup(connID domain.ConnectionID) (domain.Connection, bool)
	ConnectionsOf(userID uuid.UUID) []domain.ConnectionID
	Count() int
}

// IDispatcher hands domain events to the registered event handlers.
type IDispatcher interface {
	Register(t event.Type, handler event.Handler)
	Dispatch(ctx context.Context, evt event.Event)
}
