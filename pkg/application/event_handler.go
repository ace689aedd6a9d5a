package application

import (
	"context"

	"github.com/mateusmacedo/go-busticket/pkg/domain"
)

type EventHandler[E domain.Event[T], T any] interface {
	Handle(ctx context.Context, event E) error
}

// EventBus publica eventos e entrega-os aos manipuladores registrados.
type EventBus[E domain.Event[D], D any] interface {
	RegisterHandler(eventName string, handler EventHandler[E, D])
	Publish(ctx context.Context, event E) error
	Close() error
}
