package domain

// Event representa um evento no sistema.
type Event[T any] interface {
	EventName() string
	Payload() T
}

type dynamicEvent[T any] struct {
	eventName string
	payload   T
}

func (e dynamicEvent[T]) EventName() string {
	return e.eventName
}

func (e dynamicEvent[T]) Payload() T {
	return e.payload
}

// NewEvent cria um evento a partir de um nome e de um payload já decodificado.
func NewEvent[T any](eventName string, payload T) Event[T] {
	return dynamicEvent[T]{eventName: eventName, payload: payload}
}
