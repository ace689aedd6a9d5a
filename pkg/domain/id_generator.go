package domain

// IDGenerator produz identificadores únicos, como os request IDs anexados ao contexto.
type IDGenerator[T any] func() T
