package infrastructure

import (
	"github.com/google/uuid"
)

// GenerateUUID é o gerador padrão de request IDs.
func GenerateUUID() string {
	return uuid.New().String()
}
