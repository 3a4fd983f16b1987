package idgen

import (
	"github.com/google/uuid"
)

// New generates a unique request-scoped ID
func New() string {
	return uuid.New().String()
}
