package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random connection identifier.
func NewID() string {
	return "conn-" + uuid.NewString()
}

// NewSessionID returns a random guest session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
