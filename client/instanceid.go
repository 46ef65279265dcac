package client

import "github.com/google/uuid"

// NewInstanceID returns a unique instance identifier for callers that choose
// ids client-side instead of letting the host assign one.
func NewInstanceID() string {
	return uuid.NewString()
}
