package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// NewRunID generates a random run ID.
func NewRunID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp if random generation fails
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}

// NewRunContext returns a context carrying a fresh run ID, plus the ID.
// CLI commands call this once at startup so every log line of the run can
// be correlated.
func NewRunContext(parent context.Context) (context.Context, string) {
	id := NewRunID()
	return WithRunID(parent, id), id
}
