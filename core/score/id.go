package score

import "github.com/google/uuid"

// NewID returns a random element identifier. Uniqueness is probabilistic;
// the model only relies on no collisions within a single document's
// lifetime, which random UUIDs satisfy without shared counters.
func NewID() string {
	return uuid.NewString()
}
