package scheduler

import "github.com/google/uuid"

// newJobID generates a random id for AddJob calls that omit one —
// spec.md §6: "Auto-generates id if omitted."
func newJobID() string {
	return uuid.NewString()
}
