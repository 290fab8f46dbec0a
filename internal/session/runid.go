package session

import "github.com/google/uuid"

// newRunID generates the time-sortable correlation id attached to one CLI
// invocation, independent of the content hash used for replay dedup.
func newRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
