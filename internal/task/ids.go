package task

import (
	"strings"

	"github.com/google/uuid"
)

// taskIDLength is the length of generated task ids.
const taskIDLength = 8

// IDGenerator produces candidate task ids. Candidates may collide; the Store
// retries against the ids already present in the session.
type IDGenerator func() string

// NewShortID returns the first eight hex digits of a random UUID.
func NewShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:taskIDLength]
}
