package fs

import (
	"strings"

	"github.com/google/uuid"
)

// idLength matches the length of identifiers generated by hosted document databases.
const idLength = 20

// newID returns a random document identifier of idLength hex characters.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}
