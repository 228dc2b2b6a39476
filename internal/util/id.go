package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewRowID returns a UUID string used as the primary key for stored rows.
func NewRowID() string {
	return uuid.NewString()
}

// NewID returns a random hex identifier with an optional prefix, used for
// token JTIs and other opaque handles that are not database keys.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
