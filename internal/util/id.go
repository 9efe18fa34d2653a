package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a short random hex id for request ids, queue jobs and
// consumer names. Domain records use UUIDs instead.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
