package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// restoreTokenBytes sets token entropy at 256 bits, well beyond what a
// brute force could cover within any realistic restore window.
const restoreTokenBytes = 32

// RestoreToken is the one-time secret bound to a single discard event.
// At most one unconsumed token exists per discarded resource; a new
// discard supersedes the previous token.
type RestoreToken struct {
	Resource  ResourceRef
	Token     string
	Consumed  bool
	CreatedAt time.Time
}

// NewRestoreTokenValue returns a cryptographically random token value.
// Token values carry no relation to the resource id or to any counter.
func NewRestoreTokenValue() (string, error) {
	buf := make([]byte, restoreTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating restore token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
