// Package uuidv7 mints the time-ordered identities used for assets and import previews.
package uuidv7

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a UUIDv7 (time-ordered, millisecond precision).
func New() (uuid.UUID, error) {
	return uuid.NewV7()
}

// NewString returns a UUIDv7 string.
func NewString() (string, error) {
	u, err := New()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Valid reports whether raw is a well-formed UUID of any version.
func Valid(raw string) bool {
	_, err := uuid.Parse(strings.TrimSpace(raw))
	return err == nil
}
