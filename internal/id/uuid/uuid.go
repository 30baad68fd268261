// Package uuid issues build run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// RunIDs issues UUIDv7 run IDs. The embedded timestamp makes IDs of later
// runs sort after earlier ones, which keeps notification streams ordered.
type RunIDs struct{}

// New returns a RunIDs issuer.
func New() RunIDs {
	return RunIDs{}
}

// NewRunID returns a fresh run ID.
func (RunIDs) NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
