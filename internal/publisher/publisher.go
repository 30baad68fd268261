// Package publisher announces exported artifacts to downstream consumers.
package publisher

import (
	"context"
	"time"
)

// Notification describes one exported artifact.
type Notification struct {
	RunID      string    `json:"run_id"`
	Collection string    `json:"collection"`
	IconCount  int       `json:"icon_count"`
	Path       string    `json:"path"`
	SHA256     string    `json:"sha256"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers notifications and returns a message ID.
type Publisher interface {
	Publish(ctx context.Context, n Notification) (string, error)
}

// NoOp drops every notification.
type NoOp struct{}

// Publish returns an empty ID.
func (NoOp) Publish(context.Context, Notification) (string, error) {
	return "", nil
}
