// Package memory keeps artifact notifications in process. Dry runs publish
// here instead of the configured topic.
package memory

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/publisher"
)

// Publisher records every artifact notification in publish order.
type Publisher struct {
	logger *zap.Logger

	mu   sync.RWMutex
	sent []publisher.Notification
}

// New returns an empty Publisher. Each recorded notification is logged.
func New(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logging.OrNop(logger).Named("publisher")}
}

// Publish records n. The message ID is "<run>/<collection>".
func (p *Publisher) Publish(ctx context.Context, n publisher.Notification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if n.Collection == "" {
		return "", errors.New("artifact notification has no collection")
	}
	p.mu.Lock()
	p.sent = append(p.sent, n)
	p.mu.Unlock()

	id := n.RunID + "/" + n.Collection
	p.logger.Info("artifact notification recorded",
		zap.String("message_id", id),
		zap.String("path", n.Path),
		zap.Int("icons", n.IconCount),
	)
	return id, nil
}

// Messages returns a copy of the recorded notifications.
func (p *Publisher) Messages() []publisher.Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]publisher.Notification(nil), p.sent...)
}

var _ publisher.Publisher = (*Publisher)(nil)
