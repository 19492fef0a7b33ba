// Package memory keeps published run notifications in memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/boxoffice-crawler/internal/publisher"
)

// Publisher records notifications for inspection.
type Publisher struct {
	mu            sync.RWMutex
	notifications []publisher.RunNotification
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records n and returns a pseudo ID.
func (p *Publisher) Publish(ctx context.Context, n publisher.RunNotification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
	return fmt.Sprintf("memory-%d", len(p.notifications)), nil
}

// Notifications returns a copy of the recorded notifications.
func (p *Publisher) Notifications() []publisher.RunNotification {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]publisher.RunNotification, len(p.notifications))
	copy(out, p.notifications)
	return out
}
