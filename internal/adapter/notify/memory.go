// internal/adapter/notify/memory.go

package notify

import (
	"context"
	"sync"

	"feedcore/internal/domain/breaking"
)

// MemoryNotifier records delivered notifications in memory. Reference and
// test implementation of the delivery boundary.
type MemoryNotifier struct {
	mu        sync.Mutex
	delivered []breaking.Notification

	// FailWith, when set, is returned by every Deliver call.
	FailWith error
}

// NewMemoryNotifier creates an empty in-memory notifier
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// Deliver records the notification.
func (m *MemoryNotifier) Deliver(ctx context.Context, n breaking.Notification) error {
	if m.FailWith != nil {
		return m.FailWith
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, n)
	return nil
}

// Delivered returns a copy of everything delivered so far.
func (m *MemoryNotifier) Delivered() []breaking.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]breaking.Notification, len(m.delivered))
	copy(out, m.delivered)
	return out
}

var _ breaking.Notifier = (*MemoryNotifier)(nil)
