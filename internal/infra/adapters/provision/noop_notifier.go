package provision

import (
	"context"
	"sync"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
)

var _ adapter.ProvisioningNotifier = (*NoopNotifier)(nil)

// NoopNotifier records calls in memory for dev mode and tests.
type NoopNotifier struct {
	mu      sync.Mutex
	granted map[int64]string
}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{granted: make(map[int64]string)}
}

func (n *NoopNotifier) GrantAccess(ctx context.Context, userID int64, credential string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.granted[userID] = credential
	return nil
}

func (n *NoopNotifier) RevokeAccess(ctx context.Context, userID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.granted, userID)
	return nil
}

// Granted returns the last credential granted to userID, if any.
func (n *NoopNotifier) Granted(userID int64) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.granted[userID]
	return c, ok
}
