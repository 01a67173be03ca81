package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway for dev mode and tests.
// Every created payment starts pending; tests flip the remote status with
// SetStatus to drive reconciliation.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	statuses map[string]string // remote id -> status
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{statuses: make(map[string]string)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) CreatePayment(ctx context.Context, req adapter.CreatePaymentRequest) (adapter.CreatePaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("noop-%d", g.seq)
	g.statuses[id] = "pending"
	return adapter.CreatePaymentResult{
		RemoteID:    id,
		RedirectURL: "https://example.test/pay/" + id,
	}, nil
}

func (g *NoopPaymentGateway) GetPayment(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.statuses[remoteID]
	if !ok {
		return adapter.RemotePayment{}, domain.ErrNotFound
	}
	return adapter.RemotePayment{RemoteID: remoteID, Status: status}, nil
}

// SetStatus overrides the remote status of a created payment.
func (g *NoopPaymentGateway) SetStatus(remoteID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[remoteID] = status
}
