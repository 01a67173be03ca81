package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memPaymentRepo is a small in-memory implementation used by unit tests. The
// mutex around TransitionIfPending mirrors the atomicity of the conditional
// UPDATE in the real repository.
type memPaymentRepo struct {
	mu        sync.Mutex
	store     map[string]*model.PaymentIntent
	createErr error // used by tests to simulate save failures
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.PaymentIntent)}
}

func (m *memPaymentRepo) Create(ctx context.Context, qx repository.Tx, p *model.PaymentIntent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) AttachRemoteID(ctx context.Context, qx repository.Tx, paymentID, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[paymentID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.RemoteID != "" && p.RemoteID != remoteID {
		return domain.ErrInvalidState
	}
	p.RemoteID = remoteID
	return nil
}

func (m *memPaymentRepo) Find(ctx context.Context, qx repository.Tx, paymentID string, userID int64) (*model.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[paymentID]
	if !ok || p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) TransitionIfPending(ctx context.Context, qx repository.Tx, paymentID string, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[paymentID]
	if !ok {
		return false, nil
	}
	if !p.Status.CanTransition() {
		return false, nil
	}
	p.Status = status
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) ListPendingOlderThan(ctx context.Context, qx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentIntent
	for _, p := range m.store {
		if p.Status.CanTransition() && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// memSubscriptionRepo implements the max(current_end, now)+days arithmetic of
// the real upsert. The now func is injectable so arithmetic tests are exact.
type memSubscriptionRepo struct {
	mu          sync.Mutex
	store       map[int64]*model.Subscription
	now         func() time.Time
	extendCalls int
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[int64]*model.Subscription), now: time.Now}
}

func (m *memSubscriptionRepo) Extend(ctx context.Context, qx repository.Tx, userID int64, tariff string, durationDays int) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extendCalls++
	now := m.now()
	start := now
	base := now
	if cur, ok := m.store[userID]; ok {
		start = cur.SubscriptionStart
		if cur.SubscriptionEnd.After(now) {
			base = cur.SubscriptionEnd
		}
	}
	s := &model.Subscription{
		UserID:            userID,
		SubscriptionStart: start,
		SubscriptionEnd:   base.Add(time.Duration(durationDays) * 24 * time.Hour),
		TariffType:        tariff,
		UpdatedAt:         now,
	}
	m.store[userID] = s
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) Find(ctx context.Context, qx repository.Tx, userID int64) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) set(s *model.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.UserID] = &cp
}

func (m *memSubscriptionRepo) extends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extendCalls
}

type memReferralRepo struct {
	mu    sync.Mutex
	edges map[[2]int64]*model.ReferralEdge
}

func newMemReferralRepo() *memReferralRepo {
	return &memReferralRepo{edges: make(map[[2]int64]*model.ReferralEdge)}
}

func (m *memReferralRepo) Record(ctx context.Context, qx repository.Tx, edge *model.ReferralEdge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{edge.ReferrerID, edge.ReferredID}
	if _, ok := m.edges[key]; ok {
		return false, nil
	}
	cp := *edge
	m.edges[key] = &cp
	return true, nil
}

func (m *memReferralRepo) CountFor(ctx context.Context, qx repository.Tx, referrerID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.edges {
		if key[0] == referrerID {
			n++
		}
	}
	return n, nil
}

// mockGateway lets tests script the remote side and counts calls.
type mockGateway struct {
	mu         sync.Mutex
	CreateFunc func(ctx context.Context, req adapter.CreatePaymentRequest) (adapter.CreatePaymentResult, error)
	GetFunc    func(ctx context.Context, remoteID string) (adapter.RemotePayment, error)
	creates    int
	gets       int
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreatePayment(ctx context.Context, req adapter.CreatePaymentRequest) (adapter.CreatePaymentResult, error) {
	g.mu.Lock()
	g.creates++
	fn := g.CreateFunc
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return adapter.CreatePaymentResult{
		RemoteID:    "remote-" + req.IdempotencyKey,
		RedirectURL: "https://gateway.test/pay/" + req.IdempotencyKey,
	}, nil
}

func (g *mockGateway) GetPayment(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
	g.mu.Lock()
	g.gets++
	fn := g.GetFunc
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, remoteID)
	}
	return adapter.RemotePayment{RemoteID: remoteID, Status: "pending"}, nil
}

func (g *mockGateway) getCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets
}

// mockNotifier records granted credentials.
type mockNotifier struct {
	mu       sync.Mutex
	grants   []string
	grantErr error
}

func (n *mockNotifier) GrantAccess(ctx context.Context, userID int64, credential string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.grantErr != nil {
		return n.grantErr
	}
	n.grants = append(n.grants, credential)
	return nil
}

func (n *mockNotifier) RevokeAccess(ctx context.Context, userID int64) error { return nil }

func (n *mockNotifier) grantCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.grants)
}

// mockTxManager runs the callback without a real transaction; the in-memory
// repositories are individually atomic.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
