package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
	"github.com/ZetsyKe/vacvpn-sub000/internal/usecase"
)

// paymentUCTestDeps holds all the mock dependencies for the payment use case tests.
type paymentUCTestDeps struct {
	payments *memPaymentRepo
	subs     *memSubscriptionRepo
	gateway  *mockGateway
	notifier *mockNotifier
	uc       usecase.PaymentUseCase
}

func newPaymentUCDeps(t *testing.T) *paymentUCTestDeps {
	t.Helper()
	catalog, err := model.NewTariffCatalog([]model.Tariff{
		{ID: "month", DurationDays: 30, Price: 299, Description: "VPN access, 1 month"},
		{ID: "year", DurationDays: 365, Price: 2599, Description: "VPN access, 12 months"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	deps := &paymentUCTestDeps{
		payments: newMemPaymentRepo(),
		subs:     newMemSubscriptionRepo(),
		gateway:  &mockGateway{},
		notifier: &mockNotifier{},
	}
	subUC := usecase.NewSubscriptionUseCase(deps.subs, newTestLogger())
	deps.uc = usecase.NewPaymentUseCase(deps.payments, subUC, catalog, deps.gateway, deps.notifier, mockTxManager{}, newTestLogger())
	return deps
}

func TestPaymentUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending intent with a redirect url", func(t *testing.T) {
		deps := newPaymentUCDeps(t)

		p, redirectURL, err := deps.uc.Create(ctx, 101, "month")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if redirectURL == "" {
			t.Error("expected a redirect URL, got empty string")
		}
		if p.Status != model.PaymentStatusPending {
			t.Errorf("expected status pending, got %q", p.Status)
		}
		if p.Amount != 299 || p.DurationDays != 30 {
			t.Errorf("tariff not applied: amount=%d days=%d", p.Amount, p.DurationDays)
		}
		if p.RemoteID == "" {
			t.Error("expected remote id to be attached")
		}

		stored, err := deps.payments.Find(ctx, nil, p.ID, 101)
		if err != nil {
			t.Fatalf("stored record: %v", err)
		}
		if stored.RemoteID != p.RemoteID {
			t.Errorf("stored remote id %q != returned %q", stored.RemoteID, p.RemoteID)
		}
	})

	t.Run("payment ids are never reused", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			p, _, err := deps.uc.Create(ctx, 101, "month")
			if err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
			if seen[p.ID] {
				t.Fatalf("payment id %q reused", p.ID)
			}
			seen[p.ID] = true
		}
	})

	t.Run("unknown tariff is rejected", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		_, _, err := deps.uc.Create(ctx, 101, "lifetime")
		if !errors.Is(err, domain.ErrUnknownTariff) {
			t.Fatalf("expected ErrUnknownTariff, got: %v", err)
		}
	})

	t.Run("gateway failure marks the record failed and keeps it", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		deps.gateway.CreateFunc = func(ctx context.Context, req adapter.CreatePaymentRequest) (adapter.CreatePaymentResult, error) {
			return adapter.CreatePaymentResult{}, fmt.Errorf("%w: connection refused", domain.ErrGatewayUnavailable)
		}

		_, _, err := deps.uc.Create(ctx, 101, "month")
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got: %v", err)
		}

		// The audit record survives with status failed.
		stale, err := deps.payments.ListPendingOlderThan(ctx, nil, time.Now().Add(time.Hour), 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(stale) != 0 {
			t.Errorf("failed record must not count as pending, got %d", len(stale))
		}
	})

	t.Run("missing redirect url is a gateway rejection", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		deps.gateway.CreateFunc = func(ctx context.Context, req adapter.CreatePaymentRequest) (adapter.CreatePaymentResult, error) {
			return adapter.CreatePaymentResult{RemoteID: "r-1"}, nil
		}
		_, _, err := deps.uc.Create(ctx, 101, "month")
		if !errors.Is(err, domain.ErrGatewayRejected) {
			t.Fatalf("expected ErrGatewayRejected, got: %v", err)
		}
	})
}

func TestPaymentUseCase_CheckStatus(t *testing.T) {
	ctx := context.Background()

	createSucceeding := func(t *testing.T, deps *paymentUCTestDeps, userID int64) *model.PaymentIntent {
		t.Helper()
		p, _, err := deps.uc.Create(ctx, userID, "month")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
			return adapter.RemotePayment{RemoteID: remoteID, Status: "succeeded"}, nil
		}
		return p
	}

	t.Run("unknown payment id", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		_, err := deps.uc.CheckStatus(ctx, "no-such-id", 101)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("payment is not readable by another user", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		p, _, err := deps.uc.Create(ctx, 101, "month")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := deps.uc.CheckStatus(ctx, p.ID, 202); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for foreign user, got: %v", err)
		}
	})

	t.Run("success applies the side-effect pipeline once", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		p := createSucceeding(t, deps, 101)

		res, err := deps.uc.CheckStatus(ctx, p.ID, 101)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.Status != model.PaymentStatusSucceeded {
			t.Fatalf("expected succeeded, got %q", res.Status)
		}
		if res.PaidAt == nil {
			t.Error("expected paid_at to be set")
		}
		if got := deps.subs.extends(); got != 1 {
			t.Fatalf("expected exactly 1 extension, got %d", got)
		}
		sub, err := deps.subs.Find(ctx, nil, 101)
		if err != nil {
			t.Fatalf("subscription: %v", err)
		}
		if !sub.HasSubscription(time.Now()) {
			t.Error("expected an active subscription")
		}
		if got := deps.notifier.grantCount(); got != 1 {
			t.Errorf("expected 1 provisioning grant, got %d", got)
		}
	})

	t.Run("repeated polling of a terminal payment is idempotent", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		p := createSucceeding(t, deps, 101)

		if _, err := deps.uc.CheckStatus(ctx, p.ID, 101); err != nil {
			t.Fatalf("first check: %v", err)
		}
		sub1, _ := deps.subs.Find(ctx, nil, 101)
		getsAfterSettle := deps.gateway.getCalls()

		for i := 0; i < 10; i++ {
			res, err := deps.uc.CheckStatus(ctx, p.ID, 101)
			if err != nil {
				t.Fatalf("repoll %d: %v", i, err)
			}
			if res.Status != model.PaymentStatusSucceeded {
				t.Fatalf("repoll %d: status %q", i, res.Status)
			}
		}

		sub2, _ := deps.subs.Find(ctx, nil, 101)
		if !sub1.SubscriptionEnd.Equal(sub2.SubscriptionEnd) {
			t.Error("subscription end changed on repeated polling")
		}
		if got := deps.subs.extends(); got != 1 {
			t.Errorf("expected 1 extension after repolling, got %d", got)
		}
		if got := deps.notifier.grantCount(); got != 1 {
			t.Errorf("expected 1 provisioning grant after repolling, got %d", got)
		}
		if deps.gateway.getCalls() != getsAfterSettle {
			t.Error("terminal payment must not be re-checked at the gateway")
		}
	})

	t.Run("canceled is absorbing even if the gateway later says succeeded", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		p, _, err := deps.uc.Create(ctx, 101, "month")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
			return adapter.RemotePayment{RemoteID: remoteID, Status: "canceled"}, nil
		}
		res, err := deps.uc.CheckStatus(ctx, p.ID, 101)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.Status != model.PaymentStatusCanceled {
			t.Fatalf("expected canceled, got %q", res.Status)
		}

		deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
			return adapter.RemotePayment{RemoteID: remoteID, Status: "succeeded"}, nil
		}
		for i := 0; i < 5; i++ {
			res, err = deps.uc.CheckStatus(ctx, p.ID, 101)
			if err != nil {
				t.Fatalf("recheck %d: %v", i, err)
			}
			if res.Status != model.PaymentStatusCanceled {
				t.Fatalf("canceled flipped to %q", res.Status)
			}
		}
		if got := deps.subs.extends(); got != 0 {
			t.Errorf("canceled payment extended a subscription %d times", got)
		}
	})

	t.Run("waiting_for_capture is an intermediate state", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		p, _, err := deps.uc.Create(ctx, 101, "month")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
			return adapter.RemotePayment{RemoteID: remoteID, Status: "waiting_for_capture"}, nil
		}
		res, err := deps.uc.CheckStatus(ctx, p.ID, 101)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.Status != model.PaymentStatusWaitingForCapture {
			t.Fatalf("expected waiting_for_capture, got %q", res.Status)
		}
		if got := deps.subs.extends(); got != 0 {
			t.Fatalf("intermediate state must not extend, got %d", got)
		}

		deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
			return adapter.RemotePayment{RemoteID: remoteID, Status: "succeeded"}, nil
		}
		res, err = deps.uc.CheckStatus(ctx, p.ID, 101)
		if err != nil {
			t.Fatalf("capture check: %v", err)
		}
		if res.Status != model.PaymentStatusSucceeded {
			t.Fatalf("expected succeeded after capture, got %q", res.Status)
		}
		if got := deps.subs.extends(); got != 1 {
			t.Errorf("expected 1 extension, got %d", got)
		}
	})

	t.Run("gateway outage leaves the record pending", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		p, _, err := deps.uc.Create(ctx, 101, "month")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
			return adapter.RemotePayment{}, fmt.Errorf("%w: http 503", domain.ErrGatewayUnavailable)
		}
		if _, err := deps.uc.CheckStatus(ctx, p.ID, 101); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got: %v", err)
		}
		stored, _ := deps.payments.Find(ctx, nil, p.ID, 101)
		if stored.Status != model.PaymentStatusPending {
			t.Errorf("expected record to stay pending, got %q", stored.Status)
		}
	})

	t.Run("unrecognized remote status is treated as still pending", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		p, _, err := deps.uc.Create(ctx, 101, "month")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
			return adapter.RemotePayment{RemoteID: remoteID, Status: "under_review"}, nil
		}
		res, err := deps.uc.CheckStatus(ctx, p.ID, 101)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.Status != model.PaymentStatusPending {
			t.Fatalf("expected pending, got %q", res.Status)
		}
	})

	t.Run("provisioning failure does not roll back the entitlement", func(t *testing.T) {
		deps := newPaymentUCDeps(t)
		deps.notifier.grantErr = errors.New("proxy service down")
		p := createSucceeding(t, deps, 101)

		res, err := deps.uc.CheckStatus(ctx, p.ID, 101)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if res.Status != model.PaymentStatusSucceeded {
			t.Fatalf("expected succeeded, got %q", res.Status)
		}
		if got := deps.subs.extends(); got != 1 {
			t.Errorf("expected the extension to stick, got %d", got)
		}
	})
}

func TestPaymentUseCase_ConcurrentCheckStatus(t *testing.T) {
	ctx := context.Background()
	deps := newPaymentUCDeps(t)

	p, _, err := deps.uc.Create(ctx, 101, "month")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	deps.gateway.GetFunc = func(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
		return adapter.RemotePayment{RemoteID: remoteID, Status: "succeeded"}, nil
	}

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := deps.uc.CheckStatus(ctx, p.ID, 101)
			if err != nil {
				errs <- err
				return
			}
			if res.Status != model.PaymentStatusSucceeded {
				errs <- fmt.Errorf("status %q", res.Status)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent check: %v", err)
	}

	if got := deps.subs.extends(); got != 1 {
		t.Fatalf("expected exactly 1 extension from %d concurrent checks, got %d", n, got)
	}
	if got := deps.notifier.grantCount(); got != 1 {
		t.Errorf("expected exactly 1 provisioning grant, got %d", got)
	}
	sub, err := deps.subs.Find(ctx, nil, 101)
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	want := 30 * 24 * time.Hour
	if d := time.Until(sub.SubscriptionEnd); d > want || d < want-time.Minute {
		t.Errorf("subscription window %v, want about %v", d, want)
	}
}
