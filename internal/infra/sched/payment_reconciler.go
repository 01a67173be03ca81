package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/metrics"
	"github.com/ZetsyKe/vacvpn-sub000/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and drives
// them through the same CheckStatus path a polling user would hit. Because
// CheckStatus is idempotent by construction, running this loop next to
// concurrent user polls is safe.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to re-check
	batch      int
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, batch int, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batch <= 0 {
		batch = 200
	}
	return &PaymentReconciler{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, batch: batch, log: logger}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ObserveReconcilerTick(time.Since(start).Seconds()) }()

	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("payment-reconciler: list pending")
		return
	}
	for _, p := range pending {
		if p.RemoteID == "" {
			continue
		}
		res, err := w.uc.CheckStatus(ctx, p.ID, p.UserID)
		if err != nil {
			metrics.IncReconcilerCheck("error")
			w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("payment-reconciler: check failed")
			continue
		}
		if res.Status.IsTerminal() {
			metrics.IncReconcilerCheck("settled")
			w.log.Info().Str("payment_id", p.ID).Str("status", string(res.Status)).Msg("payment-reconciler: settled")
		} else {
			metrics.IncReconcilerCheck("still_pending")
		}
	}
}
