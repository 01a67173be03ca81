package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/logging"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase is the reconciliation engine: it creates payment intents
// against the gateway and drives their status to a terminal state, applying
// the side effects of a successful payment exactly once.
type PaymentUseCase interface {
	// Create returns the fresh pending intent and the gateway redirect URL.
	Create(ctx context.Context, userID int64, tariffID string) (*model.PaymentIntent, string, error)
	// CheckStatus reconciles one intent against the gateway. Already-terminal
	// records are returned without a remote call, so repeated polling is
	// idempotent and cheap.
	CheckStatus(ctx context.Context, paymentID string, userID int64) (*model.PaymentIntent, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	subs     SubscriptionUseCase
	catalog  *model.TariffCatalog
	gateway  adapter.PaymentGateway
	notifier adapter.ProvisioningNotifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	subs SubscriptionUseCase,
	catalog *model.TariffCatalog,
	gateway adapter.PaymentGateway,
	notifier adapter.ProvisioningNotifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments,
		subs:     subs,
		catalog:  catalog,
		gateway:  gateway,
		notifier: notifier,
		tm:       tm,
		log:      logger,
	}
}

func (u *paymentUC) Create(ctx context.Context, userID int64, tariffID string) (*model.PaymentIntent, string, error) {
	tariff, err := u.catalog.Find(tariffID)
	if err != nil {
		return nil, "", err
	}

	// The local id is the idempotency key for the remote create: persisting
	// the pending row first means a crash mid-create leaves an auditable
	// record, and a retried create with the same key cannot double-charge.
	p := model.NewPaymentIntent(uuid.NewString(), userID, tariff)
	if err := u.payments.Create(ctx, nil, p); err != nil {
		return nil, "", err
	}

	res, gerr := u.gateway.CreatePayment(ctx, adapter.CreatePaymentRequest{
		Amount:         p.Amount,
		Currency:       "RUB",
		IdempotencyKey: p.ID,
		Description:    p.Description,
		Metadata: map[string]string{
			"payment_id": p.ID,
			"user_id":    strconv.FormatInt(userID, 10),
		},
	})
	if gerr == nil && res.RedirectURL == "" {
		gerr = fmt.Errorf("%w: create returned no redirect url", domain.ErrGatewayRejected)
	}
	if gerr != nil {
		metrics.IncGatewayCall("create", "error")
		// Keep the record for audit; the caller starts over with a new intent.
		if _, terr := u.payments.TransitionIfPending(ctx, nil, p.ID, model.PaymentStatusFailed, nil); terr != nil {
			u.log.Error().Err(terr).Str("payment_id", p.ID).Msg("mark payment failed after gateway error")
		}
		metrics.IncPayment(string(model.PaymentStatusFailed))
		u.log.Warn().Err(gerr).Str("payment_id", p.ID).Int64("user_id", userID).Msg("gateway create failed")
		return nil, "", gerr
	}
	metrics.IncGatewayCall("create", "ok")

	if err := u.payments.AttachRemoteID(ctx, nil, p.ID, res.RemoteID); err != nil {
		return nil, "", err
	}
	p.RemoteID = res.RemoteID

	metrics.IncPayment(string(model.PaymentStatusPending))
	u.log.Info().
		Str("payment_id", p.ID).
		Str("remote_id", res.RemoteID).
		Int64("user_id", userID).
		Str("tariff", tariffID).
		Int64("amount", p.Amount).
		Msg("payment created")
	return p, res.RedirectURL, nil
}

func (u *paymentUC) CheckStatus(ctx context.Context, paymentID string, userID int64) (*model.PaymentIntent, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CheckStatus")()

	p, err := u.payments.Find(ctx, nil, paymentID, userID)
	if err != nil {
		return nil, err
	}
	// Terminal and failed rows cannot move; return without a remote call.
	if !p.Status.CanTransition() {
		return p, nil
	}
	// Pending but never linked to the gateway: nothing to reconcile against.
	if p.RemoteID == "" {
		return p, nil
	}

	remote, err := u.gateway.GetPayment(ctx, p.RemoteID)
	if err != nil {
		metrics.IncGatewayCall("get", "error")
		// The record stays pending; transient failures are retried by the
		// caller or the background reconciler.
		return nil, err
	}
	metrics.IncGatewayCall("get", "ok")

	next := model.PaymentStatusFromRemote(remote.Status)
	if next == model.PaymentStatusPending {
		return p, nil
	}

	var paidAt *time.Time
	if next == model.PaymentStatusSucceeded {
		now := time.Now()
		paidAt = &now
	}

	// The conditional transition and the subscription extension commit in one
	// transaction: whichever concurrent caller wins the compare-and-swap also
	// durably applies the entitlement. The loser sees transitioned=false and
	// just returns the terminal record.
	transitioned := false
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.payments.TransitionIfPending(ctx, tx, p.ID, next, paidAt)
		if err != nil {
			return err
		}
		transitioned = ok
		if ok && next == model.PaymentStatusSucceeded {
			if _, err := u.subs.Extend(ctx, tx, p.UserID, p.Tariff, p.DurationDays); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		metrics.IncPayment(string(next))
		u.log.Info().
			Str("payment_id", p.ID).
			Int64("user_id", p.UserID).
			Str("status", string(next)).
			Msg("payment transitioned")
		if next == model.PaymentStatusSucceeded {
			metrics.AddPaymentRevenue("rub", p.Amount)
			// Provisioning runs only after the ledger committed: a crash in
			// between leaves the user entitled-but-unprovisioned, which the
			// proxy service converges on, never the reverse.
			u.notifyProvision(ctx, p)
		}
	}

	return u.payments.Find(ctx, nil, paymentID, userID)
}

// notifyProvision is best-effort: failures are logged and counted, never
// rolled back into the ledger.
func (u *paymentUC) notifyProvision(ctx context.Context, p *model.PaymentIntent) {
	if err := u.notifier.GrantAccess(ctx, p.UserID, p.ID); err != nil {
		metrics.IncProvisionNotify("error")
		u.log.Error().Err(err).
			Str("payment_id", p.ID).
			Int64("user_id", p.UserID).
			Msg("provisioning notify failed; entitlement already committed")
		return
	}
	metrics.IncProvisionNotify("ok")
}
