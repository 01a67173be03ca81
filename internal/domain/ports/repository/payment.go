package repository

import (
	"context"
	"time"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
)

// PaymentRepository owns the uniqueness and transition guarantees for payment
// intents. Status is mutated only through TransitionIfPending.
type PaymentRepository interface {
	Create(ctx context.Context, qx Tx, p *model.PaymentIntent) error

	// AttachRemoteID links the gateway-assigned id to the local record. It is
	// a no-op if the same id is already attached and fails with
	// domain.ErrInvalidState if a different id is present, so a duplicated
	// create retry can never relink a record.
	AttachRemoteID(ctx context.Context, qx Tx, paymentID, remoteID string) error

	// Find is scoped to the owning user: a payment is never readable through
	// another user's id.
	Find(ctx context.Context, qx Tx, paymentID string, userID int64) (*model.PaymentIntent, error)

	// TransitionIfPending atomically moves the record to status only when the
	// current status is still pending or waiting_for_capture. It reports
	// whether this call performed the transition; terminal rows are left
	// untouched and report false.
	TransitionIfPending(ctx context.Context, qx Tx, paymentID string, status model.PaymentStatus, paidAt *time.Time) (bool, error)

	// ListPendingOlderThan feeds the background reconciler with stale pending
	// intents.
	ListPendingOlderThan(ctx context.Context, qx Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error)
}
