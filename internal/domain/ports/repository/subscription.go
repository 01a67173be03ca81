package repository

import (
	"context"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
)

// SubscriptionRepository is the port for the per-user entitlement ledger.
type SubscriptionRepository interface {
	// Extend applies one successful payment: new_end = max(current_end, now) +
	// durationDays. The implementation must be a single conditional upsert so
	// two near-simultaneous settlements both apply instead of clobbering each
	// other. Returns the row after the extension.
	Extend(ctx context.Context, qx Tx, userID int64, tariff string, durationDays int) (*model.Subscription, error)

	Find(ctx context.Context, qx Tx, userID int64) (*model.Subscription, error)
}
