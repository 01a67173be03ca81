package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

// Extend applies one settled payment in a single conditional upsert. The
// GREATEST keeps subscription_end monotone: renewing before expiry stacks on
// the current end, renewing after expiry restarts from NOW(). Two concurrent
// extensions for the same user both apply because each one re-reads the
// current end inside the same statement.
func (r *subscriptionRepo) Extend(ctx context.Context, tx repository.Tx, userID int64, tariff string, durationDays int) (*model.Subscription, error) {
	if durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO users (user_id, has_subscription, subscription_start, subscription_end, tariff_type, updated_at)
VALUES ($1, TRUE, NOW(), NOW() + ($3::int * INTERVAL '1 day'), $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET
  has_subscription = TRUE,
  subscription_end = GREATEST(users.subscription_end, NOW()) + ($3::int * INTERVAL '1 day'),
  tariff_type = $2,
  updated_at = NOW()
RETURNING user_id, subscription_start, subscription_end, tariff_type, updated_at;`

	row, err := pickRow(ctx, r.pool, tx, q, userID, tariff, durationDays)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) Find(ctx context.Context, tx repository.Tx, userID int64) (*model.Subscription, error) {
	const q = `SELECT user_id, subscription_start, subscription_end, tariff_type, updated_at FROM users WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.UserID, &s.SubscriptionStart, &s.SubscriptionEnd, &s.TariffType, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
