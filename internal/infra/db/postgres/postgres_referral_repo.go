package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct{ pool *pgxpool.Pool }

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

// Record inserts the edge if absent. ON CONFLICT DO NOTHING makes the
// duplicate path a silent no-op and keeps the unique pair constraint the
// single source of truth for "already recorded".
func (r *referralRepo) Record(ctx context.Context, tx repository.Tx, edge *model.ReferralEdge) (bool, error) {
	const q = `
INSERT INTO referrals (referrer_id, referred_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (referrer_id, referred_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, edge.ReferrerID, edge.ReferredID, edge.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *referralRepo) CountFor(ctx context.Context, tx repository.Tx, referrerID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM referrals WHERE referrer_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, referrerID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
