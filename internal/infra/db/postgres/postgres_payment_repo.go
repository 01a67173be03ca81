package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `payment_id, remote_id, user_id, tariff, amount, duration_days, description, status, created_at, updated_at, paid_at`

func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	const q = `
INSERT INTO payments (
  payment_id, remote_id, user_id, tariff, amount, duration_days, description, status, created_at, updated_at, paid_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.RemoteID, p.UserID, p.Tariff, p.Amount, p.DurationDays, p.Description, p.Status, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// AttachRemoteID sets remote_id at most once. Re-attaching the same id is a
// no-op; attaching a different id to an already-linked row fails, so a
// duplicated gateway-create retry cannot produce inconsistent linkage.
func (r *paymentRepo) AttachRemoteID(ctx context.Context, tx repository.Tx, paymentID, remoteID string) error {
	const q = `
UPDATE payments
   SET remote_id = $2, updated_at = NOW()
 WHERE payment_id = $1
   AND (remote_id = '' OR remote_id = $2);`

	cmd, err := execSQL(ctx, r.pool, tx, q, paymentID, remoteID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() >= 1 {
		return nil
	}

	// No row updated: either the payment does not exist or it is linked to a
	// different remote id.
	row, err := pickRow(ctx, r.pool, tx, `SELECT remote_id FROM payments WHERE payment_id=$1;`, paymentID)
	if err != nil {
		return err
	}
	var existing string
	if scanErr := row.Scan(&existing); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return domain.ErrReadDatabaseRow
	}
	return domain.ErrInvalidState
}

func (r *paymentRepo) Find(ctx context.Context, tx repository.Tx, paymentID string, userID int64) (*model.PaymentIntent, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id=$1 AND user_id=$2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, paymentID, userID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// TransitionIfPending atomically updates status only when the current status
// is still pending or waiting_for_capture. Whichever caller wins this
// conditional write is the one that performs the side-effect pipeline.
func (r *paymentRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, paymentID string, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status = $2,
       paid_at = COALESCE($3, paid_at),
       updated_at = NOW()
 WHERE payment_id = $1
   AND status IN ('pending','waiting_for_capture');`

	cmd, err := execSQL(ctx, r.pool, tx, q, paymentID, string(status), paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status IN ('pending','waiting_for_capture') AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*model.PaymentIntent, error) {
	p := &model.PaymentIntent{}
	if err := row.Scan(&p.ID, &p.RemoteID, &p.UserID, &p.Tariff, &p.Amount, &p.DurationDays, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
