package repository

import (
	"context"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
)

// ReferralRepository stores directed referrer->referred edges.
type ReferralRepository interface {
	// Record inserts the edge if absent and reports whether this call created
	// it. A duplicate is a silent no-op (inserted=false, nil error).
	Record(ctx context.Context, qx Tx, edge *model.ReferralEdge) (inserted bool, err error)

	CountFor(ctx context.Context, qx Tx, referrerID int64) (int, error)
}
