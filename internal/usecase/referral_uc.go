package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
)

var _ ReferralUseCase = (*referralUC)(nil)

type ReferralUseCase interface {
	// Record stores the referrer->referred edge. Recording an existing edge is
	// a no-op; self-referral fails with domain.ErrInvalidReferral.
	Record(ctx context.Context, referrerID, referredID int64) error
	// CountFor is display-only, not a billing input.
	CountFor(ctx context.Context, referrerID int64) (int, error)
}

type referralUC struct {
	referrals repository.ReferralRepository
	log       *zerolog.Logger
}

func NewReferralUseCase(referrals repository.ReferralRepository, logger *zerolog.Logger) *referralUC {
	return &referralUC{referrals: referrals, log: logger}
}

func (u *referralUC) Record(ctx context.Context, referrerID, referredID int64) error {
	edge, err := model.NewReferralEdge(referrerID, referredID)
	if err != nil {
		return err
	}
	inserted, err := u.referrals.Record(ctx, nil, edge)
	if err != nil {
		return err
	}
	if inserted {
		u.log.Info().
			Int64("referrer_id", referrerID).
			Int64("referred_id", referredID).
			Msg("referral recorded")
	}
	return nil
}

func (u *referralUC) CountFor(ctx context.Context, referrerID int64) (int, error) {
	return u.referrals.CountFor(ctx, nil, referrerID)
}
