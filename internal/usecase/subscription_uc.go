package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/repository"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionView is the externally visible entitlement state. Both
// HasSubscription and DaysRemaining are recomputed from SubscriptionEnd on
// every read so a naturally expired subscription never reads as active.
type SubscriptionView struct {
	UserID          int64     `json:"user_id"`
	HasSubscription bool      `json:"has_subscription"`
	SubscriptionEnd time.Time `json:"subscription_end"`
	TariffType      string    `json:"tariff_type"`
	DaysRemaining   int       `json:"days_remaining"`
}

type SubscriptionUseCase interface {
	// Extend applies one settled payment. It participates in the caller's
	// transaction via qx so the payment transition and the extension commit
	// together.
	Extend(ctx context.Context, qx repository.Tx, userID int64, tariff string, durationDays int) (*model.Subscription, error)
	// Describe returns the current entitlement; a user without any paid
	// subscription yields an inactive view, not an error.
	Describe(ctx context.Context, userID int64) (SubscriptionView, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, log: logger}
}

func (u *subscriptionUC) Extend(ctx context.Context, qx repository.Tx, userID int64, tariff string, durationDays int) (*model.Subscription, error) {
	if durationDays <= 0 || tariff == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := u.subs.Extend(ctx, qx, userID, tariff, durationDays)
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionExtended(tariff, durationDays)
	u.log.Info().
		Int64("user_id", userID).
		Str("tariff", tariff).
		Int("days", durationDays).
		Time("subscription_end", sub.SubscriptionEnd).
		Msg("subscription extended")
	return sub, nil
}

func (u *subscriptionUC) Describe(ctx context.Context, userID int64) (SubscriptionView, error) {
	sub, err := u.subs.Find(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubscriptionView{UserID: userID}, nil
		}
		return SubscriptionView{}, err
	}
	now := time.Now()
	return SubscriptionView{
		UserID:          sub.UserID,
		HasSubscription: sub.HasSubscription(now),
		SubscriptionEnd: sub.SubscriptionEnd,
		TariffType:      sub.TariffType,
		DaysRemaining:   sub.DaysRemaining(now),
	}, nil
}
