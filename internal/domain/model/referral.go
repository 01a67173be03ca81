package model

import (
	"time"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
)

// ReferralEdge links a referrer to a user they brought in. At most one edge
// exists per ordered pair; its presence is the at-most-once gate for any bonus
// crediting layered on top.
type ReferralEdge struct {
	ReferrerID int64
	ReferredID int64
	CreatedAt  time.Time
}

func NewReferralEdge(referrerID, referredID int64) (*ReferralEdge, error) {
	if referrerID == 0 || referredID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if referrerID == referredID {
		return nil, domain.ErrInvalidReferral
	}
	return &ReferralEdge{ReferrerID: referrerID, ReferredID: referredID, CreatedAt: time.Now()}, nil
}
