package model

import (
	"math"
	"time"
)

// Subscription is the per-user entitlement row. SubscriptionEnd is
// monotonically non-decreasing across extensions: paying before expiry stacks
// on top of the current end, paying after expiry restarts from now.
type Subscription struct {
	UserID            int64
	SubscriptionStart time.Time
	SubscriptionEnd   time.Time
	TariffType        string // last tariff applied
	UpdatedAt         time.Time
}

// HasSubscription is always derived from SubscriptionEnd, never trusted as a
// stored flag, so a naturally expired row reads as inactive without a write.
func (s *Subscription) HasSubscription(now time.Time) bool {
	return s != nil && s.SubscriptionEnd.After(now)
}

// DaysRemaining returns the number of days left, rounded up. A subscription
// with 1 hour left still reads as 1 day; expired reads as 0.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if s == nil || !s.SubscriptionEnd.After(now) {
		return 0
	}
	remaining := s.SubscriptionEnd.Sub(now)
	return int(math.Ceil(remaining.Hours() / 24))
}
