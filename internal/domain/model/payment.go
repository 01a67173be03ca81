package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"             // local record created; awaiting gateway outcome
	PaymentStatusWaitingForCapture PaymentStatus = "waiting_for_capture" // authorized at the gateway, not yet captured
	PaymentStatusSucceeded         PaymentStatus = "succeeded"           // captured; entitlement granted
	PaymentStatusCanceled          PaymentStatus = "canceled"            // canceled or expired at the gateway
	PaymentStatusFailed            PaymentStatus = "failed"              // remote creation failed; kept for audit
)

// IsTerminal reports whether no further transition is permitted.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusCanceled
}

// CanTransition reports whether the status may still move. Only pending and
// waiting_for_capture rows pass the conditional-update gate in storage.
func (s PaymentStatus) CanTransition() bool {
	return s == PaymentStatusPending || s == PaymentStatusWaitingForCapture
}

// PaymentStatusFromRemote maps the gateway status vocabulary onto the local
// enum. Anything unrecognized is treated as still pending so an unknown
// intermediate state can never flip a record.
func PaymentStatusFromRemote(remote string) PaymentStatus {
	switch remote {
	case "succeeded":
		return PaymentStatusSucceeded
	case "canceled":
		return PaymentStatusCanceled
	case "waiting_for_capture":
		return PaymentStatusWaitingForCapture
	default:
		return PaymentStatusPending
	}
}

// PaymentIntent is the locally tracked record of a requested charge. ID is
// generated locally and doubles as the idempotency key sent to the gateway;
// RemoteID is assigned by the gateway once creation succeeds and is set at
// most once.
type PaymentIntent struct {
	ID           string // UUID, immutable
	RemoteID     string // gateway payment id; empty until attached
	UserID       int64  // chat user id of the buyer
	Tariff       string
	Amount       int64 // RUB
	DurationDays int
	Description  string
	Status       PaymentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PaidAt       *time.Time // set when succeeded
}

// NewPaymentIntent builds a fresh pending intent for the given tariff.
func NewPaymentIntent(id string, userID int64, t Tariff) *PaymentIntent {
	now := time.Now()
	return &PaymentIntent{
		ID:           id,
		UserID:       userID,
		Tariff:       t.ID,
		Amount:       t.Price,
		DurationDays: t.DurationDays,
		Description:  t.Description,
		Status:       PaymentStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
