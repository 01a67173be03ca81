package adapter

import "context"

// CreatePaymentRequest describes a remote payment to be created at the
// gateway. IdempotencyKey is the locally generated payment id; repeating a
// create with the same key must not double-charge.
type CreatePaymentRequest struct {
	Amount         int64 // RUB
	Currency       string
	IdempotencyKey string
	ReturnURL      string
	Description    string
	Metadata       map[string]string
}

// CreatePaymentResult is the gateway's answer to a successful create.
type CreatePaymentResult struct {
	RemoteID    string
	RedirectURL string // where the buyer completes the payment
}

// RemotePayment is the authoritative remote view fetched during
// reconciliation. Status vocabulary: pending | waiting_for_capture |
// succeeded | canceled.
type RemotePayment struct {
	RemoteID string
	Status   string
}

// PaymentGateway is the hex port for the external payment processor.
type PaymentGateway interface {
	Name() string
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResult, error)
	GetPayment(ctx context.Context, remoteID string) (RemotePayment, error)
}
