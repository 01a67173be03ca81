package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrUnknownTariff      = errors.New("unknown tariff")
	ErrInvalidReferral    = errors.New("user cannot refer themselves")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Gateway errors. Unavailable is transient (network, timeout, 5xx) and the
	// caller may retry the same check later; Rejected is a permanent refusal
	// from the provider (4xx) and must not be retried blindly.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
)
