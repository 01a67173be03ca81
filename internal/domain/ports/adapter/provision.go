package adapter

import "context"

// ProvisioningNotifier informs the proxy-access service that a user's
// entitlement changed. Calls are fire-and-log: the subscription ledger is the
// source of truth and provisioning is eventually consistent with it, so a
// failure here is logged by the caller, never rolled back into the ledger.
type ProvisioningNotifier interface {
	GrantAccess(ctx context.Context, userID int64, credential string) error
	RevokeAccess(ctx context.Context, userID int64) error
}
