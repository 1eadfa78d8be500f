package model

import "context"

// Trustee is a per-cluster service user in the trustee domain.
type Trustee struct {
	UserID   string
	Username string
	Password string
}

// IdentityPort wraps the identity provider for delegation. Delete operations
// treat not-found as success so teardown is idempotent.
type IdentityPort interface {
	// ResolveCaller validates the caller's token and fills in user and
	// project identifiers.
	ResolveCaller(ctx context.Context, rctx *RequestContext) (userID, projectID string, err error)
	// CreateTrustee creates a service user in the configured trustee domain.
	CreateTrustee(ctx context.Context, username, password string) (*Trustee, error)
	DeleteTrustee(ctx context.Context, userID string) error
	// CreateTrust delegates from the caller to the trustee with impersonation
	// and the configured roles (all of the caller's roles when none are
	// configured).
	CreateTrust(ctx context.Context, rctx *RequestContext, trusteeUserID string) (trustID string, err error)
	DeleteTrust(ctx context.Context, rctx *RequestContext, trustID string) error
}
