package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/identity/v3/extensions/trusts"
	"github.com/gophercloud/gophercloud/openstack/identity/v3/tokens"
	"github.com/gophercloud/gophercloud/openstack/identity/v3/users"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// TrustConfig tunes trustee/trust creation.
type TrustConfig struct {
	// TrusteeDomainID is the dedicated domain trustee users live in.
	TrusteeDomainID string
	// Roles delegated on the trust; empty delegates all of the caller's
	// roles.
	Roles []string
}

// KeystoneAdapter implements model.IdentityPort against keystone v3.
type KeystoneAdapter struct {
	session *Session
	admin   *gophercloud.ServiceClient
	cfg     TrustConfig
}

// NewKeystoneAdapter builds the identity port from an authenticated session.
func NewKeystoneAdapter(session *Session, cfg TrustConfig) (*KeystoneAdapter, error) {
	admin, err := session.Identity()
	if err != nil {
		return nil, err
	}
	return &KeystoneAdapter{session: session, admin: admin, cfg: cfg}, nil
}

// ResolveCaller validates the caller's token against keystone and returns
// the authoritative user and project ids.
func (a *KeystoneAdapter) ResolveCaller(ctx context.Context, rctx *model.RequestContext) (string, string, error) {
	if rctx.AuthToken == "" {
		return "", "", fmt.Errorf("%w: no auth token", model.ErrAuthorizationFailure)
	}
	result := tokens.Get(a.admin, rctx.AuthToken)
	user, err := result.ExtractUser()
	if err != nil {
		return "", "", fmt.Errorf("%w: validate token: %v", model.ErrAuthorizationFailure, err)
	}
	project, err := result.ExtractProject()
	if err != nil {
		return "", "", fmt.Errorf("%w: token has no project scope: %v", model.ErrAuthorizationFailure, err)
	}
	if roles, err := result.ExtractRoles(); err == nil {
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, r.Name)
		}
		rctx.Roles = names
	}
	return user.ID, project.ID, nil
}

func (a *KeystoneAdapter) CreateTrustee(ctx context.Context, username, password string) (*model.Trustee, error) {
	user, err := users.Create(a.admin, users.CreateOpts{
		Name:        username,
		Password:    password,
		DomainID:    a.cfg.TrusteeDomainID,
		Description: "trustee user for cluster " + username,
	}).Extract()
	if err != nil {
		return nil, fmt.Errorf("create trustee %s: %w", username, err)
	}
	return &model.Trustee{UserID: user.ID, Username: username, Password: password}, nil
}

// DeleteTrustee removes the per-cluster service user. Not-found is success.
func (a *KeystoneAdapter) DeleteTrustee(ctx context.Context, userID string) error {
	if err := users.Delete(a.admin, userID).ExtractErr(); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: trustee %s: %v", model.ErrTrustDeleteFailed, userID, err)
	}
	return nil
}

// CreateTrust delegates from the caller to the trustee with impersonation.
// Keystone only lets the trustor create the trust, so this runs on a session
// authenticated with the caller's token.
func (a *KeystoneAdapter) CreateTrust(ctx context.Context, rctx *model.RequestContext, trusteeUserID string) (string, error) {
	caller, err := a.session.CallerIdentity(rctx.AuthToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrTrustCreateFailed, err)
	}
	roleNames := a.cfg.Roles
	if len(roleNames) == 0 {
		roleNames = rctx.Roles
	}
	roles := make([]trusts.Role, 0, len(roleNames))
	for _, name := range roleNames {
		roles = append(roles, trusts.Role{Name: name})
	}
	trust, err := trusts.Create(caller, trusts.CreateOpts{
		Impersonation:     true,
		TrustorUserID:     rctx.UserID,
		TrusteeUserID:     trusteeUserID,
		ProjectID:         rctx.ProjectID,
		Roles:             roles,
		AllowRedelegation: false,
	}).Extract()
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrTrustCreateFailed, err)
	}
	logging.FromContext(ctx).Info(ctx, "trust created",
		"trust_id", trust.ID, "trustee_user_id", trusteeUserID)
	return trust.ID, nil
}

// DeleteTrust revokes a delegation. Not-found is success.
func (a *KeystoneAdapter) DeleteTrust(ctx context.Context, rctx *model.RequestContext, trustID string) error {
	if err := trusts.Delete(a.admin, trustID).ExtractErr(); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: trust %s: %v", model.ErrTrustDeleteFailed, trustID, err)
	}
	return nil
}

var _ model.IdentityPort = (*KeystoneAdapter)(nil)
