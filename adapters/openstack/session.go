// Package openstack adapts the IaaS control APIs behind the domain ports:
// heat for stacks, keystone for identity delegation, barbican for secret
// storage. All adapters share one authenticated admin session.
package openstack

import (
	"fmt"

	"github.com/gophercloud/gophercloud"
	gopherstack "github.com/gophercloud/gophercloud/openstack"
)

// SessionConfig carries the service credentials for the admin session.
type SessionConfig struct {
	AuthURL           string
	Region            string
	Username          string
	Password          string
	UserDomainName    string
	ProjectName       string
	ProjectDomainName string
}

// Session is an authenticated provider client with per-service accessors.
// The underlying client re-authenticates on token expiry.
type Session struct {
	provider *gophercloud.ProviderClient
	region   string
	authURL  string
}

// NewSession authenticates against keystone with the service credentials.
func NewSession(cfg SessionConfig) (*Session, error) {
	provider, err := gopherstack.AuthenticatedClient(gophercloud.AuthOptions{
		IdentityEndpoint: cfg.AuthURL,
		Username:         cfg.Username,
		Password:         cfg.Password,
		DomainName:       cfg.UserDomainName,
		TenantName:       cfg.ProjectName,
		AllowReauth:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("authenticate service session: %w", err)
	}
	return &Session{provider: provider, region: cfg.Region, authURL: cfg.AuthURL}, nil
}

func (s *Session) endpointOpts() gophercloud.EndpointOpts {
	return gophercloud.EndpointOpts{Region: s.region}
}

// Orchestration returns a heat service client.
func (s *Session) Orchestration() (*gophercloud.ServiceClient, error) {
	client, err := gopherstack.NewOrchestrationV1(s.provider, s.endpointOpts())
	if err != nil {
		return nil, fmt.Errorf("locate orchestration endpoint: %w", err)
	}
	return client, nil
}

// Identity returns a keystone v3 service client.
func (s *Session) Identity() (*gophercloud.ServiceClient, error) {
	client, err := gopherstack.NewIdentityV3(s.provider, s.endpointOpts())
	if err != nil {
		return nil, fmt.Errorf("locate identity endpoint: %w", err)
	}
	return client, nil
}

// KeyManager returns a barbican service client.
func (s *Session) KeyManager() (*gophercloud.ServiceClient, error) {
	client, err := gopherstack.NewKeyManagerV1(s.provider, s.endpointOpts())
	if err != nil {
		return nil, fmt.Errorf("locate key-manager endpoint: %w", err)
	}
	return client, nil
}

// CallerIdentity builds a keystone client authenticated as the caller, for
// operations keystone requires the trustor to perform.
func (s *Session) CallerIdentity(token string) (*gophercloud.ServiceClient, error) {
	provider, err := gopherstack.AuthenticatedClient(gophercloud.AuthOptions{
		IdentityEndpoint: s.authURL,
		TokenID:          token,
	})
	if err != nil {
		return nil, fmt.Errorf("authenticate caller session: %w", err)
	}
	return gopherstack.NewIdentityV3(provider, s.endpointOpts())
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(gophercloud.ErrDefault404); ok {
		return true
	}
	if _, ok := err.(gophercloud.ErrResourceNotFound); ok {
		return true
	}
	return false
}
