// Package cluster implements the cluster lifecycle engine: create, update,
// resize, upgrade and delete, with the trust, certificate and stack plumbing
// each transition needs. Convergence after a stack submission is the
// conductor's job.
package cluster

import (
	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/drivers"
	"github.com/stackmint/stackmint/usecase/certificate"
)

// Repos holds repositories needed for cluster use cases.
type Repos struct {
	Cluster         domain.ClusterRepository
	ClusterTemplate domain.ClusterTemplateRepository
	NodeGroup       domain.NodeGroupRepository
	Quota           domain.QuotaRepository
}

// Ports holds the external service ports the lifecycle engine drives.
type Ports struct {
	Stack    model.StackPort
	Identity model.IdentityPort
}

// Config carries the lifecycle tunables from the configuration.
type Config struct {
	// EnabledDefinitions is the ordered driver allow-list.
	EnabledDefinitions []string
	// CreateTimeout is the default stack timeout in minutes.
	CreateTimeout int
	// Discovery configures discovery-URL derivation.
	Discovery drivers.DiscoveryConfig
}

// UseCase wires repositories, ports and the certificate manager.
type UseCase struct {
	Repos *Repos
	Ports *Ports
	Certs *certificate.UseCase
	Cfg   Config
}

// ResolveDriver picks the driver for a template, honoring an explicit
// driver name when the template pins one. The conductor uses the same
// resolution when applying stack outputs.
func (u *UseCase) ResolveDriver(tpl *model.ClusterTemplate) (drivers.Driver, error) {
	tuple := drivers.COETuple{ServerType: tpl.ServerType, OS: tpl.ClusterDistro, COE: tpl.COE}
	if tpl.DriverName != "" {
		d, ok := drivers.Lookup(tpl.DriverName)
		if !ok {
			return nil, model.ErrTypeNotSupported
		}
		for _, name := range u.Cfg.EnabledDefinitions {
			if name == tpl.DriverName {
				return d, nil
			}
		}
		return nil, model.ErrTypeNotEnabled
	}
	return drivers.Resolve(u.Cfg.EnabledDefinitions, tuple)
}
