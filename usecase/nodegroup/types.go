// Package nodegroup implements CRUD for node groups. The default master and
// worker groups are created with the cluster and protected here: they cannot
// be deleted and the master role cannot be added after the fact.
package nodegroup

import (
	"github.com/stackmint/stackmint/domain"
)

// Repos holds repositories needed for node group use cases.
type Repos struct {
	NodeGroup       domain.NodeGroupRepository
	Cluster         domain.ClusterRepository
	ClusterTemplate domain.ClusterTemplateRepository
}

// UseCase implements the node group operations.
type UseCase struct {
	Repos *Repos
}
