// Package clustertemplate implements CRUD for cluster templates. Templates
// are reference-gated: while clusters point at one, only a handful of
// cosmetic attributes may change and the template cannot be deleted.
package clustertemplate

import (
	"github.com/stackmint/stackmint/domain"
)

// Repos holds repositories needed for cluster template use cases.
type Repos struct {
	ClusterTemplate domain.ClusterTemplateRepository
	// Cluster provides the reference count gating updates and deletes.
	Cluster domain.ClusterRepository
}

// UseCase implements the cluster template operations.
type UseCase struct {
	Repos *Repos
}
