// Package inmem provides map-backed repositories with the same semantics as
// the rdb store. Used by tests and by the dev mode of the CLI.
package inmem

import (
	"sort"
	"sync"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// Store owns all in-memory tables behind one lock.
type Store struct {
	mu              sync.RWMutex
	trusteeDomainID string

	nextID     int64
	clusters   map[string]*model.Cluster
	templates  map[string]*model.ClusterTemplate
	nodeGroups map[string]*model.NodeGroup
	keyPairs   map[string]*model.X509KeyPair
	quotas     map[string]*model.Quota // key project/resource
	feds       map[string]*model.Federation
	heartbeats map[string]*model.ServiceHeartbeat // key host/binary

	ClusterRepo         domain.ClusterRepository
	ClusterTemplateRepo domain.ClusterTemplateRepository
	NodeGroupRepo       domain.NodeGroupRepository
	X509KeyPairRepo     domain.X509KeyPairRepository
	QuotaRepo           domain.QuotaRepository
	FederationRepo      domain.FederationRepository
	HeartbeatRepo       domain.ServiceHeartbeatRepository
}

// NewStore creates an empty store.
func NewStore(trusteeDomainID string) *Store {
	s := &Store{
		trusteeDomainID: trusteeDomainID,
		clusters:        map[string]*model.Cluster{},
		templates:       map[string]*model.ClusterTemplate{},
		nodeGroups:      map[string]*model.NodeGroup{},
		keyPairs:        map[string]*model.X509KeyPair{},
		quotas:          map[string]*model.Quota{},
		feds:            map[string]*model.Federation{},
		heartbeats:      map[string]*model.ServiceHeartbeat{},
	}
	s.ClusterRepo = &clusterRepo{s: s}
	s.ClusterTemplateRepo = &templateRepo{s: s}
	s.NodeGroupRepo = &nodeGroupRepo{s: s}
	s.X509KeyPairRepo = &keyPairRepo{s: s}
	s.QuotaRepo = &quotaRepo{s: s}
	s.FederationRepo = &federationRepo{s: s}
	s.HeartbeatRepo = &heartbeatRepo{s: s}
	return s
}

// Repositories bundles the store's repositories for the use case layer.
func (s *Store) Repositories() *domain.Repositories {
	return &domain.Repositories{
		Cluster:         s.ClusterRepo,
		ClusterTemplate: s.ClusterTemplateRepo,
		NodeGroup:       s.NodeGroupRepo,
		X509KeyPair:     s.X509KeyPairRepo,
		Quota:           s.QuotaRepo,
		Federation:      s.FederationRepo,
		Heartbeat:       s.HeartbeatRepo,
	}
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

// visible reports whether a row owned by projectID is visible to rctx.
func (s *Store) visible(rctx *model.RequestContext, projectID string) bool {
	if rctx == nil {
		return true
	}
	if rctx.IsAdmin && rctx.AllTenants {
		return true
	}
	return projectID == rctx.EffectiveProjectID(s.trusteeDomainID)
}

// page applies marker/limit semantics to uuids already sorted by created_at
// with id tiebreak.
func page[T any](items []T, uuidOf func(T) string, opts domain.ListOpts) []T {
	if opts.Marker != "" {
		for i, it := range items {
			if uuidOf(it) == opts.Marker {
				items = items[i+1:]
				break
			}
		}
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}

func sortByID[T any](items []T, idOf func(T) int64, dir domain.SortDir) {
	sort.Slice(items, func(i, j int) bool {
		if dir == domain.SortDesc {
			return idOf(items[i]) > idOf(items[j])
		}
		return idOf(items[i]) < idOf(items[j])
	})
}
