package model

import "time"

// Cluster is a materialized COE deployment instance backed by a stack in the
// orchestration engine. Node and master counts are never stored on the
// cluster row; they aggregate from the node groups.
type Cluster struct {
	ID        int64
	UUID      string
	ProjectID string
	UserID    string

	Name              string
	ClusterTemplateID string
	Keypair           string
	Flavor            string
	MasterFlavor      string
	DockerVolumeSize  int
	Labels            map[string]string

	StackID            string
	Status             Status
	StatusReason       string
	HealthStatus       HealthStatus
	HealthStatusReason map[string]string

	CreateTimeout int // minutes
	APIAddress    string
	DiscoveryURL  string

	CACertRef           string
	ClientCertRef       string
	EtcdCACertRef       string
	FrontProxyCACertRef string

	TrustID         string
	TrusteeUserID   string
	TrusteeUsername string
	TrusteePassword string

	COEVersion       string
	ContainerVersion string

	FixedNetwork      string
	FixedSubnet       string
	FloatingIPEnabled bool
	MasterLBEnabled   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NodeCount sums worker nodes across the given node groups.
func (c *Cluster) NodeCount(groups []*NodeGroup) int {
	n := 0
	for _, ng := range groups {
		if ng.Role != NodeGroupRoleMaster {
			n += ng.NodeCount
		}
	}
	return n
}

// MasterCount sums master nodes across the given node groups.
func (c *Cluster) MasterCount(groups []*NodeGroup) int {
	n := 0
	for _, ng := range groups {
		if ng.Role == NodeGroupRoleMaster {
			n += ng.NodeCount
		}
	}
	return n
}

// NodeAddresses aggregates worker addresses across the given node groups.
func (c *Cluster) NodeAddresses(groups []*NodeGroup) []string {
	var out []string
	for _, ng := range groups {
		if ng.Role != NodeGroupRoleMaster {
			out = append(out, ng.NodeAddresses...)
		}
	}
	return out
}

// MasterAddresses aggregates master addresses across the given node groups.
func (c *Cluster) MasterAddresses(groups []*NodeGroup) []string {
	var out []string
	for _, ng := range groups {
		if ng.Role == NodeGroupRoleMaster {
			out = append(out, ng.NodeAddresses...)
		}
	}
	return out
}

// TrusteeName returns the trustee user name minted for the cluster,
// "<cluster-uuid>_<project-id>". RequestContext.TrusteeProjectID relies on
// this shape to recover tenancy for trustee callers.
func (c *Cluster) TrusteeName() string {
	return c.UUID + "_" + c.ProjectID
}
