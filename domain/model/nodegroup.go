package model

import (
	"fmt"
	"time"
)

// NodeGroupRole distinguishes control-plane pools from worker pools.
type NodeGroupRole string

const (
	NodeGroupRoleMaster NodeGroupRole = "master"
	NodeGroupRoleWorker NodeGroupRole = "worker"
)

// NodeGroup is a homogeneous pool of nodes within a cluster. (ClusterID, Name)
// is unique. Every cluster keeps exactly one default master group and one
// default worker group for as long as it exists.
type NodeGroup struct {
	ID        int64
	UUID      string
	ProjectID string

	Name             string
	ClusterID        string // cluster UUID
	Role             NodeGroupRole
	Flavor           string
	ImageID          string
	DockerVolumeSize int
	Labels           map[string]string

	NodeAddresses []string
	NodeCount     int
	MinNodeCount  int
	MaxNodeCount  *int
	IsDefault     bool

	StackID      string
	Status       Status
	StatusReason string
	Version      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateCounts enforces the node-count invariants for the group.
func (ng *NodeGroup) ValidateCounts() error {
	if ng.NodeCount < 0 {
		return fmt.Errorf("%w: node_count must be >= 0", ErrInvalidParameter)
	}
	if ng.MinNodeCount < 0 {
		return fmt.Errorf("%w: min_node_count must be >= 0", ErrInvalidParameter)
	}
	if ng.NodeCount < ng.MinNodeCount {
		return fmt.Errorf("%w: node_count %d below min_node_count %d", ErrInvalidParameter, ng.NodeCount, ng.MinNodeCount)
	}
	if ng.MaxNodeCount != nil && ng.NodeCount > *ng.MaxNodeCount {
		return fmt.Errorf("%w: node_count %d above max_node_count %d", ErrInvalidParameter, ng.NodeCount, *ng.MaxNodeCount)
	}
	return nil
}
