package model

import "time"

// Quota caps how many instances of a resource a project may hold.
// (ProjectID, Resource) is unique.
type Quota struct {
	ID        int64
	ProjectID string
	Resource  string
	HardLimit int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuotaResourceCluster is the only resource enforced at create time today.
const QuotaResourceCluster = "Cluster"
