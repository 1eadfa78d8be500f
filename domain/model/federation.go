package model

import "time"

// Federation groups member clusters under a host cluster. Persisted aggregate
// only; no lifecycle engine drives it.
type Federation struct {
	ID            int64
	UUID          string
	ProjectID     string
	Name          string
	HostClusterID string
	MemberIDs     []string
	Status        Status
	StatusReason  string
	Properties    map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
