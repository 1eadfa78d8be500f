package model

import "time"

// ServiceHeartbeat is one conductor's liveness row, advanced on every
// reconciler tick.
type ServiceHeartbeat struct {
	ID             int64
	Host           string
	Binary         string
	Disabled       bool
	DisabledReason string
	LastSeenUp     time.Time
	ForcedDown     bool
	ReportCount    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
