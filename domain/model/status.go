package model

// Status is the lifecycle state of a cluster or node group. The values mirror
// the orchestration engine's stack status strings so the reconciler can copy
// them over verbatim.
type Status string

const (
	StatusCreateInProgress   Status = "CREATE_IN_PROGRESS"
	StatusCreateComplete     Status = "CREATE_COMPLETE"
	StatusCreateFailed       Status = "CREATE_FAILED"
	StatusUpdateInProgress   Status = "UPDATE_IN_PROGRESS"
	StatusUpdateComplete     Status = "UPDATE_COMPLETE"
	StatusUpdateFailed       Status = "UPDATE_FAILED"
	StatusDeleteInProgress   Status = "DELETE_IN_PROGRESS"
	StatusDeleteComplete     Status = "DELETE_COMPLETE"
	StatusDeleteFailed       Status = "DELETE_FAILED"
	StatusRollbackInProgress Status = "ROLLBACK_IN_PROGRESS"
	StatusRollbackComplete   Status = "ROLLBACK_COMPLETE"
	StatusRollbackFailed     Status = "ROLLBACK_FAILED"
	StatusResumeFailed       Status = "RESUME_FAILED"
	StatusRestoreComplete    Status = "RESTORE_COMPLETE"
	StatusAdoptComplete      Status = "ADOPT_COMPLETE"
	StatusSnapshotComplete   Status = "SNAPSHOT_COMPLETE"
	StatusCheckComplete      Status = "CHECK_COMPLETE"
)

// HealthStatus is the monitor-observed health of a cluster.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
)

// InProgress reports whether the status is transient and owned by the
// reconciler until the orchestration engine settles.
func (s Status) InProgress() bool {
	switch s {
	case StatusCreateInProgress, StatusUpdateInProgress, StatusDeleteInProgress, StatusRollbackInProgress:
		return true
	}
	return false
}

// AllowsUpdate reports whether an update/resize/upgrade may start from s.
func (s Status) AllowsUpdate() bool {
	switch s {
	case StatusCreateComplete, StatusUpdateComplete, StatusUpdateFailed,
		StatusRollbackComplete, StatusRestoreComplete, StatusAdoptComplete,
		StatusSnapshotComplete, StatusCheckComplete:
		return true
	}
	return false
}

// AllowsDelete reports whether a delete may start from s. Every settled state
// is deletable, including all *_FAILED states; only in-progress transitions
// are refused so an operation in flight is not torn down underneath itself.
func (s Status) AllowsDelete() bool {
	return !s.InProgress() && s != StatusDeleteComplete
}
