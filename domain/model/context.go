package model

import "strings"

// RequestContext identifies the caller of an operation. It is an immutable
// value threaded explicitly through repositories, use cases and ports; never
// stash it in package globals.
type RequestContext struct {
	UserID     string
	UserName   string
	ProjectID  string
	DomainID   string
	AuthToken  string
	TrustID    string
	Roles      []string
	IsAdmin    bool
	AllTenants bool
	RequestID  string
}

// AdminContext returns a context with full visibility, used by the conductor's
// internal loops (reconciler, heartbeat, health poller).
func AdminContext() *RequestContext {
	return &RequestContext{IsAdmin: true, AllTenants: true, UserName: "stackmint-conductor"}
}

// TrusteeProjectID recovers the owning project from a per-cluster trustee
// user name, which is minted as "<cluster-uuid>_<project-id>". Returns empty
// if the name does not follow the convention.
func (c *RequestContext) TrusteeProjectID() string {
	i := strings.LastIndex(c.UserName, "_")
	if i < 0 || i == len(c.UserName)-1 {
		return ""
	}
	return c.UserName[i+1:]
}

// EffectiveProjectID is the project rows are scoped to for this caller:
// the trustee-encoded project when the caller is a per-cluster trustee,
// otherwise the caller's own project.
func (c *RequestContext) EffectiveProjectID(trusteeDomainID string) string {
	if trusteeDomainID != "" && c.DomainID == trusteeDomainID {
		if pid := c.TrusteeProjectID(); pid != "" {
			return pid
		}
	}
	return c.ProjectID
}
