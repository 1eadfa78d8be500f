package model

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		status       Status
		inProgress   bool
		allowsUpdate bool
		allowsDelete bool
	}{
		{StatusCreateInProgress, true, false, false},
		{StatusCreateComplete, false, true, true},
		{StatusCreateFailed, false, false, true},
		{StatusUpdateInProgress, true, false, false},
		{StatusUpdateComplete, false, true, true},
		{StatusUpdateFailed, false, true, true},
		{StatusDeleteInProgress, true, false, false},
		{StatusDeleteComplete, false, false, false},
		{StatusDeleteFailed, false, false, true},
		{StatusRollbackInProgress, true, false, false},
		{StatusRollbackComplete, false, true, true},
		{StatusAdoptComplete, false, true, true},
	}
	for _, tc := range cases {
		if got := tc.status.InProgress(); got != tc.inProgress {
			t.Errorf("%s.InProgress() = %v, want %v", tc.status, got, tc.inProgress)
		}
		if got := tc.status.AllowsUpdate(); got != tc.allowsUpdate {
			t.Errorf("%s.AllowsUpdate() = %v, want %v", tc.status, got, tc.allowsUpdate)
		}
		if got := tc.status.AllowsDelete(); got != tc.allowsDelete {
			t.Errorf("%s.AllowsDelete() = %v, want %v", tc.status, got, tc.allowsDelete)
		}
	}
}

func TestTrusteeProjectID(t *testing.T) {
	cases := []struct {
		userName string
		want     string
	}{
		{"6b1aaebb-a60e-4e76-8982-a953be9e0e2c_project9", "project9"},
		{"plain-user", ""},
		{"trailing_", ""},
		{"", ""},
	}
	for _, tc := range cases {
		rctx := &RequestContext{UserName: tc.userName}
		if got := rctx.TrusteeProjectID(); got != tc.want {
			t.Errorf("TrusteeProjectID(%q) = %q, want %q", tc.userName, got, tc.want)
		}
	}
}

func TestEffectiveProjectID(t *testing.T) {
	cl := &Cluster{UUID: "u-1", ProjectID: "p-1"}
	trustee := &RequestContext{
		UserName:  cl.TrusteeName(),
		ProjectID: "trustee-project",
		DomainID:  "trustee-domain",
	}
	if got := trustee.EffectiveProjectID("trustee-domain"); got != "p-1" {
		t.Errorf("trustee caller scoped to %q, want owning project p-1", got)
	}
	// Outside the trustee domain the caller's own project applies.
	if got := trustee.EffectiveProjectID("other-domain"); got != "trustee-project" {
		t.Errorf("non-trustee caller scoped to %q", got)
	}
}

func TestClusterAggregation(t *testing.T) {
	c := &Cluster{UUID: "u-1"}
	groups := []*NodeGroup{
		{Role: NodeGroupRoleMaster, NodeCount: 1, NodeAddresses: []string{"10.0.0.1"}},
		{Role: NodeGroupRoleWorker, NodeCount: 3, NodeAddresses: []string{"10.0.0.2", "10.0.0.3", "10.0.0.4"}},
		{Role: NodeGroupRoleWorker, NodeCount: 2, NodeAddresses: []string{"10.0.1.2", "10.0.1.3"}},
	}
	if got := c.MasterCount(groups); got != 1 {
		t.Errorf("MasterCount = %d", got)
	}
	if got := c.NodeCount(groups); got != 5 {
		t.Errorf("NodeCount = %d", got)
	}
	if got := c.NodeAddresses(groups); len(got) != 5 {
		t.Errorf("NodeAddresses = %v", got)
	}
	if got := c.MasterAddresses(groups); len(got) != 1 || got[0] != "10.0.0.1" {
		t.Errorf("MasterAddresses = %v", got)
	}
}

func TestNodeGroupValidateCounts(t *testing.T) {
	three := 3
	cases := []struct {
		name string
		ng   NodeGroup
		ok   bool
	}{
		{"within bounds", NodeGroup{NodeCount: 2, MinNodeCount: 1, MaxNodeCount: &three}, true},
		{"below min", NodeGroup{NodeCount: 0, MinNodeCount: 1}, false},
		{"above max", NodeGroup{NodeCount: 5, MaxNodeCount: &three}, false},
		{"negative count", NodeGroup{NodeCount: -1}, false},
		{"no max", NodeGroup{NodeCount: 100}, true},
	}
	for _, tc := range cases {
		err := tc.ng.ValidateCounts()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
