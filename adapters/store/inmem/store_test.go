package inmem

import (
	"context"
	"errors"
	"testing"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

var (
	tenantA = &model.RequestContext{UserID: "ua", ProjectID: "project-a"}
	tenantB = &model.RequestContext{UserID: "ub", ProjectID: "project-b"}
	admin   = &model.RequestContext{UserID: "root", IsAdmin: true, AllTenants: true}
)

func seedCluster(t *testing.T, s *Store, rctx *model.RequestContext, name string) *model.Cluster {
	t.Helper()
	c := &model.Cluster{
		Name:              name,
		ProjectID:         rctx.ProjectID,
		UserID:            rctx.UserID,
		ClusterTemplateID: "tpl-1",
		Status:            model.StatusCreateInProgress,
	}
	if err := s.ClusterRepo.Create(context.Background(), rctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func TestClusterTenantIsolation(t *testing.T) {
	s := NewStore("")
	ctx := context.Background()
	ca := seedCluster(t, s, tenantA, "mine")
	seedCluster(t, s, tenantB, "theirs")

	if _, err := s.ClusterRepo.Get(ctx, tenantB, ca.UUID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("cross-tenant get err = %v, want ErrNotFound", err)
	}
	got, err := s.ClusterRepo.Get(ctx, tenantA, "mine")
	if err != nil || got.UUID != ca.UUID {
		t.Fatalf("get by name = %v, %v", got, err)
	}

	mine, err := s.ClusterRepo.List(ctx, tenantA, domain.ListOpts{})
	if err != nil || len(mine) != 1 {
		t.Fatalf("tenant list = %d clusters, err %v", len(mine), err)
	}
	all, err := s.ClusterRepo.List(ctx, admin, domain.ListOpts{})
	if err != nil || len(all) != 2 {
		t.Fatalf("admin list = %d clusters, err %v", len(all), err)
	}
}

func TestClusterGetAmbiguousName(t *testing.T) {
	s := NewStore("")
	seedCluster(t, s, tenantA, "dup")
	seedCluster(t, s, tenantA, "dup")
	if _, err := s.ClusterRepo.Get(context.Background(), tenantA, "dup"); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict for ambiguous name", err)
	}
}

func TestClusterUpdateRejectsUnknownColumn(t *testing.T) {
	s := NewStore("")
	ctx := context.Background()
	c := seedCluster(t, s, tenantA, "c1")

	got, err := s.ClusterRepo.Update(ctx, tenantA, c.UUID, map[string]interface{}{
		"status":        model.StatusCreateComplete,
		"status_reason": "stack completed",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != model.StatusCreateComplete || got.StatusReason != "stack completed" {
		t.Fatalf("updated cluster = %+v", got)
	}

	if _, err := s.ClusterRepo.Update(ctx, tenantA, c.UUID, map[string]interface{}{"uuid": "x"}); !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("uuid update err = %v, want ErrInvalidParameter", err)
	}
}

func TestTrusteeCallerSeesOwningProject(t *testing.T) {
	s := NewStore("trustee-domain")
	ctx := context.Background()
	c := seedCluster(t, s, tenantA, "c1")

	trustee := &model.RequestContext{
		UserName:  c.TrusteeName(),
		ProjectID: "service-project",
		DomainID:  "trustee-domain",
	}
	got, err := s.ClusterRepo.Get(ctx, trustee, c.UUID)
	if err != nil {
		t.Fatalf("trustee get: %v", err)
	}
	if got.UUID != c.UUID {
		t.Fatalf("trustee resolved %s", got.UUID)
	}
}

func TestCountByTemplateAndStats(t *testing.T) {
	s := NewStore("")
	ctx := context.Background()
	c1 := seedCluster(t, s, tenantA, "c1")
	c2 := seedCluster(t, s, tenantA, "c2")
	seedCluster(t, s, tenantB, "c3")

	n, err := s.ClusterRepo.CountByTemplate(ctx, "tpl-1")
	if err != nil || n != 3 {
		t.Fatalf("CountByTemplate = %d, %v", n, err)
	}

	for i, c := range []*model.Cluster{c1, c2} {
		ng := &model.NodeGroup{
			Name:      "default-worker",
			ClusterID: c.UUID,
			ProjectID: tenantA.ProjectID,
			Role:      model.NodeGroupRoleWorker,
			NodeCount: i + 2,
		}
		if err := s.NodeGroupRepo.Create(ctx, tenantA, ng); err != nil {
			t.Fatalf("node group create: %v", err)
		}
	}

	clusters, nodes, err := s.ClusterRepo.Stats(ctx, tenantA.ProjectID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if clusters != 2 || nodes != 5 {
		t.Fatalf("Stats = %d clusters %d nodes, want 2/5", clusters, nodes)
	}
}

func TestClusterListPagination(t *testing.T) {
	s := NewStore("")
	ctx := context.Background()
	var uuids []string
	for _, name := range []string{"a", "b", "c", "d"} {
		uuids = append(uuids, seedCluster(t, s, tenantA, name).UUID)
	}

	first, err := s.ClusterRepo.List(ctx, tenantA, domain.ListOpts{Limit: 2})
	if err != nil || len(first) != 2 {
		t.Fatalf("first page = %d, err %v", len(first), err)
	}
	second, err := s.ClusterRepo.List(ctx, tenantA, domain.ListOpts{Limit: 2, Marker: first[1].UUID})
	if err != nil || len(second) != 2 {
		t.Fatalf("second page = %d, err %v", len(second), err)
	}
	if first[0].UUID == second[0].UUID {
		t.Fatal("pages overlap")
	}
	_ = uuids
}

func TestQuotaRoundTrip(t *testing.T) {
	s := NewStore("")
	ctx := context.Background()
	q := &model.Quota{ProjectID: "project-a", Resource: model.QuotaResourceCluster, HardLimit: 5}
	if err := s.QuotaRepo.Create(ctx, admin, q); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.QuotaRepo.Create(ctx, admin, q); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("duplicate create err = %v", err)
	}

	got, err := s.QuotaRepo.GetByProjectResource(ctx, "project-a", model.QuotaResourceCluster)
	if err != nil || got.HardLimit != 5 {
		t.Fatalf("GetByProjectResource = %+v, %v", got, err)
	}

	if _, err := s.QuotaRepo.Update(ctx, admin, "project-a", model.QuotaResourceCluster, 9); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = s.QuotaRepo.GetByProjectResource(ctx, "project-a", model.QuotaResourceCluster)
	if got.HardLimit != 9 {
		t.Fatalf("HardLimit = %d after update", got.HardLimit)
	}

	if err := s.QuotaRepo.Destroy(ctx, admin, "project-a", model.QuotaResourceCluster); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := s.QuotaRepo.GetByProjectResource(ctx, "project-a", model.QuotaResourceCluster); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err after destroy = %v", err)
	}
}

func TestHeartbeatTouch(t *testing.T) {
	s := NewStore("")
	ctx := context.Background()
	hb, err := s.HeartbeatRepo.Touch(ctx, "node-1", "stackmint-conductor")
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if hb.ReportCount != 1 {
		t.Fatalf("ReportCount = %d", hb.ReportCount)
	}
	hb2, err := s.HeartbeatRepo.Touch(ctx, "node-1", "stackmint-conductor")
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if hb2.ReportCount != 2 || hb2.ID != hb.ID {
		t.Fatalf("second touch = %+v", hb2)
	}
	rows, err := s.HeartbeatRepo.List(ctx)
	if err != nil || len(rows) != 1 {
		t.Fatalf("List = %d rows, %v", len(rows), err)
	}
}
