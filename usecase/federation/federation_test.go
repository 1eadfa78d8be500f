package federation

import (
	"context"
	"errors"
	"testing"

	"github.com/stackmint/stackmint/adapters/store/inmem"
	"github.com/stackmint/stackmint/domain/model"
)

func newFixture(t *testing.T) (*UseCase, *model.RequestContext, *model.Cluster) {
	t.Helper()
	ctx := context.Background()
	store := inmem.NewStore("")
	rctx := &model.RequestContext{UserID: "u1", ProjectID: "p1"}

	host := &model.Cluster{Name: "host", ProjectID: "p1", UserID: "u1", Status: model.StatusCreateComplete}
	if err := store.ClusterRepo.Create(ctx, rctx, host); err != nil {
		t.Fatalf("create host cluster: %v", err)
	}
	uc := &UseCase{Repos: &Repos{
		Federation: store.FederationRepo,
		Cluster:    store.ClusterRepo,
	}}
	return uc, rctx, host
}

func addCluster(t *testing.T, uc *UseCase, rctx *model.RequestContext, name string) *model.Cluster {
	t.Helper()
	c := &model.Cluster{Name: name, ProjectID: rctx.ProjectID, UserID: rctx.UserID, Status: model.StatusCreateComplete}
	if err := uc.Repos.Cluster.Create(context.Background(), rctx, c); err != nil {
		t.Fatalf("create cluster %s: %v", name, err)
	}
	return c
}

func TestCreateResolvesHost(t *testing.T) {
	ctx := context.Background()
	uc, rctx, host := newFixture(t)

	out, err := uc.Create(ctx, rctx, &CreateInput{Name: "fed", HostCluster: "host"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Federation.HostClusterID != host.UUID {
		t.Errorf("host_cluster_id = %q, want resolved uuid", out.Federation.HostClusterID)
	}
	if out.Federation.ProjectID != "p1" {
		t.Errorf("project_id = %q", out.Federation.ProjectID)
	}
}

func TestCreateUnknownHost(t *testing.T) {
	ctx := context.Background()
	uc, rctx, _ := newFixture(t)

	_, err := uc.Create(ctx, rctx, &CreateInput{Name: "fed", HostCluster: "no-such-cluster"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemberJoinAndLeave(t *testing.T) {
	ctx := context.Background()
	uc, rctx, _ := newFixture(t)
	m1 := addCluster(t, uc, rctx, "m1")
	m2 := addCluster(t, uc, rctx, "m2")

	out, err := uc.Create(ctx, rctx, &CreateInput{Name: "fed", HostCluster: "host"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	up, err := uc.Update(ctx, rctx, &UpdateInput{
		Ident: out.Federation.UUID, AddMembers: []string{"m1", m2.UUID, "m1"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := up.Federation.MemberIDs; len(got) != 2 || got[0] != m1.UUID || got[1] != m2.UUID {
		t.Fatalf("member_ids = %v, want deduplicated [%s %s]", got, m1.UUID, m2.UUID)
	}

	up, err = uc.Update(ctx, rctx, &UpdateInput{
		Ident: out.Federation.UUID, RemoveMembers: []string{"m1"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := up.Federation.MemberIDs; len(got) != 1 || got[0] != m2.UUID {
		t.Fatalf("member_ids = %v, want [%s]", got, m2.UUID)
	}

	_, err = uc.Update(ctx, rctx, &UpdateInput{
		Ident: out.Federation.UUID, RemoveMembers: []string{"m1"},
	})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter removing a non-member", err)
	}
}

func TestHostCannotJoinAsMember(t *testing.T) {
	ctx := context.Background()
	uc, rctx, host := newFixture(t)
	out, err := uc.Create(ctx, rctx, &CreateInput{Name: "fed", HostCluster: host.UUID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = uc.Update(ctx, rctx, &UpdateInput{Ident: out.Federation.UUID, AddMembers: []string{host.UUID}})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	uc, rctx, _ := newFixture(t)
	out, err := uc.Create(ctx, rctx, &CreateInput{Name: "fed", HostCluster: "host"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uc.Delete(ctx, rctx, &DeleteInput{Ident: "fed"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := uc.Get(ctx, rctx, &GetInput{Ident: out.Federation.UUID}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
