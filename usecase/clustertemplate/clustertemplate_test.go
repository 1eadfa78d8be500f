package clustertemplate

import (
	"context"
	"errors"
	"testing"

	"github.com/stackmint/stackmint/adapters/store/inmem"
	"github.com/stackmint/stackmint/domain/model"
)

func newUseCase() (*UseCase, *inmem.Store, *model.RequestContext) {
	store := inmem.NewStore("")
	uc := &UseCase{Repos: &Repos{
		ClusterTemplate: store.ClusterTemplateRepo,
		Cluster:         store.ClusterRepo,
	}}
	return uc, store, &model.RequestContext{UserID: "u1", ProjectID: "p1"}
}

func validInput() *CreateInput {
	return &CreateInput{
		Name:              "k8s-tpl",
		ImageID:           "fedora-atomic-27",
		ExternalNetworkID: "public",
		ClusterDistro:     "fedora-atomic",
		COE:               model.COEKubernetes,
	}
}

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	uc, _, rctx := newUseCase()

	out, err := uc.Create(ctx, rctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tpl := out.ClusterTemplate
	if tpl.UUID == "" {
		t.Error("uuid not assigned")
	}
	if tpl.ServerType != model.ServerTypeVM {
		t.Errorf("server_type = %s, want vm default", tpl.ServerType)
	}
	if !tpl.FloatingIPEnabled {
		t.Error("floating_ip_enabled must default to true")
	}
	if tpl.ProjectID != "p1" || tpl.UserID != "u1" {
		t.Error("ownership must come from the request context")
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	uc, _, rctx := newUseCase()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		want   error
	}{
		{"missing name", func(in *CreateInput) { in.Name = "" }, model.ErrInvalidParameter},
		{"missing image", func(in *CreateInput) { in.ImageID = "" }, model.ErrInvalidParameter},
		{"missing external network", func(in *CreateInput) { in.ExternalNetworkID = "" }, model.ErrInvalidParameter},
		{"unknown coe", func(in *CreateInput) { in.COE = "nomad" }, model.ErrInvalidParameter},
		{"unservable tuple", func(in *CreateInput) { in.ClusterDistro = "gentoo" }, model.ErrTypeNotSupported},
		{"unknown driver", func(in *CreateInput) { in.DriverName = "no-such-driver" }, model.ErrTypeNotSupported},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(in)
			_, err := uc.Create(ctx, rctx, in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUpdateMutableWhileReferenced(t *testing.T) {
	ctx := context.Background()
	uc, store, rctx := newUseCase()
	out, err := uc.Create(ctx, rctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tpl := out.ClusterTemplate
	if err := store.ClusterRepo.Create(ctx, rctx, &model.Cluster{
		Name: "c1", ProjectID: "p1", UserID: "u1", ClusterTemplateID: tpl.UUID,
	}); err != nil {
		t.Fatalf("create cluster: %v", err)
	}

	hidden := true
	updated, err := uc.Update(ctx, rctx, &UpdateInput{Ident: tpl.UUID, Hidden: &hidden})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.ClusterTemplate.Hidden {
		t.Error("hidden not applied")
	}

	_, err = uc.Update(ctx, rctx, &UpdateInput{
		Ident: tpl.UUID,
		Patch: map[string]interface{}{"image_id": "fedora-atomic-29"},
	})
	if !errors.Is(err, model.ErrClusterTemplateReferenced) {
		t.Fatalf("got %v, want ErrClusterTemplateReferenced", err)
	}
}

func TestUpdateFullPatchWhenUnreferenced(t *testing.T) {
	ctx := context.Background()
	uc, _, rctx := newUseCase()
	out, err := uc.Create(ctx, rctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := uc.Update(ctx, rctx, &UpdateInput{
		Ident: out.ClusterTemplate.UUID,
		Patch: map[string]interface{}{"image_id": "fedora-atomic-29", "flavor": "m1.large"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ClusterTemplate.ImageID != "fedora-atomic-29" {
		t.Errorf("image_id = %q", updated.ClusterTemplate.ImageID)
	}
	if updated.ClusterTemplate.Flavor != "m1.large" {
		t.Errorf("flavor = %q", updated.ClusterTemplate.Flavor)
	}
}

func TestDeleteGatedByReferences(t *testing.T) {
	ctx := context.Background()
	uc, store, rctx := newUseCase()
	out, err := uc.Create(ctx, rctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tpl := out.ClusterTemplate
	c := &model.Cluster{Name: "c1", ProjectID: "p1", UserID: "u1", ClusterTemplateID: tpl.UUID}
	if err := store.ClusterRepo.Create(ctx, rctx, c); err != nil {
		t.Fatalf("create cluster: %v", err)
	}

	_, err = uc.Delete(ctx, rctx, &DeleteInput{Ident: tpl.UUID})
	if !errors.Is(err, model.ErrClusterTemplateReferenced) {
		t.Fatalf("got %v, want ErrClusterTemplateReferenced", err)
	}

	if err := store.ClusterRepo.Destroy(ctx, rctx, c.UUID); err != nil {
		t.Fatalf("destroy cluster: %v", err)
	}
	if _, err := uc.Delete(ctx, rctx, &DeleteInput{Ident: tpl.UUID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := uc.Get(ctx, rctx, &GetInput{Ident: tpl.UUID}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPublicTemplateVisibleAcrossTenants(t *testing.T) {
	ctx := context.Background()
	uc, _, rctx := newUseCase()
	in := validInput()
	in.Public = true
	out, err := uc.Create(ctx, rctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	other := &model.RequestContext{UserID: "u2", ProjectID: "p2"}
	got, err := uc.Get(ctx, other, &GetInput{Ident: out.ClusterTemplate.UUID})
	if err != nil {
		t.Fatalf("Get as other tenant: %v", err)
	}
	if got.ClusterTemplate.UUID != out.ClusterTemplate.UUID {
		t.Error("wrong template returned")
	}
}
