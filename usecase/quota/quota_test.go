package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stackmint/stackmint/adapters/store/inmem"
	"github.com/stackmint/stackmint/domain/model"
)

func newUseCase() *UseCase {
	store := inmem.NewStore("")
	return &UseCase{Repos: &Repos{Quota: store.QuotaRepo}}
}

var (
	admin  = &model.RequestContext{UserID: "admin", ProjectID: "ops", IsAdmin: true, AllTenants: true}
	tenant = &model.RequestContext{UserID: "u1", ProjectID: "p1"}
)

func TestWritesRequireAdmin(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase()

	_, err := uc.Create(ctx, tenant, &CreateInput{ProjectID: "p1", Resource: model.QuotaResourceCluster, HardLimit: 5})
	if !errors.Is(err, model.ErrAuthorizationFailure) {
		t.Fatalf("Create: got %v, want ErrAuthorizationFailure", err)
	}
	_, err = uc.Update(ctx, tenant, &UpdateInput{ProjectID: "p1", Resource: model.QuotaResourceCluster, HardLimit: 5})
	if !errors.Is(err, model.ErrAuthorizationFailure) {
		t.Fatalf("Update: got %v, want ErrAuthorizationFailure", err)
	}
	_, err = uc.Delete(ctx, tenant, &DeleteInput{ProjectID: "p1", Resource: model.QuotaResourceCluster})
	if !errors.Is(err, model.ErrAuthorizationFailure) {
		t.Fatalf("Delete: got %v, want ErrAuthorizationFailure", err)
	}
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase()

	if _, err := uc.Create(ctx, admin, &CreateInput{
		ProjectID: "p1", Resource: model.QuotaResourceCluster, HardLimit: 5,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := uc.Get(ctx, tenant, &GetInput{Resource: model.QuotaResourceCluster})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Quota.HardLimit != 5 {
		t.Errorf("hard_limit = %d, want 5", got.Quota.HardLimit)
	}

	up, err := uc.Update(ctx, admin, &UpdateInput{
		ProjectID: "p1", Resource: model.QuotaResourceCluster, HardLimit: 10,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if up.Quota.HardLimit != 10 {
		t.Errorf("hard_limit = %d, want 10", up.Quota.HardLimit)
	}

	if _, err := uc.Delete(ctx, admin, &DeleteInput{ProjectID: "p1", Resource: model.QuotaResourceCluster}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := uc.Get(ctx, tenant, &GetInput{Resource: model.QuotaResourceCluster}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after delete", err)
	}
}

func TestGetForeignProjectDenied(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase()
	if _, err := uc.Create(ctx, admin, &CreateInput{
		ProjectID: "p2", Resource: model.QuotaResourceCluster, HardLimit: 1,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := uc.Get(ctx, tenant, &GetInput{ProjectID: "p2", Resource: model.QuotaResourceCluster})
	if !errors.Is(err, model.ErrAuthorizationFailure) {
		t.Fatalf("got %v, want ErrAuthorizationFailure", err)
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase()

	_, err := uc.Create(ctx, admin, &CreateInput{ProjectID: "p1", Resource: "Network", HardLimit: 1})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter for unknown resource", err)
	}
	_, err = uc.Create(ctx, admin, &CreateInput{ProjectID: "p1", Resource: model.QuotaResourceCluster, HardLimit: -1})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter for negative limit", err)
	}
}
