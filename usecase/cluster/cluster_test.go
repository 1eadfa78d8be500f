package cluster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stackmint/stackmint/adapters/certstore"
	"github.com/stackmint/stackmint/adapters/store/inmem"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/drivers"
	"github.com/stackmint/stackmint/usecase/certificate"
)

type stackPortMock struct {
	createFn func(ctx context.Context, req *model.StackCreateRequest) (string, error)
	updateFn func(ctx context.Context, req *model.StackUpdateRequest) error
	getFn    func(ctx context.Context, stackID string) (*model.Stack, error)
	listFn   func(ctx context.Context, stackIDs []string) ([]*model.Stack, error)
	deleteFn func(ctx context.Context, stackID string) error
}

func (m *stackPortMock) Create(ctx context.Context, req *model.StackCreateRequest) (string, error) {
	if m.createFn == nil {
		return "stack-1", nil
	}
	return m.createFn(ctx, req)
}

func (m *stackPortMock) Update(ctx context.Context, req *model.StackUpdateRequest) error {
	if m.updateFn == nil {
		return nil
	}
	return m.updateFn(ctx, req)
}

func (m *stackPortMock) Get(ctx context.Context, stackID string) (*model.Stack, error) {
	if m.getFn == nil {
		return &model.Stack{ID: stackID, Status: model.StatusCreateComplete}, nil
	}
	return m.getFn(ctx, stackID)
}

func (m *stackPortMock) List(ctx context.Context, stackIDs []string) ([]*model.Stack, error) {
	if m.listFn == nil {
		return nil, nil
	}
	return m.listFn(ctx, stackIDs)
}

func (m *stackPortMock) Delete(ctx context.Context, stackID string) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, stackID)
}

type identityPortMock struct {
	deletedTrusts   []string
	deletedTrustees []string
}

func (m *identityPortMock) ResolveCaller(ctx context.Context, rctx *model.RequestContext) (string, string, error) {
	return rctx.UserID, rctx.ProjectID, nil
}

func (m *identityPortMock) CreateTrustee(ctx context.Context, username, password string) (*model.Trustee, error) {
	return &model.Trustee{UserID: "trustee-uid", Username: username, Password: password}, nil
}

func (m *identityPortMock) DeleteTrustee(ctx context.Context, userID string) error {
	m.deletedTrustees = append(m.deletedTrustees, userID)
	return nil
}

func (m *identityPortMock) CreateTrust(ctx context.Context, rctx *model.RequestContext, trusteeUserID string) (string, error) {
	return "trust-1", nil
}

func (m *identityPortMock) DeleteTrust(ctx context.Context, rctx *model.RequestContext, trustID string) error {
	m.deletedTrusts = append(m.deletedTrusts, trustID)
	return nil
}

type fixture struct {
	uc       *UseCase
	store    *inmem.Store
	stack    *stackPortMock
	identity *identityPortMock
	rctx     *model.RequestContext
	tpl      *model.ClusterTemplate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmem.NewStore("")
	certStore, err := certstore.New("x509keypair", certstore.Deps{KeyPairs: store.X509KeyPairRepo})
	if err != nil {
		t.Fatalf("cert store: %v", err)
	}
	stack := &stackPortMock{}
	identity := &identityPortMock{}
	rctx := &model.RequestContext{UserID: "u1", ProjectID: "p1", AuthToken: "tok"}

	tpl := &model.ClusterTemplate{
		Name:              "k8s-tpl",
		ProjectID:         "p1",
		UserID:            "u1",
		ImageID:           "fedora-atomic-27",
		Flavor:            "m1.small",
		MasterFlavor:      "m1.medium",
		Keypair:           "default",
		ExternalNetworkID: "public",
		ClusterDistro:     "fedora-atomic",
		COE:               model.COEKubernetes,
		ServerType:        model.ServerTypeVM,
	}
	if err := store.ClusterTemplateRepo.Create(context.Background(), rctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	uc := &UseCase{
		Repos: &Repos{
			Cluster:         store.ClusterRepo,
			ClusterTemplate: store.ClusterTemplateRepo,
			NodeGroup:       store.NodeGroupRepo,
			Quota:           store.QuotaRepo,
		},
		Ports: &Ports{Stack: stack, Identity: identity},
		Certs: &certificate.UseCase{
			Repos:     &certificate.Repos{Cluster: store.ClusterRepo},
			CertStore: certStore,
			KeySize:   2048,
		},
		Cfg: Config{
			EnabledDefinitions: []string{
				"stackmint_vm_atomic_k8s",
				"stackmint_vm_atomic_swarm",
			},
			CreateTimeout: 60,
			Discovery:     drivers.DiscoveryConfig{URLFormat: "etcd://%(cluster_uuid)s"},
		},
	}
	return &fixture{uc: uc, store: store, stack: stack, identity: identity, rctx: rctx, tpl: tpl}
}

func TestCreateSubmitsStack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var req *model.StackCreateRequest
	f.stack.createFn = func(ctx context.Context, r *model.StackCreateRequest) (string, error) {
		req = r
		return "stack-1", nil
	}

	out, err := f.uc.Create(ctx, f.rctx, &CreateInput{
		Name:            "k8s",
		ClusterTemplate: f.tpl.UUID,
		NodeCount:       3,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	c := out.Cluster
	if c.Status != model.StatusCreateInProgress {
		t.Errorf("status = %s, want CREATE_IN_PROGRESS", c.Status)
	}
	if c.StackID != "stack-1" {
		t.Errorf("stack_id = %q", c.StackID)
	}
	if c.TrustID != "trust-1" || c.TrusteeUserID != "trustee-uid" {
		t.Error("trustee fields not recorded")
	}
	if c.TrusteeUsername != c.UUID+"_p1" {
		t.Errorf("trustee username = %q, want <uuid>_<project>", c.TrusteeUsername)
	}
	if c.CACertRef == "" || c.ClientCertRef == "" {
		t.Error("cert refs not recorded")
	}
	if c.EtcdCACertRef == "" {
		t.Error("kubernetes cluster must get an etcd CA")
	}
	if c.DiscoveryURL != "etcd://"+c.UUID {
		t.Errorf("discovery_url = %q", c.DiscoveryURL)
	}

	if req == nil {
		t.Fatal("no stack create submitted")
	}
	if !strings.HasPrefix(req.Name, "k8s-") || len(req.Name) != len("k8s-")+8 {
		t.Errorf("stack name = %q, want k8s-<8 char suffix>", req.Name)
	}
	if req.TimeoutMins != 60 {
		t.Errorf("timeout = %d, want config default 60", req.TimeoutMins)
	}
	if req.Parameters["number_of_minions"] != "3" {
		t.Errorf("number_of_minions = %v", req.Parameters["number_of_minions"])
	}
	if req.Parameters["trust_id"] != "trust-1" {
		t.Error("trustee credentials must be injected into the parameters")
	}

	persisted, err := f.store.ClusterRepo.Get(ctx, f.rctx, c.UUID)
	if err != nil {
		t.Fatalf("get persisted: %v", err)
	}
	if persisted.StackID != "stack-1" || persisted.TrustID != "trust-1" {
		t.Error("milestones not persisted on the row")
	}

	groups, err := f.store.NodeGroupRepo.ListByCluster(ctx, f.rctx, c.UUID, domainListAll())
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d node groups, want default master and worker", len(groups))
	}
}

func TestCreatePreStackFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stack.createFn = func(ctx context.Context, r *model.StackCreateRequest) (string, error) {
		return "", fmt.Errorf("engine unavailable")
	}

	_, err := f.uc.Create(ctx, f.rctx, &CreateInput{Name: "k8s", ClusterTemplate: f.tpl.UUID})
	if err == nil {
		t.Fatal("expected create to fail")
	}

	c, err := f.store.ClusterRepo.Get(ctx, f.rctx, "k8s")
	if err != nil {
		t.Fatalf("cluster row must survive for inspection: %v", err)
	}
	if c.Status != model.StatusCreateFailed {
		t.Errorf("status = %s, want CREATE_FAILED", c.Status)
	}
	if c.StatusReason == "" {
		t.Error("status_reason must carry the failure")
	}
	if len(f.identity.deletedTrusts) != 1 || len(f.identity.deletedTrustees) != 1 {
		t.Error("trust and trustee must be rolled back")
	}
	// Stored certificates must be gone.
	if _, err := f.uc.Certs.CertStore.Get(ctx, c.CACertRef, false); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("CA must be rolled back, got %v", err)
	}
}

func TestCreateQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if err := f.store.QuotaRepo.Create(ctx, f.rctx, &model.Quota{
		ProjectID: "p1", Resource: model.QuotaResourceCluster, HardLimit: 1,
	}); err != nil {
		t.Fatalf("create quota: %v", err)
	}
	if _, err := f.uc.Create(ctx, f.rctx, &CreateInput{Name: "one", ClusterTemplate: f.tpl.UUID}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.uc.Create(ctx, f.rctx, &CreateInput{Name: "two", ClusterTemplate: f.tpl.UUID})
	if !errors.Is(err, model.ErrQuotaExceeded) {
		t.Fatalf("got %v, want ErrQuotaExceeded", err)
	}
}

func TestCreateTypeNotEnabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.uc.Cfg.EnabledDefinitions = []string{"stackmint_vm_atomic_swarm"}

	_, err := f.uc.Create(ctx, f.rctx, &CreateInput{Name: "k8s", ClusterTemplate: f.tpl.UUID})
	if !errors.Is(err, model.ErrTypeNotEnabled) {
		t.Fatalf("got %v, want ErrTypeNotEnabled", err)
	}
}

func createdCluster(t *testing.T, f *fixture, name string) *model.Cluster {
	t.Helper()
	ctx := context.Background()
	out, err := f.uc.Create(ctx, f.rctx, &CreateInput{Name: name, ClusterTemplate: f.tpl.UUID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Simulate the conductor observing CREATE_COMPLETE.
	if _, err := f.store.ClusterRepo.Update(ctx, f.rctx, out.Cluster.UUID, map[string]interface{}{
		"status": model.StatusCreateComplete,
	}); err != nil {
		t.Fatalf("settle cluster: %v", err)
	}
	out.Cluster.Status = model.StatusCreateComplete
	return out.Cluster
}

func TestResize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	var updateReq *model.StackUpdateRequest
	f.stack.updateFn = func(ctx context.Context, r *model.StackUpdateRequest) error {
		updateReq = r
		return nil
	}

	out, err := f.uc.Resize(ctx, f.rctx, &ResizeInput{Ident: c.UUID, NodeCount: 5})
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if out.Cluster.Status != model.StatusUpdateInProgress {
		t.Errorf("status = %s, want UPDATE_IN_PROGRESS", out.Cluster.Status)
	}
	if updateReq == nil || updateReq.StackID != c.StackID {
		t.Fatal("stack update must reuse the existing stack id")
	}
	if updateReq.Parameters["number_of_minions"] != "5" {
		t.Errorf("number_of_minions = %v, want \"5\"", updateReq.Parameters["number_of_minions"])
	}

	ng, err := f.store.NodeGroupRepo.Get(ctx, f.rctx, c.UUID, "default-worker")
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if ng.NodeCount != 5 {
		t.Errorf("node_count = %d, want 5", ng.NodeCount)
	}
}

func TestResizeRejectsInvalidCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	max := 3
	_, err := f.uc.Resize(ctx, f.rctx, &ResizeInput{Ident: c.UUID, NodeCount: 5, MaxNodeCount: &max})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter", err)
	}
}

func TestResizeRejectsMasterGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	stackUpdated := false
	f.stack.updateFn = func(ctx context.Context, r *model.StackUpdateRequest) error {
		stackUpdated = true
		return nil
	}

	_, err := f.uc.Resize(ctx, f.rctx, &ResizeInput{Ident: c.UUID, NodeGroup: "default-master", NodeCount: 5})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter", err)
	}
	if stackUpdated {
		t.Error("rejected resize must not touch the stack")
	}
	ng, err := f.store.NodeGroupRepo.Get(ctx, f.rctx, c.UUID, "default-master")
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if ng.NodeCount != 1 {
		t.Errorf("master node_count = %d, want untouched 1", ng.NodeCount)
	}
}

func TestUpdateRejectedWhileInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	out, err := f.uc.Create(ctx, f.rctx, &CreateInput{Name: "k8s", ClusterTemplate: f.tpl.UUID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n := 5
	_, err = f.uc.Update(ctx, f.rctx, &UpdateInput{Ident: out.Cluster.UUID, NodeCount: &n})
	if !errors.Is(err, model.ErrInvalidClusterState) {
		t.Fatalf("got %v, want ErrInvalidClusterState", err)
	}
}

func TestUpdateRejectsImmutableField(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	_, err := f.uc.Update(ctx, f.rctx, &UpdateInput{Ident: c.UUID, Immutable: []string{"keypair"}})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter", err)
	}
}

func TestDeleteRejectedWhileInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	out, err := f.uc.Create(ctx, f.rctx, &CreateInput{Name: "k8s", ClusterTemplate: f.tpl.UUID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = f.uc.Delete(ctx, f.rctx, &DeleteInput{Ident: out.Cluster.UUID})
	if !errors.Is(err, model.ErrInvalidClusterState) {
		t.Fatalf("got %v, want ErrInvalidClusterState", err)
	}
}

func TestDeleteMissingStackCleansUpImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	f.stack.getFn = func(ctx context.Context, stackID string) (*model.Stack, error) {
		return nil, fmt.Errorf("%w: stack %s", model.ErrNotFound, stackID)
	}

	if _, err := f.uc.Delete(ctx, f.rctx, &DeleteInput{Ident: c.UUID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.store.ClusterRepo.Get(ctx, f.rctx, c.UUID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("cluster row must be gone, got %v", err)
	}
	if len(f.identity.deletedTrusts) == 0 || len(f.identity.deletedTrustees) == 0 {
		t.Error("trust teardown must run during cleanup")
	}
	if groups, _ := f.store.NodeGroupRepo.ListByCluster(ctx, f.rctx, c.UUID, domainListAll()); len(groups) != 0 {
		t.Error("node groups must be destroyed during cleanup")
	}
}

func TestDeleteSubmitsStackDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	var deleted []string
	f.stack.deleteFn = func(ctx context.Context, stackID string) error {
		deleted = append(deleted, stackID)
		return nil
	}

	if _, err := f.uc.Delete(ctx, f.rctx, &DeleteInput{Ident: c.UUID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != c.StackID {
		t.Fatalf("stack delete calls = %v", deleted)
	}
	got, err := f.store.ClusterRepo.Get(ctx, f.rctx, c.UUID)
	if err != nil {
		t.Fatalf("row must remain until the engine confirms: %v", err)
	}
	if got.Status != model.StatusDeleteInProgress {
		t.Errorf("status = %s, want DELETE_IN_PROGRESS", got.Status)
	}
}

func TestUpgradeRejectsCOEChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	swarmTpl := &model.ClusterTemplate{
		Name: "swarm-tpl", ProjectID: "p1", UserID: "u1",
		ImageID: "fedora-atomic-27", Keypair: "default", ExternalNetworkID: "public",
		ClusterDistro: "fedora-atomic", COE: model.COESwarm, ServerType: model.ServerTypeVM,
	}
	if err := f.store.ClusterTemplateRepo.Create(ctx, f.rctx, swarmTpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	_, err := f.uc.Upgrade(ctx, f.rctx, &UpgradeInput{Ident: c.UUID, ClusterTemplate: swarmTpl.UUID})
	if !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("got %v, want ErrInvalidParameter", err)
	}
}

func TestUpgradeRepointsTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := createdCluster(t, f, "k8s")

	next := &model.ClusterTemplate{
		Name: "k8s-tpl-v2", ProjectID: "p1", UserID: "u1",
		ImageID: "fedora-atomic-29", Flavor: "m1.small", Keypair: "default",
		ExternalNetworkID: "public", ClusterDistro: "fedora-atomic",
		COE: model.COEKubernetes, ServerType: model.ServerTypeVM,
	}
	if err := f.store.ClusterTemplateRepo.Create(ctx, f.rctx, next); err != nil {
		t.Fatalf("create template: %v", err)
	}
	out, err := f.uc.Upgrade(ctx, f.rctx, &UpgradeInput{Ident: c.UUID, ClusterTemplate: next.UUID})
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if out.Cluster.ClusterTemplateID != next.UUID {
		t.Errorf("cluster_template_id = %q, want the new template", out.Cluster.ClusterTemplateID)
	}
	if out.Cluster.Status != model.StatusUpdateInProgress {
		t.Errorf("status = %s, want UPDATE_IN_PROGRESS", out.Cluster.Status)
	}
}
