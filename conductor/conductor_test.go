package conductor

import (
	"context"
	"errors"
	"testing"

	"github.com/stackmint/stackmint/adapters/certstore"
	"github.com/stackmint/stackmint/adapters/store/inmem"
	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/drivers"
	"github.com/stackmint/stackmint/usecase/certificate"
	"github.com/stackmint/stackmint/usecase/cluster"
)

type stackPortMock struct {
	listFn   func(ctx context.Context, stackIDs []string) ([]*model.Stack, error)
	deleteFn func(ctx context.Context, stackID string) error
}

func (m *stackPortMock) Create(ctx context.Context, req *model.StackCreateRequest) (string, error) {
	return "stack-1", nil
}

func (m *stackPortMock) Update(ctx context.Context, req *model.StackUpdateRequest) error {
	return nil
}

func (m *stackPortMock) Get(ctx context.Context, stackID string) (*model.Stack, error) {
	return &model.Stack{ID: stackID, Status: model.StatusCreateComplete}, nil
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

type identityPortMock struct{}

func (identityPortMock) ResolveCaller(ctx context.Context, rctx *model.RequestContext) (string, string, error) {
	return rctx.UserID, rctx.ProjectID, nil
}

func (identityPortMock) CreateTrustee(ctx context.Context, username, password string) (*model.Trustee, error) {
	return &model.Trustee{UserID: "trustee-uid", Username: username, Password: password}, nil
}

func (identityPortMock) DeleteTrustee(ctx context.Context, userID string) error { return nil }

func (identityPortMock) CreateTrust(ctx context.Context, rctx *model.RequestContext, trusteeUserID string) (string, error) {
	return "trust-1", nil
}

func (identityPortMock) DeleteTrust(ctx context.Context, rctx *model.RequestContext, trustID string) error {
	return nil
}

type fixture struct {
	conductor *Conductor
	store     *inmem.Store
	stack     *stackPortMock
	rctx      *model.RequestContext
	cluster   *model.Cluster
}

// newFixture provisions one kubernetes cluster through the real lifecycle
// engine so the conductor sees the same rows production would.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := inmem.NewStore("")
	certStore, err := certstore.New("x509keypair", certstore.Deps{KeyPairs: store.X509KeyPairRepo})
	if err != nil {
		t.Fatalf("cert store: %v", err)
	}
	stack := &stackPortMock{}
	rctx := &model.RequestContext{UserID: "u1", ProjectID: "p1", AuthToken: "tok"}

	tpl := &model.ClusterTemplate{
		Name: "k8s-tpl", ProjectID: "p1", UserID: "u1",
		ImageID: "fedora-atomic-27", Flavor: "m1.small", Keypair: "default",
		ExternalNetworkID: "public", ClusterDistro: "fedora-atomic",
		COE: model.COEKubernetes, ServerType: model.ServerTypeVM,
	}
	if err := store.ClusterTemplateRepo.Create(ctx, rctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	clusters := &cluster.UseCase{
		Repos: &cluster.Repos{
			Cluster:         store.ClusterRepo,
			ClusterTemplate: store.ClusterTemplateRepo,
			NodeGroup:       store.NodeGroupRepo,
			Quota:           store.QuotaRepo,
		},
		Ports: &cluster.Ports{Stack: stack, Identity: identityPortMock{}},
		Certs: &certificate.UseCase{
			Repos:     &certificate.Repos{Cluster: store.ClusterRepo},
			CertStore: certStore,
			KeySize:   2048,
		},
		Cfg: cluster.Config{
			EnabledDefinitions: []string{"stackmint_vm_atomic_k8s"},
			CreateTimeout:      60,
			Discovery:          drivers.DiscoveryConfig{URLFormat: "etcd://%(cluster_uuid)s"},
		},
	}
	out, err := clusters.Create(ctx, rctx, &cluster.CreateInput{
		Name: "k8s", ClusterTemplate: tpl.UUID, MasterCount: 1, NodeCount: 2,
	})
	if err != nil {
		t.Fatalf("create cluster: %v", err)
	}

	c := &Conductor{
		Repos: &Repos{
			Cluster:         store.ClusterRepo,
			ClusterTemplate: store.ClusterTemplateRepo,
			NodeGroup:       store.NodeGroupRepo,
			Heartbeat:       store.HeartbeatRepo,
		},
		Stack:    stack,
		Clusters: clusters,
		Certs:    clusters.Certs,
		Cfg:      Config{Host: "node-a"},
	}
	return &fixture{conductor: c, store: store, stack: stack, rctx: rctx, cluster: out.Cluster}
}

func TestTickAppliesStackOutputs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stack.listFn = func(ctx context.Context, stackIDs []string) ([]*model.Stack, error) {
		return []*model.Stack{{
			ID:           f.cluster.StackID,
			Status:       model.StatusCreateComplete,
			StatusReason: "Stack CREATE completed successfully",
			Outputs: map[string]interface{}{
				"api_address":  "https://10.0.0.5:6443",
				"kube_masters": []interface{}{"10.0.0.5"},
				"kube_minions": []interface{}{"10.0.0.6", "10.0.0.7"},
				"kube_version": "v1.11.1",
			},
		}}, nil
	}

	if err := f.conductor.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	c, err := f.store.ClusterRepo.Get(ctx, f.rctx, f.cluster.UUID)
	if err != nil {
		t.Fatalf("get cluster: %v", err)
	}
	if c.Status != model.StatusCreateComplete {
		t.Errorf("status = %s, want CREATE_COMPLETE", c.Status)
	}
	if c.APIAddress != "https://10.0.0.5:6443" {
		t.Errorf("api_address = %q", c.APIAddress)
	}
	if c.COEVersion != "v1.11.1" {
		t.Errorf("coe_version = %q", c.COEVersion)
	}

	groups, err := f.store.NodeGroupRepo.ListByCluster(ctx, f.rctx, c.UUID, domain.ListOpts{})
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	for _, ng := range groups {
		if ng.Status != model.StatusCreateComplete {
			t.Errorf("group %s status = %s, want CREATE_COMPLETE", ng.Name, ng.Status)
		}
		switch ng.Role {
		case model.NodeGroupRoleMaster:
			if len(ng.NodeAddresses) != 1 || ng.NodeAddresses[0] != "10.0.0.5" {
				t.Errorf("master addresses = %v", ng.NodeAddresses)
			}
		default:
			if len(ng.NodeAddresses) != 2 {
				t.Errorf("worker addresses = %v", ng.NodeAddresses)
			}
		}
	}

	// The engine's view did not change; a second tick must be a no-op.
	if err := f.conductor.Tick(ctx); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	again, _ := f.store.ClusterRepo.Get(ctx, f.rctx, f.cluster.UUID)
	if again.Status != model.StatusCreateComplete {
		t.Errorf("status changed on idempotent tick: %s", again.Status)
	}
}

func TestTickMissingStackFailsCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stack.listFn = func(ctx context.Context, stackIDs []string) ([]*model.Stack, error) {
		return nil, nil
	}

	if err := f.conductor.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	c, err := f.store.ClusterRepo.Get(ctx, f.rctx, f.cluster.UUID)
	if err != nil {
		t.Fatalf("get cluster: %v", err)
	}
	if c.Status != model.StatusCreateFailed {
		t.Errorf("status = %s, want CREATE_FAILED", c.Status)
	}
	if c.StatusReason != "stack not found" {
		t.Errorf("status_reason = %q", c.StatusReason)
	}
}

func TestTickMissingStackFinishesDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.store.ClusterRepo.Update(ctx, f.rctx, f.cluster.UUID, map[string]interface{}{
		"status": model.StatusDeleteInProgress,
	}); err != nil {
		t.Fatalf("set status: %v", err)
	}
	f.stack.listFn = func(ctx context.Context, stackIDs []string) ([]*model.Stack, error) {
		return nil, nil
	}

	if err := f.conductor.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, err := f.store.ClusterRepo.Get(ctx, f.rctx, f.cluster.UUID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after cleanup", err)
	}
	if groups, _ := f.store.NodeGroupRepo.ListByCluster(ctx, f.rctx, f.cluster.UUID, domain.ListOpts{}); len(groups) != 0 {
		t.Error("node groups must be destroyed during cleanup")
	}
}

func TestTickIgnoresSettledClusters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.store.ClusterRepo.Update(ctx, f.rctx, f.cluster.UUID, map[string]interface{}{
		"status": model.StatusCreateComplete,
	}); err != nil {
		t.Fatalf("set status: %v", err)
	}
	called := false
	f.stack.listFn = func(ctx context.Context, stackIDs []string) ([]*model.Stack, error) {
		called = true
		return nil, nil
	}

	if err := f.conductor.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if called {
		t.Error("no stack listing expected with nothing in progress")
	}
}

func TestTickAdvancesHeartbeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stack.listFn = func(ctx context.Context, stackIDs []string) ([]*model.Stack, error) {
		return []*model.Stack{{ID: f.cluster.StackID, Status: model.StatusCreateInProgress}}, nil
	}

	if err := f.conductor.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := f.conductor.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	beats, err := f.store.HeartbeatRepo.List(ctx)
	if err != nil {
		t.Fatalf("list heartbeats: %v", err)
	}
	if len(beats) != 1 {
		t.Fatalf("got %d heartbeat rows, want 1", len(beats))
	}
	hb := beats[0]
	if hb.Host != "node-a" || hb.Binary != "stackmint-conductor" {
		t.Errorf("heartbeat identity = %s/%s", hb.Host, hb.Binary)
	}
	if hb.ReportCount != 2 {
		t.Errorf("report_count = %d, want 2", hb.ReportCount)
	}
}
