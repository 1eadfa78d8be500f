package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/drivers"
	"github.com/stackmint/stackmint/internal/logging"
	"github.com/stackmint/stackmint/internal/naming"
	"github.com/stackmint/stackmint/internal/x509util"
	"github.com/stackmint/stackmint/usecase/certificate"
)

// CreateInput is the cluster draft.
type CreateInput struct {
	Name              string            `json:"name"`
	ClusterTemplate   string            `json:"cluster_template"`
	Keypair           string            `json:"keypair,omitempty"`
	Flavor            string            `json:"flavor,omitempty"`
	MasterFlavor      string            `json:"master_flavor,omitempty"`
	NodeCount         int               `json:"node_count,omitempty"`
	MasterCount       int               `json:"master_count,omitempty"`
	DockerVolumeSize  int               `json:"docker_volume_size,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	CreateTimeout     int               `json:"create_timeout,omitempty"`
	DiscoveryURL      string            `json:"discovery_url,omitempty"`
	FixedNetwork      string            `json:"fixed_network,omitempty"`
	FixedSubnet       string            `json:"fixed_subnet,omitempty"`
	FloatingIPEnabled *bool             `json:"floating_ip_enabled,omitempty"`
	MasterLBEnabled   *bool             `json:"master_lb_enabled,omitempty"`
}

// CreateOutput wraps the accepted cluster. Convergence to CREATE_COMPLETE is
// asynchronous.
type CreateOutput struct {
	Cluster *model.Cluster `json:"cluster"`
}

// Create runs the synchronous half of cluster creation: quota, trust,
// certificates, parameter rendering and the stack submission. Any failure
// before the stack exists marks the cluster CREATE_FAILED and rolls back the
// delegated credential and stored certificates.
func (u *UseCase) Create(ctx context.Context, rctx *model.RequestContext, in *CreateInput) (*CreateOutput, error) {
	if in == nil || in.Name == "" {
		return nil, fmt.Errorf("%w: cluster name is required", model.ErrInvalidParameter)
	}
	if in.ClusterTemplate == "" {
		return nil, fmt.Errorf("%w: cluster_template is required", model.ErrInvalidParameter)
	}
	log := logging.FromContext(ctx)

	tpl, err := u.Repos.ClusterTemplate.Get(ctx, rctx, in.ClusterTemplate)
	if err != nil {
		return nil, err
	}
	driver, err := u.ResolveDriver(tpl)
	if err != nil {
		return nil, err
	}
	if err := u.checkQuota(ctx, rctx); err != nil {
		return nil, err
	}

	c := u.newCluster(rctx, tpl, in)
	if err := u.Repos.Cluster.Create(ctx, rctx, c); err != nil {
		return nil, err
	}
	groups, err := u.createDefaultNodeGroups(ctx, rctx, c, tpl, in)
	if err != nil {
		u.Repos.Cluster.Destroy(ctx, rctx, c.UUID)
		return nil, err
	}

	// Everything past this point rolls back to CREATE_FAILED instead of
	// removing the row, so the caller can inspect status_reason.
	if err := u.provision(ctx, rctx, c, tpl, driver, groups); err != nil {
		u.failCreate(ctx, rctx, c, err)
		return nil, err
	}

	log.Info(ctx, "cluster creation accepted",
		"cluster_uuid", c.UUID, "stack_id", c.StackID, "project_id", c.ProjectID)
	return &CreateOutput{Cluster: c}, nil
}

func (u *UseCase) newCluster(rctx *model.RequestContext, tpl *model.ClusterTemplate, in *CreateInput) *model.Cluster {
	c := &model.Cluster{
		Name:              in.Name,
		ProjectID:         rctx.ProjectID,
		UserID:            rctx.UserID,
		ClusterTemplateID: tpl.UUID,
		Keypair:           in.Keypair,
		Flavor:            in.Flavor,
		MasterFlavor:      in.MasterFlavor,
		DockerVolumeSize:  in.DockerVolumeSize,
		Labels:            mergeLabels(tpl.Labels, in.Labels),
		CreateTimeout:     in.CreateTimeout,
		DiscoveryURL:      in.DiscoveryURL,
		FixedNetwork:      in.FixedNetwork,
		FixedSubnet:       in.FixedSubnet,
		FloatingIPEnabled: tpl.FloatingIPEnabled,
		MasterLBEnabled:   tpl.MasterLBEnabled,
		Status:            model.StatusCreateInProgress,
		StatusReason:      "cluster creation started",
	}
	if in.FloatingIPEnabled != nil {
		c.FloatingIPEnabled = *in.FloatingIPEnabled
	}
	if in.MasterLBEnabled != nil {
		c.MasterLBEnabled = *in.MasterLBEnabled
	}
	if c.CreateTimeout <= 0 {
		c.CreateTimeout = u.Cfg.CreateTimeout
	}
	return c
}

func mergeLabels(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (u *UseCase) createDefaultNodeGroups(ctx context.Context, rctx *model.RequestContext, c *model.Cluster, tpl *model.ClusterTemplate, in *CreateInput) ([]*model.NodeGroup, error) {
	masterCount, nodeCount := in.MasterCount, in.NodeCount
	if masterCount <= 0 {
		masterCount = 1
	}
	if nodeCount <= 0 {
		nodeCount = 1
	}
	master := &model.NodeGroup{
		Name:         "default-master",
		ClusterID:    c.UUID,
		ProjectID:    c.ProjectID,
		Role:         model.NodeGroupRoleMaster,
		Flavor:       firstNonEmpty(c.MasterFlavor, tpl.MasterFlavor),
		ImageID:      tpl.ImageID,
		NodeCount:    masterCount,
		MinNodeCount: 1,
		IsDefault:    true,
		Status:       model.StatusCreateInProgress,
	}
	worker := &model.NodeGroup{
		Name:         "default-worker",
		ClusterID:    c.UUID,
		ProjectID:    c.ProjectID,
		Role:         model.NodeGroupRoleWorker,
		Flavor:       firstNonEmpty(c.Flavor, tpl.Flavor),
		ImageID:      tpl.ImageID,
		NodeCount:    nodeCount,
		MinNodeCount: 1,
		IsDefault:    true,
		Status:       model.StatusCreateInProgress,
	}
	for _, ng := range []*model.NodeGroup{master, worker} {
		if err := u.Repos.NodeGroup.Create(ctx, rctx, ng); err != nil {
			return nil, err
		}
	}
	return []*model.NodeGroup{master, worker}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// checkQuota enforces the per-project cluster cap when one is configured.
func (u *UseCase) checkQuota(ctx context.Context, rctx *model.RequestContext) error {
	quota, err := u.Repos.Quota.GetByProjectResource(ctx, rctx.ProjectID, model.QuotaResourceCluster)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	clusters, _, err := u.Repos.Cluster.Stats(ctx, rctx.ProjectID)
	if err != nil {
		return err
	}
	if clusters >= int64(quota.HardLimit) {
		return fmt.Errorf("%w: project %s holds %d of %d clusters",
			model.ErrQuotaExceeded, rctx.ProjectID, clusters, quota.HardLimit)
	}
	return nil
}

// provision acquires the trust, mints certificates, renders parameters and
// submits the stack, persisting each milestone on the cluster row.
func (u *UseCase) provision(ctx context.Context, rctx *model.RequestContext, c *model.Cluster, tpl *model.ClusterTemplate, driver drivers.Driver, groups []*model.NodeGroup) error {
	password, err := x509util.NewPassphrase()
	if err != nil {
		return err
	}
	trustee, err := u.Ports.Identity.CreateTrustee(ctx, c.TrusteeName(), password)
	if err != nil {
		return err
	}
	c.TrusteeUserID = trustee.UserID
	c.TrusteeUsername = trustee.Username
	c.TrusteePassword = trustee.Password

	trustID, err := u.Ports.Identity.CreateTrust(ctx, rctx, trustee.UserID)
	if err != nil {
		return err
	}
	c.TrustID = trustID
	if _, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
		"trustee_user_id":  c.TrusteeUserID,
		"trustee_username": c.TrusteeUsername,
		"trustee_password": c.TrusteePassword,
		"trust_id":         c.TrustID,
	}); err != nil {
		return err
	}

	var certs *certificate.GenerateOutput
	if !tpl.TLSDisabled {
		certs, err = u.Certs.Generate(ctx, &certificate.GenerateInput{
			Cluster:  c,
			ExtraCAs: tpl.COE == model.COEKubernetes,
		})
		if err != nil {
			return err
		}
		c.CACertRef = certs.CACertRef
		c.ClientCertRef = certs.ClientCertRef
		c.EtcdCACertRef = certs.EtcdCACertRef
		c.FrontProxyCACertRef = certs.FrontProxyCACertRef
		if _, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
			"ca_cert_ref":             c.CACertRef,
			"client_cert_ref":         c.ClientCertRef,
			"etcd_ca_cert_ref":        c.EtcdCACertRef,
			"front_proxy_ca_cert_ref": c.FrontProxyCACertRef,
		}); err != nil {
			return err
		}
	}

	discoveryURL, err := drivers.DeriveDiscoveryURL(ctx, u.Cfg.Discovery, driver.DiscoveryMode(), c, c.MasterCount(groups))
	if err != nil {
		return err
	}
	if discoveryURL != "" && discoveryURL != c.DiscoveryURL {
		c.DiscoveryURL = discoveryURL
		if _, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
			"discovery_url": discoveryURL,
		}); err != nil {
			return err
		}
	}

	params, err := driver.GetParams(ctx, tpl, c, groups, u.trusteeParams(c))
	if err != nil {
		return err
	}

	shortID, err := naming.NewShortID()
	if err != nil {
		return err
	}
	stackID, err := u.Ports.Stack.Create(ctx, &model.StackCreateRequest{
		Name:         naming.StackName(c.Name, shortID),
		TemplatePath: driver.TemplatePath(),
		Parameters:   params,
		TimeoutMins:  c.CreateTimeout,
	})
	if err != nil {
		return err
	}
	c.StackID = stackID
	_, err = u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
		"stack_id": stackID,
	})
	return err
}

// trusteeParams are the delegated credentials every template receives so the
// cluster can call back into the IaaS.
func (u *UseCase) trusteeParams(c *model.Cluster) map[string]interface{} {
	return map[string]interface{}{
		"trustee_user_id":  c.TrusteeUserID,
		"trustee_username": c.TrusteeUsername,
		"trustee_password": c.TrusteePassword,
		"trust_id":         c.TrustID,
	}
}

// failCreate marks the cluster CREATE_FAILED and undoes the side effects of
// a partial provision.
func (u *UseCase) failCreate(ctx context.Context, rctx *model.RequestContext, c *model.Cluster, cause error) {
	log := logging.FromContext(ctx)
	log.Error(ctx, "cluster creation failed", "cluster_uuid", c.UUID, "error", cause)

	if _, err := u.Certs.Delete(ctx, &certificate.DeleteInput{Cluster: c}); err != nil {
		log.Warn(ctx, "certificate rollback failed", "cluster_uuid", c.UUID, "error", err)
	}
	u.teardownTrust(ctx, rctx, c)

	if _, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
		"status":        model.StatusCreateFailed,
		"status_reason": cause.Error(),
	}); err != nil {
		log.Warn(ctx, "failed to mark cluster CREATE_FAILED", "cluster_uuid", c.UUID, "error", err)
	}
	c.Status = model.StatusCreateFailed
	c.StatusReason = cause.Error()
}

func (u *UseCase) teardownTrust(ctx context.Context, rctx *model.RequestContext, c *model.Cluster) {
	log := logging.FromContext(ctx)
	if c.TrustID != "" {
		if err := u.Ports.Identity.DeleteTrust(ctx, rctx, c.TrustID); err != nil {
			log.Warn(ctx, "trust teardown failed", "cluster_uuid", c.UUID, "error", err)
		}
	}
	if c.TrusteeUserID != "" {
		if err := u.Ports.Identity.DeleteTrustee(ctx, c.TrusteeUserID); err != nil {
			log.Warn(ctx, "trustee teardown failed", "cluster_uuid", c.UUID, "error", err)
		}
	}
}
