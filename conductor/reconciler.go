package conductor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
	"github.com/stackmint/stackmint/internal/metrics"
)

// Tick runs one reconciliation pass: advance the heartbeat, fetch the engine's
// view of every in-flight stack in a single call, and sync each cluster. Every
// step is idempotent, so a crash mid-tick is repaired by the next tick.
func (c *Conductor) Tick(ctx context.Context) error {
	start := time.Now()
	metrics.ReconcilerTicksTotal.Inc()
	defer func() {
		metrics.ReconcilerTickDuration.Observe(time.Since(start).Seconds())
	}()

	rctx := model.AdminContext()
	if _, err := c.Repos.Heartbeat.Touch(ctx, c.host(), heartbeatBinary); err != nil {
		logging.FromContext(ctx).Warn(ctx, "heartbeat touch failed", "error", err)
	}

	inProgress, err := c.inProgressClusters(ctx, rctx)
	if err != nil {
		return err
	}
	if len(inProgress) == 0 {
		return nil
	}

	stackIDs := make([]string, 0, len(inProgress))
	for _, cl := range inProgress {
		if cl.StackID != "" {
			stackIDs = append(stackIDs, cl.StackID)
		}
	}
	stacks, err := c.Stack.List(ctx, stackIDs)
	if err != nil {
		return fmt.Errorf("list stacks: %w", err)
	}
	byID := make(map[string]*model.Stack, len(stacks))
	for _, st := range stacks {
		byID[st.ID] = st
	}

	log := logging.FromContext(ctx)
	for _, cl := range inProgress {
		if err := c.syncCluster(ctx, rctx, cl, byID[cl.StackID]); err != nil {
			metrics.ReconcilerSyncsTotal.WithLabelValues("error").Inc()
			log.Error(ctx, "cluster sync failed", "cluster_uuid", cl.UUID, "error", err)
			continue
		}
		metrics.ReconcilerSyncsTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

func (c *Conductor) inProgressClusters(ctx context.Context, rctx *model.RequestContext) ([]*model.Cluster, error) {
	all, err := c.Repos.Cluster.List(ctx, rctx, domain.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	out := all[:0]
	for _, cl := range all {
		if cl.Status.InProgress() {
			out = append(out, cl)
		}
	}
	return out, nil
}

// syncCluster converges one cluster against the engine's view of its stack.
// A nil stack means the engine no longer knows it.
func (c *Conductor) syncCluster(ctx context.Context, rctx *model.RequestContext, cl *model.Cluster, stack *model.Stack) error {
	log := logging.FromContext(ctx)
	if stack == nil {
		return c.syncMissingStack(ctx, rctx, cl)
	}
	if stack.Status == cl.Status {
		return nil
	}

	if stack.Status == model.StatusDeleteComplete {
		log.Info(ctx, "stack deleted, cleaning up cluster", "cluster_uuid", cl.UUID)
		return c.Clusters.Cleanup(ctx, rctx, cl)
	}

	tpl, err := c.Repos.ClusterTemplate.Get(ctx, rctx, cl.ClusterTemplateID)
	if err != nil {
		return err
	}
	driver, err := c.Clusters.ResolveDriver(tpl)
	if err != nil {
		return err
	}
	updates, err := driver.UpdateClusterStatus(cl, stack)
	if err != nil {
		return err
	}
	if err := c.routeAddresses(ctx, rctx, cl, updates); err != nil {
		return err
	}
	updates["status"] = stack.Status
	updates["status_reason"] = stack.StatusReason
	if _, err := c.Repos.Cluster.Update(ctx, rctx, cl.UUID, updates); err != nil {
		return err
	}
	if err := c.syncNodeGroupStatus(ctx, rctx, cl, stack); err != nil {
		return err
	}
	log.Info(ctx, "cluster status synced",
		"cluster_uuid", cl.UUID, "from", cl.Status, "to", stack.Status)
	return nil
}

// syncMissingStack handles a cluster whose stack the engine no longer lists.
// A deleting cluster finished; anything else lost its stack underneath an
// operation and is marked failed.
func (c *Conductor) syncMissingStack(ctx context.Context, rctx *model.RequestContext, cl *model.Cluster) error {
	log := logging.FromContext(ctx)
	if cl.Status == model.StatusDeleteInProgress {
		log.Info(ctx, "stack gone, completing cluster delete", "cluster_uuid", cl.UUID)
		if err := c.Clusters.Cleanup(ctx, rctx, cl); err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		return nil
	}

	failed := map[model.Status]model.Status{
		model.StatusCreateInProgress:   model.StatusCreateFailed,
		model.StatusUpdateInProgress:   model.StatusUpdateFailed,
		model.StatusRollbackInProgress: model.StatusRollbackFailed,
	}[cl.Status]
	if failed == "" {
		return nil
	}
	log.Warn(ctx, "stack not found for in-progress cluster",
		"cluster_uuid", cl.UUID, "stack_id", cl.StackID, "status", cl.Status)
	_, err := c.Repos.Cluster.Update(ctx, rctx, cl.UUID, map[string]interface{}{
		"status":        failed,
		"status_reason": "stack not found",
	})
	return err
}

// routeAddresses moves the address outputs from the cluster update set onto
// the default node groups, where they are stored.
func (c *Conductor) routeAddresses(ctx context.Context, rctx *model.RequestContext, cl *model.Cluster, updates map[string]interface{}) error {
	masters, haveMasters := updates["master_addresses"]
	nodes, haveNodes := updates["node_addresses"]
	delete(updates, "master_addresses")
	delete(updates, "node_addresses")
	if !haveMasters && !haveNodes {
		return nil
	}
	groups, err := c.Repos.NodeGroup.ListByCluster(ctx, rctx, cl.UUID, domain.ListOpts{})
	if err != nil {
		return err
	}
	for _, ng := range groups {
		if !ng.IsDefault {
			continue
		}
		var addrs interface{}
		switch {
		case ng.Role == model.NodeGroupRoleMaster && haveMasters:
			addrs = masters
		case ng.Role != model.NodeGroupRoleMaster && haveNodes:
			addrs = nodes
		default:
			continue
		}
		if _, err := c.Repos.NodeGroup.Update(ctx, rctx, ng.UUID, map[string]interface{}{
			"node_addresses": addrs,
		}); err != nil {
			return err
		}
	}
	return nil
}

// syncNodeGroupStatus mirrors the settled stack status onto the cluster's
// node groups so group rows do not stay IN_PROGRESS forever.
func (c *Conductor) syncNodeGroupStatus(ctx context.Context, rctx *model.RequestContext, cl *model.Cluster, stack *model.Stack) error {
	if stack.Status.InProgress() {
		return nil
	}
	groups, err := c.Repos.NodeGroup.ListByCluster(ctx, rctx, cl.UUID, domain.ListOpts{})
	if err != nil {
		return err
	}
	for _, ng := range groups {
		if ng.Status == stack.Status {
			continue
		}
		if _, err := c.Repos.NodeGroup.Update(ctx, rctx, ng.UUID, map[string]interface{}{
			"status": stack.Status,
		}); err != nil {
			return err
		}
	}
	return nil
}
