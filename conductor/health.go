package conductor

import (
	"context"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
	"github.com/stackmint/stackmint/internal/metrics"
)

// PollHealth observes every running cluster through its driver's monitor and
// persists the resulting health status. Clusters without an API address or
// stored certificates yet are skipped.
func (c *Conductor) PollHealth(ctx context.Context) error {
	rctx := model.AdminContext()
	all, err := c.Repos.Cluster.List(ctx, rctx, domain.ListOpts{})
	if err != nil {
		return err
	}

	counts := map[model.Status]float64{}
	log := logging.FromContext(ctx)
	for _, cl := range all {
		counts[cl.Status]++
		if !pollable(cl) {
			continue
		}
		if err := c.pollCluster(ctx, rctx, cl); err != nil {
			log.Warn(ctx, "cluster health poll failed", "cluster_uuid", cl.UUID, "error", err)
		}
	}
	for status, n := range counts {
		metrics.ClustersTotal.WithLabelValues(string(status)).Set(n)
	}
	return nil
}

func pollable(cl *model.Cluster) bool {
	if cl.Status.InProgress() || cl.Status == model.StatusCreateFailed || cl.Status == model.StatusDeleteComplete {
		return false
	}
	return cl.APIAddress != ""
}

func (c *Conductor) pollCluster(ctx context.Context, rctx *model.RequestContext, cl *model.Cluster) error {
	tpl, err := c.Repos.ClusterTemplate.Get(ctx, rctx, cl.ClusterTemplateID)
	if err != nil {
		return err
	}
	driver, err := c.Clusters.ResolveDriver(tpl)
	if err != nil {
		return err
	}
	groups, err := c.Repos.NodeGroup.ListByCluster(ctx, rctx, cl.UUID, domain.ListOpts{})
	if err != nil {
		return err
	}

	creds := &model.TLSCredentials{Insecure: true}
	if !tpl.TLSDisabled {
		creds, err = c.Certs.TLSCredentials(ctx, cl)
		if err != nil {
			return err
		}
	}
	mon, err := driver.Monitor(cl, groups, creds)
	if err != nil {
		return err
	}

	timeout := c.Cfg.KubernetesAPITimeout
	if tpl.COE != model.COEKubernetes {
		timeout = c.Cfg.DockerAPITimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := mon.PollHealthStatus(ctx)
	if err != nil {
		return err
	}
	metrics.HealthPollsTotal.WithLabelValues(string(report.Status)).Inc()
	if _, err := c.Repos.Cluster.Update(ctx, rctx, cl.UUID, map[string]interface{}{
		"health_status":        report.Status,
		"health_status_reason": report.Reason,
	}); err != nil {
		return err
	}

	c.exportUtilization(ctx, cl, mon)
	return nil
}

// exportUtilization publishes the monitor's metrics as prometheus gauges.
// Metric failures are logged, not fatal: health was already persisted.
func (c *Conductor) exportUtilization(ctx context.Context, cl *model.Cluster, mon model.Monitor) {
	log := logging.FromContext(ctx)
	if err := mon.PullData(ctx); err != nil {
		log.Warn(ctx, "monitor pull failed", "cluster_uuid", cl.UUID, "error", err)
		return
	}
	for name := range mon.MetricsSpec() {
		v, err := mon.ComputeMetric(name)
		if err != nil {
			log.Warn(ctx, "metric computation failed",
				"cluster_uuid", cl.UUID, "metric", name, "error", err)
			continue
		}
		metrics.ClusterUtilization.WithLabelValues(cl.UUID, name).Set(v)
	}
}
