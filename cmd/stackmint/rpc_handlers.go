package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/rpc"
	"github.com/stackmint/stackmint/usecase/certificate"
	"github.com/stackmint/stackmint/usecase/cluster"
	"github.com/stackmint/stackmint/usecase/clustertemplate"
	"github.com/stackmint/stackmint/usecase/federation"
	"github.com/stackmint/stackmint/usecase/nodegroup"
	"github.com/stackmint/stackmint/usecase/quota"
)

func decodeArgs(args json.RawMessage, out interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, out); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
	}
	return nil
}

// clusterView assembles the wire view, pulling the node groups the view
// aggregates counts and addresses from.
func (a *app) clusterView(ctx context.Context, rctx *model.RequestContext, c *model.Cluster) (*rpc.ClusterView, error) {
	groups, err := a.repos.NodeGroup.ListByCluster(ctx, rctx, c.UUID, domain.ListOpts{})
	if err != nil {
		return nil, err
	}
	return rpc.NewClusterView(c, groups), nil
}

// newDispatcher builds the call dispatcher the transport tier mounts. Every
// verb the control plane exposes routes through here.
func newDispatcher(a *app) *rpc.Dispatcher {
	codec := rpc.NewCodec()
	rpc.RegisterObjectTypes(codec)
	d := rpc.NewDispatcher(codec)

	registerClusterHandlers(d, a)
	registerTemplateHandlers(d, a)
	registerNodeGroupHandlers(d, a)
	registerQuotaHandlers(d, a)
	registerFederationHandlers(d, a)
	registerCertificateHandlers(d, a)
	return d
}

func registerClusterHandlers(d *rpc.Dispatcher, a *app) {
	d.RegisterClass("Cluster", "get", rpc.ClassHandler{TypeName: "Cluster", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in cluster.GetInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.clusters.Get(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewClusterView(out.Cluster, out.NodeGroups), nil
	}})

	d.RegisterClass("Cluster", "list", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in cluster.ListInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.clusters.List(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		views := make([]*rpc.ClusterView, 0, len(out.Clusters))
		for _, c := range out.Clusters {
			v, err := a.clusterView(ctx, rctx, c)
			if err != nil {
				return nil, err
			}
			views = append(views, v)
		}
		return views, nil
	}})

	d.RegisterClass("Cluster", "create", rpc.ClassHandler{TypeName: "Cluster", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in cluster.CreateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.clusters.Create(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return a.clusterView(ctx, rctx, out.Cluster)
	}})

	d.RegisterClass("Cluster", "delete", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in cluster.DeleteInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, err := a.clusters.Delete(ctx, rctx, &in)
		return nil, err
	}})

	d.RegisterClass("Cluster", "stats", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in cluster.StatsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return a.clusters.Stats(ctx, rctx, &in)
	}})

	d.RegisterInstance("Cluster", "update", rpc.InstanceHandler{TypeName: "Cluster", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in cluster.UpdateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, nil, err
		}
		out, err := a.clusters.Update(ctx, rctx, &in)
		if err != nil {
			return nil, nil, err
		}
		updates := map[string]interface{}{}
		if in.NodeCount != nil {
			updates["node_count"] = *in.NodeCount
		}
		if in.Labels != nil {
			updates["labels"] = in.Labels
		}
		v, err := a.clusterView(ctx, rctx, out.Cluster)
		return updates, v, err
	}})

	d.RegisterInstance("Cluster", "resize", rpc.InstanceHandler{TypeName: "Cluster", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in cluster.ResizeInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, nil, err
		}
		out, err := a.clusters.Resize(ctx, rctx, &in)
		if err != nil {
			return nil, nil, err
		}
		v, err := a.clusterView(ctx, rctx, out.Cluster)
		return map[string]interface{}{"node_count": in.NodeCount}, v, err
	}})

	d.RegisterInstance("Cluster", "upgrade", rpc.InstanceHandler{TypeName: "Cluster", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in cluster.UpgradeInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, nil, err
		}
		out, err := a.clusters.Upgrade(ctx, rctx, &in)
		if err != nil {
			return nil, nil, err
		}
		updates := map[string]interface{}{"cluster_template_id": out.Cluster.ClusterTemplateID}
		v, err := a.clusterView(ctx, rctx, out.Cluster)
		return updates, v, err
	}})
}

func registerTemplateHandlers(d *rpc.Dispatcher, a *app) {
	d.RegisterClass("ClusterTemplate", "get", rpc.ClassHandler{TypeName: "ClusterTemplate", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in clustertemplate.GetInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.templates.Get(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewClusterTemplateView(out.ClusterTemplate), nil
	}})

	d.RegisterClass("ClusterTemplate", "list", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in clustertemplate.ListInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.templates.List(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		views := make([]*rpc.ClusterTemplateView, 0, len(out.ClusterTemplates))
		for _, t := range out.ClusterTemplates {
			views = append(views, rpc.NewClusterTemplateView(t))
		}
		return views, nil
	}})

	d.RegisterClass("ClusterTemplate", "create", rpc.ClassHandler{TypeName: "ClusterTemplate", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in clustertemplate.CreateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.templates.Create(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewClusterTemplateView(out.ClusterTemplate), nil
	}})

	d.RegisterInstance("ClusterTemplate", "update", rpc.InstanceHandler{TypeName: "ClusterTemplate", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in clustertemplate.UpdateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, nil, err
		}
		out, err := a.templates.Update(ctx, rctx, &in)
		if err != nil {
			return nil, nil, err
		}
		updates := map[string]interface{}{}
		for k, v := range in.Patch {
			updates[k] = v
		}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Public != nil {
			updates["public"] = *in.Public
		}
		if in.Hidden != nil {
			updates["hidden"] = *in.Hidden
		}
		if in.Tags != nil {
			updates["tags"] = *in.Tags
		}
		return updates, rpc.NewClusterTemplateView(out.ClusterTemplate), nil
	}})

	d.RegisterClass("ClusterTemplate", "delete", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in clustertemplate.DeleteInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, err := a.templates.Delete(ctx, rctx, &in)
		return nil, err
	}})
}

func registerNodeGroupHandlers(d *rpc.Dispatcher, a *app) {
	d.RegisterClass("NodeGroup", "get", rpc.ClassHandler{TypeName: "NodeGroup", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in nodegroup.GetInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.nodeGroups.Get(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewNodeGroupView(out.NodeGroup), nil
	}})

	d.RegisterClass("NodeGroup", "list", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in nodegroup.ListInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.nodeGroups.List(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		views := make([]*rpc.NodeGroupView, 0, len(out.NodeGroups))
		for _, ng := range out.NodeGroups {
			views = append(views, rpc.NewNodeGroupView(ng))
		}
		return views, nil
	}})

	d.RegisterClass("NodeGroup", "create", rpc.ClassHandler{TypeName: "NodeGroup", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in nodegroup.CreateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.nodeGroups.Create(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewNodeGroupView(out.NodeGroup), nil
	}})

	d.RegisterInstance("NodeGroup", "update", rpc.InstanceHandler{TypeName: "NodeGroup", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in nodegroup.UpdateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, nil, err
		}
		out, err := a.nodeGroups.Update(ctx, rctx, &in)
		if err != nil {
			return nil, nil, err
		}
		updates := map[string]interface{}{}
		if in.MinNodeCount != nil {
			updates["min_node_count"] = *in.MinNodeCount
		}
		if in.MaxNodeCount != nil {
			updates["max_node_count"] = *in.MaxNodeCount
		}
		if in.Labels != nil {
			updates["labels"] = in.Labels
		}
		return updates, rpc.NewNodeGroupView(out.NodeGroup), nil
	}})

	d.RegisterClass("NodeGroup", "delete", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in nodegroup.DeleteInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, err := a.nodeGroups.Delete(ctx, rctx, &in)
		return nil, err
	}})
}

func registerQuotaHandlers(d *rpc.Dispatcher, a *app) {
	d.RegisterClass("Quota", "get", rpc.ClassHandler{TypeName: "Quota", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in quota.GetInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.quotas.Get(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewQuotaView(out.Quota), nil
	}})

	d.RegisterClass("Quota", "list", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in quota.ListInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.quotas.List(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		views := make([]*rpc.QuotaView, 0, len(out.Quotas))
		for _, q := range out.Quotas {
			views = append(views, rpc.NewQuotaView(q))
		}
		return views, nil
	}})

	d.RegisterClass("Quota", "create", rpc.ClassHandler{TypeName: "Quota", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in quota.CreateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.quotas.Create(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewQuotaView(out.Quota), nil
	}})

	d.RegisterInstance("Quota", "update", rpc.InstanceHandler{TypeName: "Quota", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in quota.UpdateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, nil, err
		}
		out, err := a.quotas.Update(ctx, rctx, &in)
		if err != nil {
			return nil, nil, err
		}
		return map[string]interface{}{"hard_limit": in.HardLimit}, rpc.NewQuotaView(out.Quota), nil
	}})

	d.RegisterClass("Quota", "delete", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in quota.DeleteInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, err := a.quotas.Delete(ctx, rctx, &in)
		return nil, err
	}})
}

func registerFederationHandlers(d *rpc.Dispatcher, a *app) {
	d.RegisterClass("Federation", "get", rpc.ClassHandler{TypeName: "Federation", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in federation.GetInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.federations.Get(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewFederationView(out.Federation), nil
	}})

	d.RegisterClass("Federation", "list", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in federation.ListInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.federations.List(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		views := make([]*rpc.FederationView, 0, len(out.Federations))
		for _, f := range out.Federations {
			views = append(views, rpc.NewFederationView(f))
		}
		return views, nil
	}})

	d.RegisterClass("Federation", "create", rpc.ClassHandler{TypeName: "Federation", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in federation.CreateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := a.federations.Create(ctx, rctx, &in)
		if err != nil {
			return nil, err
		}
		return rpc.NewFederationView(out.Federation), nil
	}})

	d.RegisterInstance("Federation", "update", rpc.InstanceHandler{TypeName: "Federation", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in federation.UpdateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, nil, err
		}
		out, err := a.federations.Update(ctx, rctx, &in)
		if err != nil {
			return nil, nil, err
		}
		updates := map[string]interface{}{"member_ids": out.Federation.MemberIDs}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Properties != nil {
			updates["properties"] = in.Properties
		}
		return updates, rpc.NewFederationView(out.Federation), nil
	}})

	d.RegisterClass("Federation", "delete", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in federation.DeleteInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		_, err := a.federations.Delete(ctx, rctx, &in)
		return nil, err
	}})
}

func registerCertificateHandlers(d *rpc.Dispatcher, a *app) {
	d.RegisterClass("Certificate", "get_ca", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in certificate.GetCAInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return a.certs.GetCA(ctx, rctx, &in)
	}})

	d.RegisterClass("Certificate", "sign", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in certificate.SignInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return a.certs.Sign(ctx, rctx, &in)
	}})

	d.RegisterClass("Certificate", "rotate_ca", rpc.ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in certificate.RotateInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return a.certs.Rotate(ctx, rctx, &in)
	}})
}
