package drivers

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
)

// baseDriver carries the declarative parts of a driver and implements the
// shared parameter/output plumbing. Builtin drivers embed it and add their
// monitor wiring.
type baseDriver struct {
	name         string
	tuples       []COETuple
	templatePath string
	params       []ParameterMapping
	outputs      []OutputMapping
	discovery    DiscoveryMode
}

func (d *baseDriver) Name() string                          { return d.name }
func (d *baseDriver) Provides() []COETuple                  { return d.tuples }
func (d *baseDriver) TemplatePath() string                  { return d.templatePath }
func (d *baseDriver) ParameterMappings() []ParameterMapping { return d.params }
func (d *baseDriver) OutputMappings() []OutputMapping       { return d.outputs }
func (d *baseDriver) DiscoveryMode() DiscoveryMode          { return d.discovery }

// GetParams resolves every parameter mapping against the cluster, then the
// template, then extra, applies transforms, and finally merges the remaining
// extra entries as overrides.
func (d *baseDriver) GetParams(ctx context.Context, tpl *model.ClusterTemplate, cluster *model.Cluster, groups []*model.NodeGroup, extra map[string]interface{}) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(d.params)+len(extra))
	for _, pm := range d.params {
		v, ok := clusterAttr(cluster, groups, pm.Attr)
		if !ok {
			v, ok = templateAttr(tpl, pm.Attr)
		}
		if !ok {
			v, ok = extra[pm.Attr]
		}
		if !ok {
			if pm.Required {
				return nil, fmt.Errorf("%w: %s", model.ErrRequiredParameterNotProvided, pm.TemplateParam)
			}
			continue
		}
		if pm.Transform != nil {
			v = pm.Transform(v)
		}
		params[pm.TemplateParam] = v
	}
	for k, v := range extra {
		params[k] = v
	}
	return params, nil
}

// UpdateClusterStatus routes stack outputs through the output mappings.
// Address-list outputs are normalized to []string.
func (d *baseDriver) UpdateClusterStatus(cluster *model.Cluster, stack *model.Stack) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	for _, om := range d.outputs {
		v, ok := stack.Outputs[om.StackOutput]
		if !ok || v == nil {
			continue
		}
		switch om.ClusterAttr {
		case "master_addresses", "node_addresses":
			addrs, err := toStringSlice(v)
			if err != nil {
				return nil, fmt.Errorf("stack output %s: %w", om.StackOutput, err)
			}
			updates[om.ClusterAttr] = addrs
		default:
			updates[om.ClusterAttr] = fmt.Sprint(v)
		}
	}
	return updates, nil
}

func toStringSlice(v interface{}) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			out = append(out, fmt.Sprint(e))
		}
		return out, nil
	case string:
		return []string{vv}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected address output type %T", model.ErrInvalidParameter, v)
	}
}

// asString renders ints and other scalars the way template engines expect.
func asString(v interface{}) interface{} { return fmt.Sprint(v) }

// asBoolString renders a bool as "true"/"false".
func asBoolString(v interface{}) interface{} {
	if b, ok := v.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}

// clusterAttr resolves a model attribute from the cluster. Zero values count
// as unset so the template-level default can apply; master_count and
// node_count aggregate from the node groups.
func clusterAttr(c *model.Cluster, groups []*model.NodeGroup, attr string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	switch attr {
	case "name":
		return nonEmpty(c.Name)
	case "uuid":
		return nonEmpty(c.UUID)
	case "keypair":
		return nonEmpty(c.Keypair)
	case "flavor":
		return nonEmpty(c.Flavor)
	case "master_flavor":
		return nonEmpty(c.MasterFlavor)
	case "docker_volume_size":
		return nonZero(c.DockerVolumeSize)
	case "discovery_url":
		return nonEmpty(c.DiscoveryURL)
	case "api_address":
		return nonEmpty(c.APIAddress)
	case "fixed_network":
		return nonEmpty(c.FixedNetwork)
	case "fixed_subnet":
		return nonEmpty(c.FixedSubnet)
	case "create_timeout":
		return nonZero(c.CreateTimeout)
	case "master_count":
		return c.MasterCount(groups), true
	case "node_count":
		return c.NodeCount(groups), true
	default:
		return nil, false
	}
}

// templateAttr resolves a model attribute from the cluster template. Booleans
// are always considered set at the template level.
func templateAttr(t *model.ClusterTemplate, attr string) (interface{}, bool) {
	if t == nil {
		return nil, false
	}
	switch attr {
	case "image_id":
		return nonEmpty(t.ImageID)
	case "flavor":
		return nonEmpty(t.Flavor)
	case "master_flavor":
		return nonEmpty(t.MasterFlavor)
	case "keypair":
		return nonEmpty(t.Keypair)
	case "dns_nameserver":
		return nonEmpty(t.DNSNameserver)
	case "external_network_id":
		return nonEmpty(t.ExternalNetworkID)
	case "fixed_network":
		return nonEmpty(t.FixedNetwork)
	case "fixed_subnet":
		return nonEmpty(t.FixedSubnet)
	case "network_driver":
		return nonEmpty(t.NetworkDriver)
	case "volume_driver":
		return nonEmpty(t.VolumeDriver)
	case "docker_volume_size":
		return nonZero(t.DockerVolumeSize)
	case "docker_storage_driver":
		return nonEmpty(t.DockerStorageDriver)
	case "cluster_distro":
		return nonEmpty(t.ClusterDistro)
	case "http_proxy":
		return nonEmpty(t.HTTPProxy)
	case "https_proxy":
		return nonEmpty(t.HTTPSProxy)
	case "no_proxy":
		return nonEmpty(t.NoProxy)
	case "insecure_registry":
		return nonEmpty(t.InsecureRegistry)
	case "registry_enabled":
		return t.RegistryEnabled, true
	case "tls_disabled":
		return t.TLSDisabled, true
	default:
		return nil, false
	}
}

func nonEmpty(s string) (interface{}, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

func nonZero(n int) (interface{}, bool) {
	if n == 0 {
		return nil, false
	}
	return n, true
}
