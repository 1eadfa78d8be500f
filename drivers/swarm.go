package drivers

import (
	"github.com/stackmint/stackmint/adapters/monitor"
	"github.com/stackmint/stackmint/domain/model"
)

func init() {
	Register(&swarmDriver{baseDriver{
		name: "stackmint_vm_atomic_swarm",
		tuples: []COETuple{
			{ServerType: model.ServerTypeVM, OS: "fedora-atomic", COE: model.COESwarm},
		},
		templatePath: "templates/swarmcluster.yaml",
		params:       swarmParams,
		outputs:      swarmOutputs,
		discovery:    DiscoveryToken,
	}})
	Register(&swarmDriver{baseDriver{
		name: "stackmint_vm_swarm_mode",
		tuples: []COETuple{
			{ServerType: model.ServerTypeVM, OS: "fedora-atomic", COE: model.COESwarmMode},
		},
		templatePath: "templates/swarmmode.yaml",
		params:       swarmModeParams,
		outputs:      swarmOutputs,
		discovery:    DiscoveryNone,
	}})
}

var swarmParams = []ParameterMapping{
	{TemplateParam: "ssh_key_name", Attr: "keypair", Required: true},
	{TemplateParam: "server_image", Attr: "image_id", Required: true},
	{TemplateParam: "external_network", Attr: "external_network_id", Required: true},
	{TemplateParam: "master_flavor", Attr: "master_flavor"},
	{TemplateParam: "node_flavor", Attr: "flavor"},
	{TemplateParam: "number_of_masters", Attr: "master_count", Transform: asString},
	{TemplateParam: "number_of_nodes", Attr: "node_count", Transform: asString},
	{TemplateParam: "cluster_uuid", Attr: "uuid", Required: true},
	{TemplateParam: "discovery_url", Attr: "discovery_url", Required: true},
	{TemplateParam: "dns_nameserver", Attr: "dns_nameserver"},
	{TemplateParam: "fixed_network", Attr: "fixed_network"},
	{TemplateParam: "fixed_subnet", Attr: "fixed_subnet"},
	{TemplateParam: "network_driver", Attr: "network_driver"},
	{TemplateParam: "docker_volume_size", Attr: "docker_volume_size", Transform: asString},
	{TemplateParam: "docker_storage_driver", Attr: "docker_storage_driver"},
	{TemplateParam: "http_proxy", Attr: "http_proxy"},
	{TemplateParam: "https_proxy", Attr: "https_proxy"},
	{TemplateParam: "no_proxy", Attr: "no_proxy"},
	{TemplateParam: "tls_disabled", Attr: "tls_disabled", Transform: asBoolString},
}

// swarm-mode has builtin membership; no discovery_url parameter.
var swarmModeParams = []ParameterMapping{
	{TemplateParam: "ssh_key_name", Attr: "keypair", Required: true},
	{TemplateParam: "server_image", Attr: "image_id", Required: true},
	{TemplateParam: "external_network", Attr: "external_network_id", Required: true},
	{TemplateParam: "master_flavor", Attr: "master_flavor"},
	{TemplateParam: "node_flavor", Attr: "flavor"},
	{TemplateParam: "number_of_masters", Attr: "master_count", Transform: asString},
	{TemplateParam: "number_of_nodes", Attr: "node_count", Transform: asString},
	{TemplateParam: "cluster_uuid", Attr: "uuid", Required: true},
	{TemplateParam: "dns_nameserver", Attr: "dns_nameserver"},
	{TemplateParam: "fixed_network", Attr: "fixed_network"},
	{TemplateParam: "fixed_subnet", Attr: "fixed_subnet"},
	{TemplateParam: "docker_volume_size", Attr: "docker_volume_size", Transform: asString},
	{TemplateParam: "http_proxy", Attr: "http_proxy"},
	{TemplateParam: "https_proxy", Attr: "https_proxy"},
	{TemplateParam: "no_proxy", Attr: "no_proxy"},
	{TemplateParam: "tls_disabled", Attr: "tls_disabled", Transform: asBoolString},
}

var swarmOutputs = []OutputMapping{
	{StackOutput: "api_address", ClusterAttr: "api_address"},
	{StackOutput: "swarm_masters", ClusterAttr: "master_addresses"},
	{StackOutput: "swarm_nodes", ClusterAttr: "node_addresses"},
	{StackOutput: "swarm_version", ClusterAttr: "container_version"},
}

type swarmDriver struct {
	baseDriver
}

func (d *swarmDriver) Monitor(cluster *model.Cluster, groups []*model.NodeGroup, creds *model.TLSCredentials) (model.Monitor, error) {
	return monitor.NewSwarm(cluster, groups, creds)
}
