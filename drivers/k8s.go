package drivers

import (
	"github.com/stackmint/stackmint/adapters/monitor"
	"github.com/stackmint/stackmint/domain/model"
)

func init() {
	Register(&kubernetesDriver{baseDriver{
		name: "stackmint_vm_atomic_k8s",
		tuples: []COETuple{
			{ServerType: model.ServerTypeVM, OS: "fedora-atomic", COE: model.COEKubernetes},
		},
		templatePath: "templates/kubecluster.yaml",
		params:       kubernetesParams,
		outputs:      kubernetesOutputs,
		discovery:    DiscoveryEtcd,
	}})
	Register(&kubernetesDriver{baseDriver{
		name: "stackmint_vm_coreos_k8s",
		tuples: []COETuple{
			{ServerType: model.ServerTypeVM, OS: "coreos", COE: model.COEKubernetes},
		},
		templatePath: "templates/kubecluster-coreos.yaml",
		params:       kubernetesParams,
		outputs:      kubernetesOutputs,
		discovery:    DiscoveryEtcd,
	}})
}

var kubernetesParams = []ParameterMapping{
	{TemplateParam: "ssh_key_name", Attr: "keypair", Required: true},
	{TemplateParam: "server_image", Attr: "image_id", Required: true},
	{TemplateParam: "external_network", Attr: "external_network_id", Required: true},
	{TemplateParam: "master_flavor", Attr: "master_flavor"},
	{TemplateParam: "minion_flavor", Attr: "flavor"},
	{TemplateParam: "number_of_masters", Attr: "master_count", Transform: asString},
	{TemplateParam: "number_of_minions", Attr: "node_count", Transform: asString},
	{TemplateParam: "cluster_uuid", Attr: "uuid", Required: true},
	{TemplateParam: "discovery_url", Attr: "discovery_url", Required: true},
	{TemplateParam: "dns_nameserver", Attr: "dns_nameserver"},
	{TemplateParam: "fixed_network", Attr: "fixed_network"},
	{TemplateParam: "fixed_subnet", Attr: "fixed_subnet"},
	{TemplateParam: "network_driver", Attr: "network_driver"},
	{TemplateParam: "volume_driver", Attr: "volume_driver"},
	{TemplateParam: "docker_volume_size", Attr: "docker_volume_size", Transform: asString},
	{TemplateParam: "docker_storage_driver", Attr: "docker_storage_driver"},
	{TemplateParam: "http_proxy", Attr: "http_proxy"},
	{TemplateParam: "https_proxy", Attr: "https_proxy"},
	{TemplateParam: "no_proxy", Attr: "no_proxy"},
	{TemplateParam: "registry_enabled", Attr: "registry_enabled", Transform: asBoolString},
	{TemplateParam: "insecure_registry_url", Attr: "insecure_registry"},
	{TemplateParam: "tls_disabled", Attr: "tls_disabled", Transform: asBoolString},
}

var kubernetesOutputs = []OutputMapping{
	{StackOutput: "api_address", ClusterAttr: "api_address"},
	{StackOutput: "kube_masters", ClusterAttr: "master_addresses"},
	{StackOutput: "kube_minions", ClusterAttr: "node_addresses"},
	{StackOutput: "kube_version", ClusterAttr: "coe_version"},
}

type kubernetesDriver struct {
	baseDriver
}

func (d *kubernetesDriver) Monitor(cluster *model.Cluster, groups []*model.NodeGroup, creds *model.TLSCredentials) (model.Monitor, error) {
	return monitor.NewKubernetes(cluster, creds)
}
