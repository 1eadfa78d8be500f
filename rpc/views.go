package rpc

import (
	"time"

	"github.com/stackmint/stackmint/domain/model"
)

// Wire views of the entities. The json keys are the schema the Field
// manifests below describe; model structs stay free of wire concerns.

// ClusterView is the wire form of a cluster. Credentials never appear here.
type ClusterView struct {
	UUID              string            `json:"uuid"`
	Name              string            `json:"name"`
	ProjectID         string            `json:"project_id"`
	UserID            string            `json:"user_id"`
	ClusterTemplateID string            `json:"cluster_template_id"`
	Keypair           string            `json:"keypair,omitempty"`
	Flavor            string            `json:"flavor,omitempty"`
	MasterFlavor      string            `json:"master_flavor,omitempty"`
	DockerVolumeSize  int               `json:"docker_volume_size,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	StackID           string            `json:"stack_id,omitempty"`
	Status            model.Status      `json:"status"`
	StatusReason      string            `json:"status_reason,omitempty"`
	CreateTimeout     int               `json:"create_timeout,omitempty"`
	APIAddress        string            `json:"api_address,omitempty"`
	DiscoveryURL      string            `json:"discovery_url,omitempty"`
	NodeCount         int               `json:"node_count"`
	MasterCount       int               `json:"master_count"`
	NodeAddresses     []string          `json:"node_addresses,omitempty"`
	MasterAddresses   []string          `json:"master_addresses,omitempty"`
	FixedNetwork      string            `json:"fixed_network,omitempty"`
	FixedSubnet       string            `json:"fixed_subnet,omitempty"`
	FloatingIPEnabled bool              `json:"floating_ip_enabled"`
	MasterLBEnabled   bool              `json:"master_lb_enabled"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	// Since 1.1.
	COEVersion       string `json:"coe_version,omitempty"`
	ContainerVersion string `json:"container_version,omitempty"`

	// Since 1.2.
	HealthStatus       model.HealthStatus `json:"health_status,omitempty"`
	HealthStatusReason map[string]string  `json:"health_status_reason,omitempty"`
}

// NewClusterView builds the wire view, aggregating counts and addresses from
// the node groups.
func NewClusterView(c *model.Cluster, groups []*model.NodeGroup) *ClusterView {
	return &ClusterView{
		UUID:               c.UUID,
		Name:               c.Name,
		ProjectID:          c.ProjectID,
		UserID:             c.UserID,
		ClusterTemplateID:  c.ClusterTemplateID,
		Keypair:            c.Keypair,
		Flavor:             c.Flavor,
		MasterFlavor:       c.MasterFlavor,
		DockerVolumeSize:   c.DockerVolumeSize,
		Labels:             c.Labels,
		StackID:            c.StackID,
		Status:             c.Status,
		StatusReason:       c.StatusReason,
		CreateTimeout:      c.CreateTimeout,
		APIAddress:         c.APIAddress,
		DiscoveryURL:       c.DiscoveryURL,
		NodeCount:          c.NodeCount(groups),
		MasterCount:        c.MasterCount(groups),
		NodeAddresses:      c.NodeAddresses(groups),
		MasterAddresses:    c.MasterAddresses(groups),
		FixedNetwork:       c.FixedNetwork,
		FixedSubnet:        c.FixedSubnet,
		FloatingIPEnabled:  c.FloatingIPEnabled,
		MasterLBEnabled:    c.MasterLBEnabled,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		COEVersion:         c.COEVersion,
		ContainerVersion:   c.ContainerVersion,
		HealthStatus:       c.HealthStatus,
		HealthStatusReason: c.HealthStatusReason,
	}
}

// ClusterTemplateView is the wire form of a cluster template.
type ClusterTemplateView struct {
	UUID                string            `json:"uuid"`
	Name                string            `json:"name"`
	ProjectID           string            `json:"project_id"`
	UserID              string            `json:"user_id"`
	ImageID             string            `json:"image_id"`
	Flavor              string            `json:"flavor,omitempty"`
	MasterFlavor        string            `json:"master_flavor,omitempty"`
	Keypair             string            `json:"keypair,omitempty"`
	DNSNameserver       string            `json:"dns_nameserver,omitempty"`
	ExternalNetworkID   string            `json:"external_network_id"`
	FixedNetwork        string            `json:"fixed_network,omitempty"`
	FixedSubnet         string            `json:"fixed_subnet,omitempty"`
	NetworkDriver       string            `json:"network_driver,omitempty"`
	VolumeDriver        string            `json:"volume_driver,omitempty"`
	DockerVolumeSize    int               `json:"docker_volume_size,omitempty"`
	DockerStorageDriver string            `json:"docker_storage_driver,omitempty"`
	ClusterDistro       string            `json:"cluster_distro,omitempty"`
	COE                 model.COE         `json:"coe"`
	ServerType          model.ServerType  `json:"server_type"`
	HTTPProxy           string            `json:"http_proxy,omitempty"`
	HTTPSProxy          string            `json:"https_proxy,omitempty"`
	NoProxy             string            `json:"no_proxy,omitempty"`
	RegistryEnabled     bool              `json:"registry_enabled"`
	InsecureRegistry    string            `json:"insecure_registry,omitempty"`
	Labels              map[string]string `json:"labels,omitempty"`
	TLSDisabled         bool              `json:"tls_disabled"`
	Public              bool              `json:"public"`
	Hidden              bool              `json:"hidden"`
	MasterLBEnabled     bool              `json:"master_lb_enabled"`
	FloatingIPEnabled   bool              `json:"floating_ip_enabled"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`

	// Since 1.1.
	Tags       string `json:"tags,omitempty"`
	DriverName string `json:"driver_name,omitempty"`
}

func NewClusterTemplateView(t *model.ClusterTemplate) *ClusterTemplateView {
	return &ClusterTemplateView{
		UUID:                t.UUID,
		Name:                t.Name,
		ProjectID:           t.ProjectID,
		UserID:              t.UserID,
		ImageID:             t.ImageID,
		Flavor:              t.Flavor,
		MasterFlavor:        t.MasterFlavor,
		Keypair:             t.Keypair,
		DNSNameserver:       t.DNSNameserver,
		ExternalNetworkID:   t.ExternalNetworkID,
		FixedNetwork:        t.FixedNetwork,
		FixedSubnet:         t.FixedSubnet,
		NetworkDriver:       t.NetworkDriver,
		VolumeDriver:        t.VolumeDriver,
		DockerVolumeSize:    t.DockerVolumeSize,
		DockerStorageDriver: t.DockerStorageDriver,
		ClusterDistro:       t.ClusterDistro,
		COE:                 t.COE,
		ServerType:          t.ServerType,
		HTTPProxy:           t.HTTPProxy,
		HTTPSProxy:          t.HTTPSProxy,
		NoProxy:             t.NoProxy,
		RegistryEnabled:     t.RegistryEnabled,
		InsecureRegistry:    t.InsecureRegistry,
		Labels:              t.Labels,
		TLSDisabled:         t.TLSDisabled,
		Public:              t.Public,
		Hidden:              t.Hidden,
		MasterLBEnabled:     t.MasterLBEnabled,
		FloatingIPEnabled:   t.FloatingIPEnabled,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		Tags:                t.Tags,
		DriverName:          t.DriverName,
	}
}

// NodeGroupView is the wire form of a node group.
type NodeGroupView struct {
	UUID             string              `json:"uuid"`
	Name             string              `json:"name"`
	ClusterID        string              `json:"cluster_id"`
	ProjectID        string              `json:"project_id"`
	Role             model.NodeGroupRole `json:"role"`
	Flavor           string              `json:"flavor,omitempty"`
	ImageID          string              `json:"image_id,omitempty"`
	DockerVolumeSize int                 `json:"docker_volume_size,omitempty"`
	Labels           map[string]string   `json:"labels,omitempty"`
	NodeAddresses    []string            `json:"node_addresses,omitempty"`
	NodeCount        int                 `json:"node_count"`
	MinNodeCount     int                 `json:"min_node_count"`
	MaxNodeCount     *int                `json:"max_node_count,omitempty"`
	IsDefault        bool                `json:"is_default"`
	StackID          string              `json:"stack_id,omitempty"`
	Status           model.Status        `json:"status"`
	StatusReason     string              `json:"status_reason,omitempty"`
	Version          string              `json:"version,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func NewNodeGroupView(ng *model.NodeGroup) *NodeGroupView {
	return &NodeGroupView{
		UUID:             ng.UUID,
		Name:             ng.Name,
		ClusterID:        ng.ClusterID,
		ProjectID:        ng.ProjectID,
		Role:             ng.Role,
		Flavor:           ng.Flavor,
		ImageID:          ng.ImageID,
		DockerVolumeSize: ng.DockerVolumeSize,
		Labels:           ng.Labels,
		NodeAddresses:    ng.NodeAddresses,
		NodeCount:        ng.NodeCount,
		MinNodeCount:     ng.MinNodeCount,
		MaxNodeCount:     ng.MaxNodeCount,
		IsDefault:        ng.IsDefault,
		StackID:          ng.StackID,
		Status:           ng.Status,
		StatusReason:     ng.StatusReason,
		Version:          ng.Version,
		CreatedAt:        ng.CreatedAt,
		UpdatedAt:        ng.UpdatedAt,
	}
}

// QuotaView is the wire form of a quota row.
type QuotaView struct {
	ProjectID string    `json:"project_id"`
	Resource  string    `json:"resource"`
	HardLimit int       `json:"hard_limit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewQuotaView(q *model.Quota) *QuotaView {
	return &QuotaView{
		ProjectID: q.ProjectID,
		Resource:  q.Resource,
		HardLimit: q.HardLimit,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

// FederationView is the wire form of a federation.
type FederationView struct {
	UUID          string            `json:"uuid"`
	Name          string            `json:"name"`
	ProjectID     string            `json:"project_id"`
	HostClusterID string            `json:"host_cluster_id"`
	MemberIDs     []string          `json:"member_ids,omitempty"`
	Status        model.Status      `json:"status"`
	StatusReason  string            `json:"status_reason,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func NewFederationView(f *model.Federation) *FederationView {
	return &FederationView{
		UUID:          f.UUID,
		Name:          f.Name,
		ProjectID:     f.ProjectID,
		HostClusterID: f.HostClusterID,
		MemberIDs:     f.MemberIDs,
		Status:        f.Status,
		StatusReason:  f.StatusReason,
		Properties:    f.Properties,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// clusterType is the Cluster schema manifest: which wire fields exist and
// since when. Backporting to 1.0 drops the version columns; to 1.1 the
// health columns.
var clusterType = ObjectType{
	Name:    "Cluster",
	Version: "1.2",
	Fields: append(
		fieldsSince("1.0",
			"uuid", "name", "project_id", "user_id", "cluster_template_id",
			"keypair", "flavor", "master_flavor", "docker_volume_size", "labels",
			"stack_id", "status", "status_reason", "create_timeout", "api_address",
			"discovery_url", "node_count", "master_count", "node_addresses",
			"master_addresses", "fixed_network", "fixed_subnet",
			"floating_ip_enabled", "master_lb_enabled", "created_at", "updated_at"),
		append(
			fieldsSince("1.1", "coe_version", "container_version"),
			fieldsSince("1.2", "health_status", "health_status_reason")...)...),
}

var clusterTemplateType = ObjectType{
	Name:    "ClusterTemplate",
	Version: "1.1",
	Fields: append(
		fieldsSince("1.0",
			"uuid", "name", "project_id", "user_id", "image_id", "flavor",
			"master_flavor", "keypair", "dns_nameserver", "external_network_id",
			"fixed_network", "fixed_subnet", "network_driver", "volume_driver",
			"docker_volume_size", "docker_storage_driver", "cluster_distro",
			"coe", "server_type", "http_proxy", "https_proxy", "no_proxy",
			"registry_enabled", "insecure_registry", "labels", "tls_disabled",
			"public", "hidden", "master_lb_enabled", "floating_ip_enabled",
			"created_at", "updated_at"),
		fieldsSince("1.1", "tags", "driver_name")...),
}

var nodeGroupType = ObjectType{
	Name:    "NodeGroup",
	Version: "1.0",
	Fields: fieldsSince("1.0",
		"uuid", "name", "cluster_id", "project_id", "role", "flavor", "image_id",
		"docker_volume_size", "labels", "node_addresses", "node_count",
		"min_node_count", "max_node_count", "is_default", "stack_id", "status",
		"status_reason", "version", "created_at", "updated_at"),
}

var quotaType = ObjectType{
	Name:    "Quota",
	Version: "1.0",
	Fields: fieldsSince("1.0",
		"project_id", "resource", "hard_limit", "created_at", "updated_at"),
}

var federationType = ObjectType{
	Name:    "Federation",
	Version: "1.0",
	Fields: fieldsSince("1.0",
		"uuid", "name", "project_id", "host_cluster_id", "member_ids",
		"status", "status_reason", "properties", "created_at", "updated_at"),
}

func fieldsSince(version string, names ...string) []Field {
	out := make([]Field, 0, len(names))
	for _, n := range names {
		out = append(out, Field{Name: n, Since: version})
	}
	return out
}

// RegisterObjectTypes loads every entity schema into the codec.
func RegisterObjectTypes(c *Codec) {
	c.RegisterType(clusterType)
	c.RegisterType(clusterTemplateType)
	c.RegisterType(nodeGroupType)
	c.RegisterType(quotaType)
	c.RegisterType(federationType)
}
