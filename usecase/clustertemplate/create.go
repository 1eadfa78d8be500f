package clustertemplate

import (
	"context"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/drivers"
	"github.com/stackmint/stackmint/internal/logging"
)

// CreateInput is the template draft. ServerType defaults to vm.
type CreateInput struct {
	Name                string            `json:"name"`
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
	ServerType          model.ServerType  `json:"server_type,omitempty"`
	HTTPProxy           string            `json:"http_proxy,omitempty"`
	HTTPSProxy          string            `json:"https_proxy,omitempty"`
	NoProxy             string            `json:"no_proxy,omitempty"`
	RegistryEnabled     bool              `json:"registry_enabled,omitempty"`
	InsecureRegistry    string            `json:"insecure_registry,omitempty"`
	Labels              map[string]string `json:"labels,omitempty"`
	TLSDisabled         bool              `json:"tls_disabled,omitempty"`
	Public              bool              `json:"public,omitempty"`
	Hidden              bool              `json:"hidden,omitempty"`
	MasterLBEnabled     bool              `json:"master_lb_enabled,omitempty"`
	FloatingIPEnabled   *bool             `json:"floating_ip_enabled,omitempty"`
	Tags                string            `json:"tags,omitempty"`
	DriverName          string            `json:"driver_name,omitempty"`
}

// CreateOutput wraps the persisted template.
type CreateOutput struct {
	ClusterTemplate *model.ClusterTemplate `json:"cluster_template"`
}

// Create validates the draft and persists it. The (server_type, distro, coe)
// tuple must be provided by some registered driver, so unusable templates are
// rejected at creation rather than at first cluster create.
func (u *UseCase) Create(ctx context.Context, rctx *model.RequestContext, in *CreateInput) (*CreateOutput, error) {
	if in == nil || in.Name == "" {
		return nil, fmt.Errorf("%w: template name is required", model.ErrInvalidParameter)
	}
	if in.ImageID == "" {
		return nil, fmt.Errorf("%w: image_id is required", model.ErrInvalidParameter)
	}
	if in.ExternalNetworkID == "" {
		return nil, fmt.Errorf("%w: external_network_id is required", model.ErrInvalidParameter)
	}
	switch in.COE {
	case model.COEKubernetes, model.COESwarm, model.COESwarmMode:
	default:
		return nil, fmt.Errorf("%w: unknown coe %q", model.ErrInvalidParameter, in.COE)
	}
	serverType := in.ServerType
	if serverType == "" {
		serverType = model.ServerTypeVM
	}

	if in.DriverName != "" {
		if _, ok := drivers.Lookup(in.DriverName); !ok {
			return nil, fmt.Errorf("%w: driver %s", model.ErrTypeNotSupported, in.DriverName)
		}
	} else {
		tuple := drivers.COETuple{ServerType: serverType, OS: in.ClusterDistro, COE: in.COE}
		if _, err := drivers.Resolve(drivers.Names(), tuple); err != nil {
			return nil, err
		}
	}

	t := &model.ClusterTemplate{
		ProjectID:           rctx.ProjectID,
		UserID:              rctx.UserID,
		Name:                in.Name,
		ImageID:             in.ImageID,
		Flavor:              in.Flavor,
		MasterFlavor:        in.MasterFlavor,
		Keypair:             in.Keypair,
		DNSNameserver:       in.DNSNameserver,
		ExternalNetworkID:   in.ExternalNetworkID,
		FixedNetwork:        in.FixedNetwork,
		FixedSubnet:         in.FixedSubnet,
		NetworkDriver:       in.NetworkDriver,
		VolumeDriver:        in.VolumeDriver,
		DockerVolumeSize:    in.DockerVolumeSize,
		DockerStorageDriver: in.DockerStorageDriver,
		ClusterDistro:       in.ClusterDistro,
		COE:                 in.COE,
		ServerType:          serverType,
		HTTPProxy:           in.HTTPProxy,
		HTTPSProxy:          in.HTTPSProxy,
		NoProxy:             in.NoProxy,
		RegistryEnabled:     in.RegistryEnabled,
		InsecureRegistry:    in.InsecureRegistry,
		Labels:              in.Labels,
		TLSDisabled:         in.TLSDisabled,
		Public:              in.Public,
		Hidden:              in.Hidden,
		MasterLBEnabled:     in.MasterLBEnabled,
		FloatingIPEnabled:   true,
		Tags:                in.Tags,
		DriverName:          in.DriverName,
	}
	if in.FloatingIPEnabled != nil {
		t.FloatingIPEnabled = *in.FloatingIPEnabled
	}
	if err := u.Repos.ClusterTemplate.Create(ctx, rctx, t); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "cluster template created",
		"template_uuid", t.UUID, "name", t.Name, "coe", t.COE)
	return &CreateOutput{ClusterTemplate: t}, nil
}
