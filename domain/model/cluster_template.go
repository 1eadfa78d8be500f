package model

import "time"

// COE names the container orchestration engine a template provisions.
type COE string

const (
	COEKubernetes COE = "kubernetes"
	COESwarm      COE = "swarm"
	COESwarmMode  COE = "swarm-mode"
)

// ServerType is the substrate node flavor class.
type ServerType string

const (
	ServerTypeVM ServerType = "vm"
	ServerTypeBM ServerType = "bm"
)

// ClusterTemplate is a reusable recipe for clusters. It is immutable by
// reference: while clusters point at it, only Name, Public, Hidden and Tags
// may change.
type ClusterTemplate struct {
	ID        int64
	UUID      string
	ProjectID string
	UserID    string

	Name                string
	ImageID             string
	Flavor              string
	MasterFlavor        string
	Keypair             string
	DNSNameserver       string
	ExternalNetworkID   string
	FixedNetwork        string
	FixedSubnet         string
	NetworkDriver       string
	VolumeDriver        string
	DockerVolumeSize    int
	DockerStorageDriver string
	ClusterDistro       string
	COE                 COE
	ServerType          ServerType
	HTTPProxy           string
	HTTPSProxy          string
	NoProxy             string
	RegistryEnabled     bool
	InsecureRegistry    string
	Labels              map[string]string
	TLSDisabled         bool
	Public              bool
	Hidden              bool
	MasterLBEnabled     bool
	FloatingIPEnabled   bool
	Tags                string
	DriverName          string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MutableWhileReferenced lists the only attributes that may change while any
// cluster references the template.
var MutableWhileReferenced = map[string]bool{
	"name":   true,
	"public": true,
	"hidden": true,
	"tags":   true,
}
