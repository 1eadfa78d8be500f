package rdb

import "time"

// ClusterTemplateRecord is the RDB persistence model for domain ClusterTemplate.
// Table name: cluster_templates
type ClusterTemplateRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UUID      string    `gorm:"type:text;not null;uniqueIndex"`
	ProjectID string    `gorm:"type:text;not null;index"`
	UserID    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Name                string `gorm:"type:text;not null"`
	ImageID             string `gorm:"type:text;not null"`
	Flavor              string `gorm:"type:text"`
	MasterFlavor        string `gorm:"type:text"`
	Keypair             string `gorm:"type:text"`
	DNSNameserver       string `gorm:"type:text"`
	ExternalNetworkID   string `gorm:"type:text"`
	FixedNetwork        string `gorm:"type:text"`
	FixedSubnet         string `gorm:"type:text"`
	NetworkDriver       string `gorm:"type:text"`
	VolumeDriver        string `gorm:"type:text"`
	DockerVolumeSize    int
	DockerStorageDriver string `gorm:"type:text"`
	ClusterDistro       string `gorm:"type:text;not null"`
	COE                 string `gorm:"type:text;not null"`
	ServerType          string `gorm:"type:text;not null"`
	HTTPProxy           string `gorm:"type:text"`
	HTTPSProxy          string `gorm:"type:text"`
	NoProxy             string `gorm:"type:text"`
	RegistryEnabled     bool
	InsecureRegistry    string `gorm:"type:text"`
	Labels              string `gorm:"type:text"` // JSON encoded map[string]string
	TLSDisabled         bool
	Public              bool
	Hidden              bool
	MasterLBEnabled     bool
	FloatingIPEnabled   bool
	Tags                string `gorm:"type:text"`
	DriverName          string `gorm:"type:text"`
}

func (ClusterTemplateRecord) TableName() string { return "cluster_templates" }

// ClusterRecord persistence model. Node and master counts live on the
// node_groups rows only.
type ClusterRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UUID      string    `gorm:"type:text;not null;uniqueIndex"`
	ProjectID string    `gorm:"type:text;not null;index"`
	UserID    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Name              string `gorm:"type:text;not null"`
	ClusterTemplateID string `gorm:"type:text;not null;index"`
	Keypair           string `gorm:"type:text"`
	Flavor            string `gorm:"type:text"`
	MasterFlavor      string `gorm:"type:text"`
	DockerVolumeSize  int
	Labels            string `gorm:"type:text"` // JSON encoded map[string]string

	StackID            string `gorm:"type:text;index"`
	Status             string `gorm:"type:text;not null;index"`
	StatusReason       string `gorm:"type:text"`
	HealthStatus       string `gorm:"type:text"`
	HealthStatusReason string `gorm:"type:text"` // JSON encoded map[string]string

	CreateTimeout int
	APIAddress    string `gorm:"type:text"`
	DiscoveryURL  string `gorm:"type:text"`

	CACertRef           string `gorm:"type:text"`
	ClientCertRef       string `gorm:"type:text"`
	EtcdCACertRef       string `gorm:"type:text"`
	FrontProxyCACertRef string `gorm:"type:text"`

	TrustID         string `gorm:"type:text"`
	TrusteeUserID   string `gorm:"type:text"`
	TrusteeUsername string `gorm:"type:text"`
	TrusteePassword string `gorm:"type:text"`

	COEVersion       string `gorm:"type:text"`
	ContainerVersion string `gorm:"type:text"`

	FixedNetwork      string `gorm:"type:text"`
	FixedSubnet       string `gorm:"type:text"`
	FloatingIPEnabled bool
	MasterLBEnabled   bool
}

func (ClusterRecord) TableName() string { return "clusters" }

// NodeGroupRecord persistence model. (ClusterID, Name) unique.
type NodeGroupRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UUID      string    `gorm:"type:text;not null;uniqueIndex"`
	ProjectID string    `gorm:"type:text;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Name             string `gorm:"type:text;not null;uniqueIndex:idx_nodegroup_cluster_name"`
	ClusterID        string `gorm:"type:text;not null;uniqueIndex:idx_nodegroup_cluster_name;index"`
	Role             string `gorm:"type:text;not null"`
	Flavor           string `gorm:"type:text"`
	ImageID          string `gorm:"type:text"`
	DockerVolumeSize int
	Labels           string `gorm:"type:text"` // JSON encoded map[string]string

	NodeAddresses string `gorm:"type:text"` // JSON encoded []string
	NodeCount     int    `gorm:"not null"`
	MinNodeCount  int    `gorm:"not null"`
	MaxNodeCount  *int
	IsDefault     bool

	StackID      string `gorm:"type:text"`
	Status       string `gorm:"type:text"`
	StatusReason string `gorm:"type:text"`
	Version      string `gorm:"type:text"`
}

func (NodeGroupRecord) TableName() string { return "node_groups" }

// X509KeyPairRecord backs the db-backed certificate store.
type X509KeyPairRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UUID      string    `gorm:"type:text;not null;uniqueIndex"`
	ProjectID string    `gorm:"type:text;not null;index"`
	UserID    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Name                 string `gorm:"type:text"`
	Certificate          string `gorm:"type:text;not null"`
	Intermediates        string `gorm:"type:text"`
	PrivateKey           string `gorm:"type:text;not null"`
	PrivateKeyPassphrase string `gorm:"type:text"`
}

func (X509KeyPairRecord) TableName() string { return "x509keypairs" }

// QuotaRecord persistence model. (ProjectID, Resource) unique.
type QuotaRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ProjectID string    `gorm:"type:text;not null;uniqueIndex:idx_quota_project_resource"`
	Resource  string    `gorm:"type:text;not null;uniqueIndex:idx_quota_project_resource"`
	HardLimit int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (QuotaRecord) TableName() string { return "quotas" }

// FederationRecord persistence model.
type FederationRecord struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	UUID          string    `gorm:"type:text;not null;uniqueIndex"`
	ProjectID     string    `gorm:"type:text;not null;index"`
	Name          string    `gorm:"type:text;not null"`
	HostClusterID string    `gorm:"type:text"`
	MemberIDs     string    `gorm:"type:text"` // JSON encoded []string
	Status        string    `gorm:"type:text"`
	StatusReason  string    `gorm:"type:text"`
	Properties    string    `gorm:"type:text"` // JSON encoded map[string]string
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (FederationRecord) TableName() string { return "federations" }

// ServiceHeartbeatRecord persistence model. (Host, Binary) unique.
type ServiceHeartbeatRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Host           string `gorm:"type:text;not null;uniqueIndex:idx_heartbeat_host_binary"`
	Binary         string `gorm:"type:text;not null;uniqueIndex:idx_heartbeat_host_binary"`
	Disabled       bool
	DisabledReason string    `gorm:"type:text"`
	LastSeenUp     time.Time `gorm:"not null"`
	ForcedDown     bool
	ReportCount    int64     `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (ServiceHeartbeatRecord) TableName() string { return "service_heartbeats" }
