// Package config loads the control-plane configuration from a YAML file with
// environment overrides. Unrecognized keys are reported with a warning and
// otherwise ignored.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackmint/stackmint/internal/logging"
)

// Database configures the relational store.
type Database struct {
	Connection string `yaml:"connection"`
}

// API configures the inbound listener handed to the API tier.
type API struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Cluster configures driver selection and stack defaults.
type Cluster struct {
	// EnabledDefinitions is the ordered allow-list of driver entry points.
	EnabledDefinitions []string `yaml:"enabled_definitions"`
	// CreateTimeout is the default stack create timeout in minutes.
	CreateTimeout int `yaml:"create_timeout"`
}

// Certificates configures the certificate manager backend.
type Certificates struct {
	CertManagerType string `yaml:"cert_manager_type"` // barbican | x509keypair | local
	StoragePath     string `yaml:"storage_path"`
	KeySize         int    `yaml:"key_size"`
}

// Trust configures delegated-credential creation.
type Trust struct {
	TrusteeDomainID   string `yaml:"trustee_domain_id"`
	TrusteeDomainName string `yaml:"trustee_domain_name"`
	// Roles delegated to the trustee; empty means all of the caller's roles.
	Roles []string `yaml:"roles"`
}

// Discovery configures discovery-URL derivation for drivers that need a
// per-cluster bootstrap token.
type Discovery struct {
	// TokenURL is POSTed to for a public discovery token.
	TokenURL string `yaml:"token_url"`
	// EtcdURL is GET with ?size=<master_count> for an etcd discovery URL.
	EtcdURL string `yaml:"etcd_url"`
	// URLFormat is a fallback template substituting %(cluster_id)s and
	// %(cluster_uuid)s.
	URLFormat string `yaml:"url_format"`
}

// Duration is a time.Duration that decodes YAML scalars like "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Timeouts bounds outbound API calls from the monitors.
type Timeouts struct {
	DockerAPI     Duration `yaml:"docker_api"`
	KubernetesAPI Duration `yaml:"kubernetes_api"`
}

// Conductor configures the periodic loops.
type Conductor struct {
	PeriodicInterval Duration `yaml:"periodic_interval"`
	HealthInterval   Duration `yaml:"health_interval"`
}

// OpenStack configures the substrate session used for the orchestration
// engine, identity and the secret store.
type OpenStack struct {
	AuthURL           string `yaml:"auth_url"`
	Region            string `yaml:"region"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	UserDomainName    string `yaml:"user_domain_name"`
	ProjectName       string `yaml:"project_name"`
	ProjectDomainName string `yaml:"project_domain_name"`
}

// Config is the full recognized option set.
type Config struct {
	Database     Database     `yaml:"database"`
	API          API          `yaml:"api"`
	Cluster      Cluster      `yaml:"cluster"`
	Certificates Certificates `yaml:"certificates"`
	Trust        Trust        `yaml:"trust"`
	Discovery    Discovery    `yaml:"discovery"`
	Timeouts     Timeouts     `yaml:"timeouts"`
	Conductor    Conductor    `yaml:"conductor"`
	OpenStack    OpenStack    `yaml:"openstack"`
}

// Default returns the built-in defaults applied before file and env loading.
func Default() *Config {
	return &Config{
		Database: Database{Connection: "sqlite:stackmint.db"},
		API:      API{Host: "127.0.0.1", Port: 9511},
		Cluster: Cluster{
			EnabledDefinitions: []string{
				"stackmint_vm_atomic_k8s",
				"stackmint_vm_coreos_k8s",
				"stackmint_vm_atomic_swarm",
				"stackmint_vm_swarm_mode",
			},
			CreateTimeout: 60,
		},
		Certificates: Certificates{CertManagerType: "barbican", KeySize: 4096},
		Timeouts:     Timeouts{DockerAPI: Duration(10 * time.Second), KubernetesAPI: Duration(10 * time.Second)},
		Conductor:    Conductor{PeriodicInterval: Duration(time.Minute), HealthInterval: Duration(2 * time.Minute)},
	}
}

// Load reads path (when non-empty) over Default and applies env overrides.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		warnUnknownKeys(ctx, data)
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// recognized maps config sections to their known keys.
var recognized = map[string]map[string]bool{
	"database":     {"connection": true},
	"api":          {"host": true, "port": true},
	"cluster":      {"enabled_definitions": true, "create_timeout": true},
	"certificates": {"cert_manager_type": true, "storage_path": true, "key_size": true},
	"trust":        {"trustee_domain_id": true, "trustee_domain_name": true, "roles": true},
	"discovery":    {"token_url": true, "etcd_url": true, "url_format": true},
	"timeouts":     {"docker_api": true, "kubernetes_api": true},
	"conductor":    {"periodic_interval": true, "health_interval": true},
	"openstack": {
		"auth_url": true, "region": true, "username": true, "password": true,
		"user_domain_name": true, "project_name": true, "project_domain_name": true,
	},
}

func warnUnknownKeys(ctx context.Context, data []byte) {
	log := logging.FromContext(ctx)
	var raw map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return // structural errors surface from the typed unmarshal
	}
	for section, keys := range raw {
		known, ok := recognized[section]
		if !ok {
			log.Warn(ctx, "ignoring unrecognized config section", "section", section)
			continue
		}
		for k := range keys {
			if !known[k] {
				log.Warn(ctx, "ignoring unrecognized config option", "section", section, "option", k)
			}
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STACKMINT_DB_URL"); v != "" {
		cfg.Database.Connection = v
	}
	if v := os.Getenv("STACKMINT_OS_AUTH_URL"); v != "" {
		cfg.OpenStack.AuthURL = v
	}
	if v := os.Getenv("STACKMINT_OS_USERNAME"); v != "" {
		cfg.OpenStack.Username = v
	}
	if v := os.Getenv("STACKMINT_OS_PASSWORD"); v != "" {
		cfg.OpenStack.Password = v
	}
	if v := os.Getenv("STACKMINT_OS_REGION"); v != "" {
		cfg.OpenStack.Region = v
	}
}
