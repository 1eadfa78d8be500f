package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stackmint.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Connection != "sqlite:stackmint.db" {
		t.Errorf("database.connection = %q", cfg.Database.Connection)
	}
	if cfg.Cluster.CreateTimeout != 60 {
		t.Errorf("cluster.create_timeout = %d, want 60", cfg.Cluster.CreateTimeout)
	}
	if len(cfg.Cluster.EnabledDefinitions) != 4 {
		t.Errorf("enabled_definitions = %v", cfg.Cluster.EnabledDefinitions)
	}
	if cfg.Certificates.CertManagerType != "barbican" || cfg.Certificates.KeySize != 4096 {
		t.Errorf("certificates = %+v", cfg.Certificates)
	}
	if cfg.Conductor.PeriodicInterval.Std() != time.Minute {
		t.Errorf("periodic_interval = %v", cfg.Conductor.PeriodicInterval.Std())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  connection: sqlite:/var/lib/stackmint/db.sqlite
cluster:
  enabled_definitions: [stackmint_vm_atomic_k8s]
  create_timeout: 30
certificates:
  cert_manager_type: x509keypair
  key_size: 2048
timeouts:
  docker_api: 5s
  kubernetes_api: 15s
conductor:
  periodic_interval: 30s
  health_interval: 3m
discovery:
  etcd_url: https://discovery.example.com/new
`)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Connection != "sqlite:/var/lib/stackmint/db.sqlite" {
		t.Errorf("database.connection = %q", cfg.Database.Connection)
	}
	if len(cfg.Cluster.EnabledDefinitions) != 1 || cfg.Cluster.CreateTimeout != 30 {
		t.Errorf("cluster = %+v", cfg.Cluster)
	}
	if cfg.Certificates.CertManagerType != "x509keypair" || cfg.Certificates.KeySize != 2048 {
		t.Errorf("certificates = %+v", cfg.Certificates)
	}
	if cfg.Timeouts.DockerAPI.Std() != 5*time.Second || cfg.Timeouts.KubernetesAPI.Std() != 15*time.Second {
		t.Errorf("timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Conductor.PeriodicInterval.Std() != 30*time.Second || cfg.Conductor.HealthInterval.Std() != 3*time.Minute {
		t.Errorf("conductor = %+v", cfg.Conductor)
	}
	if cfg.Discovery.EtcdURL != "https://discovery.example.com/new" {
		t.Errorf("discovery.etcd_url = %q", cfg.Discovery.EtcdURL)
	}
	// Sections the file omits keep their defaults.
	if cfg.API.Port != 9511 {
		t.Errorf("api.port = %d, want 9511", cfg.API.Port)
	}
}

func TestBadDurationRejected(t *testing.T) {
	path := writeConfig(t, "timeouts:\n  docker_api: soon\n")
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  connection: sqlite:file.db\n")
	t.Setenv("STACKMINT_DB_URL", "sqlite::memory:")
	t.Setenv("STACKMINT_OS_AUTH_URL", "https://keystone.example.com/v3")
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Connection != "sqlite::memory:" {
		t.Errorf("database.connection = %q, env should win", cfg.Database.Connection)
	}
	if cfg.OpenStack.AuthURL != "https://keystone.example.com/v3" {
		t.Errorf("openstack.auth_url = %q", cfg.OpenStack.AuthURL)
	}
}

func TestUnknownKeysIgnored(t *testing.T) {
	path := writeConfig(t, `
cluster:
  create_timeout: 45
  shiny_new_option: true
barbican_region: RegionOne
`)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cluster.CreateTimeout != 45 {
		t.Errorf("create_timeout = %d, recognized keys must still apply", cfg.Cluster.CreateTimeout)
	}
}
