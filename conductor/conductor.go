// Package conductor runs the control plane's background loops: the stack
// reconciler that converges IN_PROGRESS clusters against the orchestration
// engine, the service heartbeat, and the health poller that observes running
// clusters through their own APIs.
package conductor

import (
	"context"
	"os"
	"time"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
	"github.com/stackmint/stackmint/usecase/certificate"
	"github.com/stackmint/stackmint/usecase/cluster"
)

const heartbeatBinary = "stackmint-conductor"

// Repos holds the repositories the conductor reads and writes.
type Repos struct {
	Cluster         domain.ClusterRepository
	ClusterTemplate domain.ClusterTemplateRepository
	NodeGroup       domain.NodeGroupRepository
	Heartbeat       domain.ServiceHeartbeatRepository
}

// Config carries the loop intervals. Zero values get defaults.
type Config struct {
	SyncInterval   time.Duration
	HealthInterval time.Duration
	// DockerAPITimeout and KubernetesAPITimeout bound one health poll
	// against the cluster's remote API; zero means no deadline.
	DockerAPITimeout     time.Duration
	KubernetesAPITimeout time.Duration
	// Host overrides os.Hostname in the heartbeat row.
	Host string
}

// Conductor owns the background loops.
type Conductor struct {
	Repos    *Repos
	Stack    model.StackPort
	Clusters *cluster.UseCase
	Certs    *certificate.UseCase
	Cfg      Config
}

func (c *Conductor) host() string {
	if c.Cfg.Host != "" {
		return c.Cfg.Host
	}
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// Run drives both loops until ctx is cancelled. Each tick is independent; a
// failing tick is logged and the next one starts fresh.
func (c *Conductor) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)

	syncInterval := c.Cfg.SyncInterval
	if syncInterval <= 0 {
		syncInterval = 10 * time.Second
	}
	healthInterval := c.Cfg.HealthInterval
	if healthInterval <= 0 {
		healthInterval = time.Minute
	}
	log.Info(ctx, "conductor started",
		"sync_interval", syncInterval.String(), "health_interval", healthInterval.String())

	sync := time.NewTicker(syncInterval)
	defer sync.Stop()
	health := time.NewTicker(healthInterval)
	defer health.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "conductor stopped")
			return ctx.Err()
		case <-sync.C:
			if err := c.Tick(ctx); err != nil {
				log.Error(ctx, "reconciler tick failed", "error", err)
			}
		case <-health.C:
			if err := c.PollHealth(ctx); err != nil {
				log.Error(ctx, "health poll failed", "error", err)
			}
		}
	}
}
