package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stackmint/stackmint/adapters/certstore"
	"github.com/stackmint/stackmint/adapters/openstack"
	"github.com/stackmint/stackmint/adapters/store/inmem"
	"github.com/stackmint/stackmint/adapters/store/rdb"
	"github.com/stackmint/stackmint/conductor"
	"github.com/stackmint/stackmint/config"
	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/drivers"
	"github.com/stackmint/stackmint/rpc"
	"github.com/stackmint/stackmint/usecase/certificate"
	"github.com/stackmint/stackmint/usecase/cluster"
	"github.com/stackmint/stackmint/usecase/clustertemplate"
	"github.com/stackmint/stackmint/usecase/federation"
	"github.com/stackmint/stackmint/usecase/nodegroup"
	"github.com/stackmint/stackmint/usecase/quota"
)

// app holds everything the serve command runs: the wired use cases, the
// background conductor and the call dispatcher.
type app struct {
	cfg         *config.Config
	repos       *domain.Repositories
	clusters    *cluster.UseCase
	templates   *clustertemplate.UseCase
	nodeGroups  *nodegroup.UseCase
	quotas      *quota.UseCase
	federations *federation.UseCase
	certs       *certificate.UseCase
	conductor   *conductor.Conductor
	dispatcher  *rpc.Dispatcher
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(cmd.Context(), path)
}

// buildRepositories selects the store by database.connection scheme. The
// memory store is for development and tests; everything else goes through
// gorm.
func buildRepositories(cfg *config.Config) (*domain.Repositories, error) {
	conn := cfg.Database.Connection
	switch {
	case conn == "" || strings.HasPrefix(conn, "memory:"):
		return inmem.NewStore(cfg.Trust.TrusteeDomainID).Repositories(), nil

	case strings.HasPrefix(conn, "sqlite:") || strings.HasPrefix(conn, "sqlite3:"):
		db, err := rdb.OpenFromURL(conn)
		if err != nil {
			return nil, err
		}
		if err := rdb.AutoMigrate(db); err != nil {
			return nil, err
		}
		domainID := cfg.Trust.TrusteeDomainID
		return &domain.Repositories{
			Cluster:         rdb.NewClusterRepository(db, domainID),
			ClusterTemplate: rdb.NewClusterTemplateRepository(db, domainID),
			NodeGroup:       rdb.NewNodeGroupRepository(db, domainID),
			X509KeyPair:     rdb.NewX509KeyPairRepository(db, domainID),
			Quota:           rdb.NewQuotaRepository(db),
			Federation:      rdb.NewFederationRepository(db, domainID),
			Heartbeat:       rdb.NewServiceHeartbeatRepository(db),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database scheme: %s", conn)
	}
}

// buildApp wires the full control plane: substrate session, stores, cert
// manager, use cases, conductor and dispatcher.
func buildApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	repos, err := buildRepositories(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.OpenStack.AuthURL == "" {
		return nil, fmt.Errorf("openstack.auth_url is required to serve")
	}
	session, err := openstack.NewSession(openstack.SessionConfig{
		AuthURL:           cfg.OpenStack.AuthURL,
		Region:            cfg.OpenStack.Region,
		Username:          cfg.OpenStack.Username,
		Password:          cfg.OpenStack.Password,
		UserDomainName:    cfg.OpenStack.UserDomainName,
		ProjectName:       cfg.OpenStack.ProjectName,
		ProjectDomainName: cfg.OpenStack.ProjectDomainName,
	})
	if err != nil {
		return nil, fmt.Errorf("substrate session: %w", err)
	}
	heat, err := openstack.NewHeatAdapter(session)
	if err != nil {
		return nil, fmt.Errorf("orchestration client: %w", err)
	}
	keystone, err := openstack.NewKeystoneAdapter(session, openstack.TrustConfig{
		TrusteeDomainID: cfg.Trust.TrusteeDomainID,
		Roles:           cfg.Trust.Roles,
	})
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}

	certDeps := certstore.Deps{
		KeyPairs:    repos.X509KeyPair,
		StoragePath: cfg.Certificates.StoragePath,
	}
	if cfg.Certificates.CertManagerType == "barbican" {
		km, err := session.KeyManager()
		if err != nil {
			return nil, fmt.Errorf("secret store client: %w", err)
		}
		certDeps.KeyManager = km
	}
	store, err := certstore.New(cfg.Certificates.CertManagerType, certDeps)
	if err != nil {
		return nil, err
	}

	certs := &certificate.UseCase{
		Repos:     &certificate.Repos{Cluster: repos.Cluster},
		CertStore: store,
		KeySize:   cfg.Certificates.KeySize,
	}
	clusters := &cluster.UseCase{
		Repos: &cluster.Repos{
			Cluster:         repos.Cluster,
			ClusterTemplate: repos.ClusterTemplate,
			NodeGroup:       repos.NodeGroup,
			Quota:           repos.Quota,
		},
		Ports: &cluster.Ports{Stack: heat, Identity: keystone},
		Certs: certs,
		Cfg: cluster.Config{
			EnabledDefinitions: cfg.Cluster.EnabledDefinitions,
			CreateTimeout:      cfg.Cluster.CreateTimeout,
			Discovery: drivers.DiscoveryConfig{
				TokenURL:  cfg.Discovery.TokenURL,
				EtcdURL:   cfg.Discovery.EtcdURL,
				URLFormat: cfg.Discovery.URLFormat,
			},
		},
	}

	a := &app{
		cfg:      cfg,
		repos:    repos,
		clusters: clusters,
		certs:    certs,
		templates: &clustertemplate.UseCase{Repos: &clustertemplate.Repos{
			ClusterTemplate: repos.ClusterTemplate,
			Cluster:         repos.Cluster,
		}},
		nodeGroups: &nodegroup.UseCase{Repos: &nodegroup.Repos{
			NodeGroup:       repos.NodeGroup,
			Cluster:         repos.Cluster,
			ClusterTemplate: repos.ClusterTemplate,
		}},
		quotas: &quota.UseCase{Repos: &quota.Repos{Quota: repos.Quota}},
		federations: &federation.UseCase{Repos: &federation.Repos{
			Federation: repos.Federation,
			Cluster:    repos.Cluster,
		}},
	}
	a.conductor = &conductor.Conductor{
		Repos: &conductor.Repos{
			Cluster:         repos.Cluster,
			ClusterTemplate: repos.ClusterTemplate,
			NodeGroup:       repos.NodeGroup,
			Heartbeat:       repos.Heartbeat,
		},
		Stack:    heat,
		Clusters: clusters,
		Certs:    certs,
		Cfg: conductor.Config{
			SyncInterval:         cfg.Conductor.PeriodicInterval.Std(),
			HealthInterval:       cfg.Conductor.HealthInterval.Std(),
			DockerAPITimeout:     cfg.Timeouts.DockerAPI.Std(),
			KubernetesAPITimeout: cfg.Timeouts.KubernetesAPI.Std(),
		},
	}
	a.dispatcher = newDispatcher(a)
	return a, nil
}
