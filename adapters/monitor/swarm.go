package monitor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	dockerclient "github.com/docker/docker/client"

	"github.com/stackmint/stackmint/domain/model"
)

type swarmMonitor struct {
	cluster *model.Cluster
	cli     dockerAPI

	nodesMemory      float64
	containersMemory float64
}

// dockerAPI is the slice of the engine API the monitor uses.
type dockerAPI interface {
	Info(ctx context.Context) (types.Info, error)
	ContainerList(ctx context.Context, options types.ContainerListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	Ping(ctx context.Context) (types.Ping, error)
}

// NewSwarm builds a monitor over the cluster's container engine remote API.
func NewSwarm(cluster *model.Cluster, groups []*model.NodeGroup, creds *model.TLSCredentials) (model.Monitor, error) {
	if cluster.APIAddress == "" {
		return nil, fmt.Errorf("%w: cluster %s has no api_address", model.ErrContainerAPI, cluster.UUID)
	}
	opts := []dockerclient.Opt{
		dockerclient.WithHost(cluster.APIAddress),
		dockerclient.WithAPIVersionNegotiation(),
	}
	if creds != nil {
		httpClient, err := tlsHTTPClient(creds)
		if err != nil {
			return nil, fmt.Errorf("build tls transport for cluster %s: %w", cluster.UUID, err)
		}
		opts = append([]dockerclient.Opt{dockerclient.WithHTTPClient(httpClient)}, opts...)
	}
	cli, err := dockerclient.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("build docker client for cluster %s: %w", cluster.UUID, err)
	}
	return &swarmMonitor{cluster: cluster, cli: cli}, nil
}

func tlsHTTPClient(creds *model.TLSCredentials) (*http.Client, error) {
	cfg := &tls.Config{InsecureSkipVerify: creds.Insecure}
	if len(creds.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(creds.CACert) {
			return nil, fmt.Errorf("no CA certificates parsed")
		}
		cfg.RootCAs = pool
	}
	if len(creds.ClientCert) > 0 {
		pair, err := tls.X509KeyPair(creds.ClientCert, creds.ClientKey)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}, nil
}

// PullData aggregates reserved node memory from the engine's Info system
// status and the memory limit of every container.
func (m *swarmMonitor) PullData(ctx context.Context) error {
	info, err := m.cli.Info(ctx)
	if err != nil {
		return fmt.Errorf("%w: info: %v", model.ErrContainerAPI, err)
	}
	var nodesMem float64
	for _, row := range info.SystemStatus {
		if strings.TrimLeft(row[0], " └├│") != "Reserved Memory" {
			continue
		}
		mem, err := parseReservedMemory(row[1])
		if err != nil {
			return fmt.Errorf("%w: node memory %q: %v", model.ErrContainerAPI, row[1], err)
		}
		nodesMem += mem
	}

	containers, err := m.cli.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return fmt.Errorf("%w: list containers: %v", model.ErrContainerAPI, err)
	}
	var containersMem float64
	for _, c := range containers {
		detail, err := m.cli.ContainerInspect(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("%w: inspect %s: %v", model.ErrContainerAPI, c.ID, err)
		}
		if detail.HostConfig != nil {
			containersMem += float64(detail.HostConfig.Memory)
		}
	}

	m.nodesMemory = nodesMem
	m.containersMemory = containersMem
	return nil
}

func (m *swarmMonitor) MetricsSpec() map[string]model.Metric {
	return map[string]model.Metric{
		"memory_util": {Unit: "%", Fn: "memory_util"},
	}
}

func (m *swarmMonitor) ComputeMetric(name string) (float64, error) {
	switch name {
	case "memory_util":
		return util(m.containersMemory, m.nodesMemory), nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", model.ErrInvalidParameter, name)
	}
}

func (m *swarmMonitor) PollHealthStatus(ctx context.Context) (*model.HealthReport, error) {
	if _, err := m.cli.Ping(ctx); err != nil {
		detail := fmt.Sprintf("ping: %v", err)
		status := model.HealthStatusUnhealthy
		if !m.cluster.FloatingIPEnabled {
			status = model.HealthStatusUnknown
		}
		return &model.HealthReport{Status: status, Reason: map[string]string{"api": detail}}, nil
	}
	return &model.HealthReport{
		Status: model.HealthStatusHealthy,
		Reason: map[string]string{"api": "ok"},
	}, nil
}

var memoryUnits = map[string]float64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
}

// parseReservedMemory reads the right-hand side of a system-status memory
// value such as "0 B / 2.052 GiB" into bytes.
func parseReservedMemory(s string) (float64, error) {
	parts := strings.Split(s, "/")
	total := strings.Fields(strings.TrimSpace(parts[len(parts)-1]))
	if len(total) != 2 {
		return 0, fmt.Errorf("malformed memory value")
	}
	n, err := strconv.ParseFloat(total[0], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed memory amount: %v", err)
	}
	mult, ok := memoryUnits[total[1]]
	if !ok {
		return 0, fmt.Errorf("unknown memory unit %q", total[1])
	}
	return n * mult, nil
}
