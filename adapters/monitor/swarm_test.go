package monitor

import (
	"context"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"github.com/stackmint/stackmint/domain/model"
)

type fakeDockerAPI struct {
	info       types.Info
	containers []types.Container
	inspect    map[string]types.ContainerJSON
	pingErr    error
}

func (f *fakeDockerAPI) Info(ctx context.Context) (types.Info, error) { return f.info, nil }

func (f *fakeDockerAPI) ContainerList(ctx context.Context, options types.ContainerListOptions) ([]types.Container, error) {
	return f.containers, nil
}

func (f *fakeDockerAPI) ContainerInspect(ctx context.Context, id string) (types.ContainerJSON, error) {
	return f.inspect[id], nil
}

func (f *fakeDockerAPI) Ping(ctx context.Context) (types.Ping, error) {
	return types.Ping{}, f.pingErr
}

func inspectWithMemory(mem int64) types.ContainerJSON {
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			HostConfig: &container.HostConfig{
				Resources: container.Resources{Memory: mem},
			},
		},
	}
}

func TestSwarmMemoryUtil(t *testing.T) {
	cli := &fakeDockerAPI{
		info: types.Info{SystemStatus: [][2]string{
			{"node0", "10.0.0.4:2375"},
			{" └ Reserved Memory", "0 B / 10 GiB"},
			{"node1", "10.0.0.5:2375"},
			{" └ Reserved Memory", "0 B / 10 GiB"},
		}},
		containers: []types.Container{{ID: "c1"}, {ID: "c2"}},
		inspect: map[string]types.ContainerJSON{
			"c1": inspectWithMemory(4 << 30),
			"c2": inspectWithMemory(6 << 30),
		},
	}
	m := &swarmMonitor{cluster: &model.Cluster{}, cli: cli}
	if err := m.PullData(context.Background()); err != nil {
		t.Fatalf("PullData: %v", err)
	}
	got, err := m.ComputeMetric("memory_util")
	if err != nil {
		t.Fatalf("ComputeMetric: %v", err)
	}
	if got != 50 {
		t.Errorf("memory_util = %v, want 50", got)
	}
}

func TestSwarmMemoryUtilEmptyCluster(t *testing.T) {
	m := &swarmMonitor{cluster: &model.Cluster{}, cli: &fakeDockerAPI{}}
	if err := m.PullData(context.Background()); err != nil {
		t.Fatalf("PullData: %v", err)
	}
	got, err := m.ComputeMetric("memory_util")
	if err != nil {
		t.Fatalf("ComputeMetric: %v", err)
	}
	if got != 0 {
		t.Errorf("memory_util = %v on empty cluster, want 0", got)
	}
}

func TestParseReservedMemory(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "0 B / 2 GiB", want: 2 << 30},
		{in: "512 MiB / 2.5 GiB", want: 2.5 * (1 << 30)},
		{in: "0 B / 0 B", want: 0},
		{in: "1024 KiB", want: 1 << 20},
		{in: "garbage", wantErr: true},
		{in: "1 parsec", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseReservedMemory(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseReservedMemory(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseReservedMemory(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseReservedMemory(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSwarmPollHealthStatus(t *testing.T) {
	m := &swarmMonitor{cluster: &model.Cluster{FloatingIPEnabled: true}, cli: &fakeDockerAPI{}}
	report, err := m.PollHealthStatus(context.Background())
	if err != nil {
		t.Fatalf("PollHealthStatus: %v", err)
	}
	if report.Status != model.HealthStatusHealthy {
		t.Errorf("status = %s, want HEALTHY", report.Status)
	}

	m.cli = &fakeDockerAPI{pingErr: context.DeadlineExceeded}
	report, err = m.PollHealthStatus(context.Background())
	if err != nil {
		t.Fatalf("PollHealthStatus: %v", err)
	}
	if report.Status != model.HealthStatusUnhealthy {
		t.Errorf("status = %s, want UNHEALTHY", report.Status)
	}
}
