package monitor

import (
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/stackmint/stackmint/domain/model"
)

func node(name, memory, cpu string) corev1.Node {
	return corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Capacity: corev1.ResourceList{
				corev1.ResourceMemory: resource.MustParse(memory),
				corev1.ResourceCPU:    resource.MustParse(cpu),
			},
		},
	}
}

func pod(memory, cpu string) corev1.Pod {
	return corev1.Pod{
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{
				Resources: corev1.ResourceRequirements{
					Limits: corev1.ResourceList{
						corev1.ResourceMemory: resource.MustParse(memory),
						corev1.ResourceCPU:    resource.MustParse(cpu),
					},
				},
			}},
		},
	}
}

func TestKubernetesComputeMetric(t *testing.T) {
	m := &kubernetesMonitor{
		cluster: &model.Cluster{},
		nodes:   []corev1.Node{node("n0", "4Gi", "2"), node("n1", "4Gi", "2")},
		pods:    []corev1.Pod{pod("2Gi", "500m"), pod("2Gi", "1500m")},
	}

	mem, err := m.ComputeMetric("memory_util")
	if err != nil {
		t.Fatalf("memory_util: %v", err)
	}
	if mem != 50 {
		t.Errorf("memory_util = %v, want 50", mem)
	}

	cpu, err := m.ComputeMetric("cpu_util")
	if err != nil {
		t.Fatalf("cpu_util: %v", err)
	}
	if cpu != 50 {
		t.Errorf("cpu_util = %v, want 50", cpu)
	}
}

func TestKubernetesComputeMetricEmptyCluster(t *testing.T) {
	m := &kubernetesMonitor{cluster: &model.Cluster{}}
	for _, name := range []string{"memory_util", "cpu_util"} {
		v, err := m.ComputeMetric(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if v != 0 {
			t.Errorf("%s = %v on empty cluster, want 0", name, v)
		}
	}
}

func TestKubernetesComputeMetricUnknown(t *testing.T) {
	m := &kubernetesMonitor{cluster: &model.Cluster{}}
	if _, err := m.ComputeMetric("disk_util"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestKubernetesUnreachableStatus(t *testing.T) {
	tests := []struct {
		name    string
		cluster *model.Cluster
		want    model.HealthStatus
	}{
		{
			name:    "no floating ip",
			cluster: &model.Cluster{FloatingIPEnabled: false},
			want:    model.HealthStatusUnknown,
		},
		{
			name:    "reachable cluster gone dark",
			cluster: &model.Cluster{FloatingIPEnabled: true},
			want:    model.HealthStatusUnhealthy,
		},
		{
			name: "external auto healer owns health",
			cluster: &model.Cluster{
				FloatingIPEnabled: true,
				Labels: map[string]string{
					"auto_healing_enabled":    "true",
					"auto_healing_controller": "stackmint-auto-healer",
				},
			},
			want: model.HealthStatusUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &kubernetesMonitor{cluster: tt.cluster}
			report := m.unreachable("healthz: connection refused")
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if report.Reason["api"] == "" {
				t.Error("reason must carry the failure detail")
			}
		})
	}
}
