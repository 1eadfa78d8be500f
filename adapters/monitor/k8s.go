// Package monitor implements the per-COE health and metrics observers the
// drivers hand to the conductor. A monitor talks to a live cluster through
// the cluster's own API using the control-plane client certificate.
package monitor

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/stackmint/stackmint/domain/model"
)

const (
	labelAutoHealingEnabled    = "auto_healing_enabled"
	labelAutoHealingController = "auto_healing_controller"
	externalAutoHealer         = "stackmint-auto-healer"
)

type kubernetesMonitor struct {
	cluster   *model.Cluster
	clientset kubernetes.Interface

	nodes []corev1.Node
	pods  []corev1.Pod
}

// NewKubernetes builds a monitor over the cluster's Kubernetes API. creds may
// be nil for a TLS-disabled cluster.
func NewKubernetes(cluster *model.Cluster, creds *model.TLSCredentials) (model.Monitor, error) {
	if cluster.APIAddress == "" {
		return nil, fmt.Errorf("%w: cluster %s has no api_address", model.ErrKubernetesAPI, cluster.UUID)
	}
	cfg := &rest.Config{Host: cluster.APIAddress}
	if creds != nil {
		cfg.TLSClientConfig = rest.TLSClientConfig{
			Insecure: creds.Insecure,
			CAData:   creds.CACert,
			CertData: creds.ClientCert,
			KeyData:  creds.ClientKey,
		}
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client for cluster %s: %w", cluster.UUID, err)
	}
	return &kubernetesMonitor{cluster: cluster, clientset: clientset}, nil
}

func (m *kubernetesMonitor) PullData(ctx context.Context) error {
	nodes, err := m.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("%w: list nodes: %v", model.ErrKubernetesAPI, err)
	}
	pods, err := m.clientset.CoreV1().Pods("default").List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("%w: list pods: %v", model.ErrKubernetesAPI, err)
	}
	m.nodes = nodes.Items
	m.pods = pods.Items
	return nil
}

func (m *kubernetesMonitor) MetricsSpec() map[string]model.Metric {
	return map[string]model.Metric{
		"memory_util": {Unit: "%", Fn: "memory_util"},
		"cpu_util":    {Unit: "%", Fn: "cpu_util"},
	}
}

func (m *kubernetesMonitor) ComputeMetric(name string) (float64, error) {
	switch name {
	case "memory_util":
		return util(m.podsMemory(), m.nodesMemory()), nil
	case "cpu_util":
		return util(m.podsCPU(), m.nodesCPU()), nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", model.ErrInvalidParameter, name)
	}
}

// util is 100*used/total; a zero denominator yields 0, not NaN.
func util(used, total float64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * used / total
}

func (m *kubernetesMonitor) nodesMemory() float64 {
	var total float64
	for i := range m.nodes {
		if q, ok := m.nodes[i].Status.Capacity[corev1.ResourceMemory]; ok {
			total += float64(q.Value())
		}
	}
	return total
}

func (m *kubernetesMonitor) nodesCPU() float64 {
	var total float64
	for i := range m.nodes {
		if q, ok := m.nodes[i].Status.Capacity[corev1.ResourceCPU]; ok {
			total += float64(q.MilliValue()) / 1000
		}
	}
	return total
}

func (m *kubernetesMonitor) podsMemory() float64 {
	var total float64
	for i := range m.pods {
		for j := range m.pods[i].Spec.Containers {
			if q, ok := m.pods[i].Spec.Containers[j].Resources.Limits[corev1.ResourceMemory]; ok {
				total += float64(q.Value())
			}
		}
	}
	return total
}

func (m *kubernetesMonitor) podsCPU() float64 {
	var total float64
	for i := range m.pods {
		for j := range m.pods[i].Spec.Containers {
			if q, ok := m.pods[i].Spec.Containers[j].Resources.Limits[corev1.ResourceCPU]; ok {
				total += float64(q.MilliValue()) / 1000
			}
		}
	}
	return total
}

// PollHealthStatus reports HEALTHY only when /healthz answers "ok" and every
// node has condition Ready=True. An unreachable endpoint degrades to UNKNOWN
// when the cluster has no floating IP or when an external auto-healer owns
// health, UNHEALTHY otherwise.
func (m *kubernetesMonitor) PollHealthStatus(ctx context.Context) (*model.HealthReport, error) {
	reason := map[string]string{}

	body, err := m.clientset.Discovery().RESTClient().Get().AbsPath("/healthz").DoRaw(ctx)
	if err != nil {
		return m.unreachable(fmt.Sprintf("healthz: %v", err)), nil
	}
	healthz := strings.TrimSpace(string(body))
	reason["api"] = healthz

	nodes, err := m.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return m.unreachable(fmt.Sprintf("list nodes: %v", err)), nil
	}

	healthy := healthz == "ok"
	for i := range nodes.Items {
		node := &nodes.Items[i]
		ready := "Unknown"
		for _, cond := range node.Status.Conditions {
			if cond.Type == corev1.NodeReady {
				ready = string(cond.Status)
				break
			}
		}
		reason[node.Name+".Ready"] = ready
		if ready != string(corev1.ConditionTrue) {
			healthy = false
		}
	}

	status := model.HealthStatusUnhealthy
	if healthy {
		status = model.HealthStatusHealthy
	}
	return &model.HealthReport{Status: status, Reason: reason}, nil
}

func (m *kubernetesMonitor) unreachable(detail string) *model.HealthReport {
	if !m.cluster.FloatingIPEnabled || m.externallyHealed() {
		return &model.HealthReport{
			Status: model.HealthStatusUnknown,
			Reason: map[string]string{"api": detail},
		}
	}
	return &model.HealthReport{
		Status: model.HealthStatusUnhealthy,
		Reason: map[string]string{"api": detail},
	}
}

// externallyHealed reports whether the cluster declared an out-of-band
// auto-healer that owns health, in which case transient API outages are not
// counted against it.
func (m *kubernetesMonitor) externallyHealed() bool {
	return m.cluster.Labels[labelAutoHealingEnabled] == "true" &&
		m.cluster.Labels[labelAutoHealingController] == externalAutoHealer
}
