package model

import "context"

// Metric describes one entry of a monitor's metrics spec.
type Metric struct {
	Unit string
	Fn   string
}

// HealthReport is the result of one health poll.
type HealthReport struct {
	Status HealthStatus
	Reason map[string]string
}

// TLSCredentials is the PEM material a monitor uses to authenticate against
// a cluster's API endpoint.
type TLSCredentials struct {
	CACert     []byte
	ClientCert []byte
	ClientKey  []byte
	Insecure   bool
}

// Monitor is a driver-provided capability that observes a live cluster
// through its own API. PullData must be called before ComputeMetric.
type Monitor interface {
	PullData(ctx context.Context) error
	MetricsSpec() map[string]Metric
	ComputeMetric(name string) (float64, error)
	PollHealthStatus(ctx context.Context) (*HealthReport, error)
}
