// Package drivers holds the template-definition registry and the builtin
// cluster drivers. A driver binds a (server_type, os, coe) tuple to an
// orchestration template, the parameter plumbing that feeds it, and the
// output plumbing that reads stack results back into the model.
package drivers

import (
	"context"
	"fmt"
	"sort"

	"github.com/stackmint/stackmint/domain/model"
)

// COETuple identifies what a driver can provision.
type COETuple struct {
	ServerType model.ServerType
	OS         string
	COE        model.COE
}

func (t COETuple) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.ServerType, t.OS, t.COE)
}

// ParameterMapping feeds one template parameter from the model. Resolution
// order is Cluster attribute, then ClusterTemplate attribute, then the extra
// map; a required parameter resolving to nothing fails the render.
type ParameterMapping struct {
	TemplateParam string
	Attr          string
	Required      bool
	Transform     func(interface{}) interface{}
}

// OutputMapping routes one stack output back to a cluster attribute column.
type OutputMapping struct {
	StackOutput string
	ClusterAttr string
}

// DiscoveryMode selects how a driver obtains a cluster discovery URL.
type DiscoveryMode int

const (
	DiscoveryNone DiscoveryMode = iota
	// DiscoveryToken POSTs to the public discovery service for a token.
	DiscoveryToken
	// DiscoveryEtcd GETs an etcd discovery URL sized to the master count.
	DiscoveryEtcd
)

// Driver is one registered template definition.
type Driver interface {
	Name() string
	Provides() []COETuple
	TemplatePath() string
	ParameterMappings() []ParameterMapping
	OutputMappings() []OutputMapping
	DiscoveryMode() DiscoveryMode

	// GetParams renders the template parameters for a cluster. Values in
	// extra override any resolved attribute.
	GetParams(ctx context.Context, tpl *model.ClusterTemplate, cluster *model.Cluster, groups []*model.NodeGroup, extra map[string]interface{}) (map[string]interface{}, error)

	// UpdateClusterStatus applies the stack's outputs through the output
	// mappings and returns the cluster column updates. Address columns
	// (master_addresses, node_addresses) are included for the caller to
	// route onto the node groups.
	UpdateClusterStatus(cluster *model.Cluster, stack *model.Stack) (map[string]interface{}, error)

	// Monitor builds the health/metrics observer for a running cluster.
	Monitor(cluster *model.Cluster, groups []*model.NodeGroup, creds *model.TLSCredentials) (model.Monitor, error)
}

var registry = map[string]Driver{}

// Register makes a driver available under its entry-point name. Drivers call
// this from init(); duplicate names are a programming error.
func Register(d Driver) {
	if _, ok := registry[d.Name()]; ok {
		panic("drivers: duplicate registration of " + d.Name())
	}
	registry[d.Name()] = d
}

// Lookup returns a registered driver by entry-point name.
func Lookup(name string) (Driver, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names lists all registered entry-point names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func provides(d Driver, tuple COETuple) bool {
	for _, t := range d.Provides() {
		if t == tuple {
			return true
		}
	}
	return false
}

// Resolve walks the ordered allow-list of enabled entry points and returns
// the first enabled driver providing the tuple. A tuple no registered driver
// provides reports ErrTypeNotSupported; a provided tuple whose drivers are
// all disabled reports ErrTypeNotEnabled.
func Resolve(enabled []string, tuple COETuple) (Driver, error) {
	for _, name := range enabled {
		d, ok := registry[name]
		if !ok {
			continue
		}
		if provides(d, tuple) {
			return d, nil
		}
	}
	for _, d := range registry {
		if provides(d, tuple) {
			return nil, fmt.Errorf("%w: cluster type %s is not enabled", model.ErrTypeNotEnabled, tuple)
		}
	}
	return nil, fmt.Errorf("%w: cluster type %s", model.ErrTypeNotSupported, tuple)
}
