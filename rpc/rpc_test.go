package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stackmint/stackmint/domain/model"
)

type widget struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func newWidgetCodec(t *testing.T) *Codec {
	t.Helper()
	c := NewCodec()
	c.RegisterType(ObjectType{
		Name:    "Widget",
		Version: "1.1",
		Fields: []Field{
			{Name: "id", Since: "1.0"},
			{Name: "name", Since: "1.0"},
			{Name: "color", Since: "1.1"},
		},
	})
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	c := newWidgetCodec(t)
	env, err := c.Marshal("Widget", &widget{ID: "w1", Name: "gear", Color: "red"}, "", []string{"color"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if env.Name != "Widget" || env.Namespace != Namespace || env.Version != "1.1" {
		t.Fatalf("unexpected envelope header: %+v", env)
	}
	if len(env.Changes) != 1 || env.Changes[0] != "color" {
		t.Fatalf("unexpected changes: %v", env.Changes)
	}
	var got widget
	if err := c.Unmarshal(env, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != "w1" || got.Name != "gear" || got.Color != "red" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCodecBackportsToOlderVersion(t *testing.T) {
	c := newWidgetCodec(t)
	env, err := c.Marshal("Widget", &widget{ID: "w1", Name: "gear", Color: "red"}, "1.0", nil)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if env.Version != "1.0" {
		t.Fatalf("version = %q, want 1.0", env.Version)
	}
	if strings.Contains(string(env.Data), "color") {
		t.Fatalf("1.0 payload still carries color: %s", env.Data)
	}
	var got widget
	if err := c.Unmarshal(env, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Color != "" {
		t.Fatalf("backported color survived: %q", got.Color)
	}
}

func TestCodecRejectsFutureMarshal(t *testing.T) {
	c := newWidgetCodec(t)
	if _, err := c.Marshal("Widget", &widget{ID: "w1"}, "1.5", nil); !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestCodecDropsUnknownFieldsFromNewerPeer(t *testing.T) {
	c := newWidgetCodec(t)
	env := &Envelope{
		Name:      "Widget",
		Namespace: Namespace,
		Version:   "1.2",
		Data:      json.RawMessage(`{"id":"w1","name":"gear","color":"red","shape":"round"}`),
	}
	var got widget
	if err := c.Unmarshal(env, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != "w1" || got.Color != "red" {
		t.Fatalf("known fields lost: %+v", got)
	}
}

func TestCodecEntityManifests(t *testing.T) {
	c := NewCodec()
	RegisterObjectTypes(c)

	cl := &model.Cluster{UUID: "u1", Name: "c1", ProjectID: "p1", Status: model.StatusCreateComplete, COEVersion: "v1.11.1", HealthStatus: model.HealthStatusHealthy}
	view := NewClusterView(cl, nil)

	env, err := c.Marshal("Cluster", view, "1.0", nil)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{"coe_version", "health_status"} {
		if strings.Contains(string(env.Data), key) {
			t.Fatalf("1.0 payload carries %s: %s", key, env.Data)
		}
	}
	var got ClusterView
	if err := c.Unmarshal(env, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.UUID != "u1" || got.Status != model.StatusCreateComplete {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := NewDispatcher(newWidgetCodec(t))
	d.RegisterClass("Widget", "get", ClassHandler{TypeName: "Widget", Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		var in struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
		}
		if in.ID != "w1" {
			return nil, fmt.Errorf("%w: widget %s", model.ErrNotFound, in.ID)
		}
		return &widget{ID: "w1", Name: "gear", Color: "red"}, nil
	}})
	d.RegisterInstance("Widget", "rename", InstanceHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error) {
		var in struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
		}
		return map[string]interface{}{"name": in.Name}, nil, nil
	}})
	d.RegisterClass("Widget", "explode", ClassHandler{Fn: func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error) {
		return nil, errors.New("disk on fire at /var/lib/stackmint")
	}})
	return d
}

func TestDispatchClassAtRequestedVersion(t *testing.T) {
	d := newTestDispatcher(t)
	resp, err := d.Dispatch(context.Background(), &model.RequestContext{ProjectID: "p1"}, &Request{
		Object:  "Widget",
		Method:  "get",
		Version: "1.0",
		Args:    json.RawMessage(`{"id":"w1"}`),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.Fault != nil {
		t.Fatalf("fault: %+v", resp.Fault)
	}
	var env Envelope
	if err := json.Unmarshal(resp.Result, &env); err != nil {
		t.Fatalf("result is not an envelope: %v", err)
	}
	if env.Version != "1.0" {
		t.Fatalf("version = %q, want 1.0", env.Version)
	}
	if strings.Contains(string(env.Data), "color") {
		t.Fatalf("1.0 result carries color: %s", env.Data)
	}
}

func TestDispatchInstanceUpdates(t *testing.T) {
	d := newTestDispatcher(t)
	resp, err := d.Dispatch(context.Background(), &model.RequestContext{}, &Request{
		Object: "Widget",
		Method: "rename",
		Args:   json.RawMessage(`{"name":"cog"}`),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.Fault != nil {
		t.Fatalf("fault: %+v", resp.Fault)
	}
	if got := resp.Updates["name"]; got != "cog" {
		t.Fatalf("updates[name] = %v, want cog", got)
	}
}

func TestDispatchFaultKinds(t *testing.T) {
	d := newTestDispatcher(t)

	resp, err := d.Dispatch(context.Background(), &model.RequestContext{}, &Request{
		Object: "Widget",
		Method: "get",
		Args:   json.RawMessage(`{"id":"w9"}`),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.Fault == nil || resp.Fault.Kind != "NotFound" {
		t.Fatalf("fault = %+v, want NotFound", resp.Fault)
	}
	if !strings.Contains(resp.Fault.Message, "w9") {
		t.Fatalf("sentinel message scrubbed: %q", resp.Fault.Message)
	}
}

func TestDispatchScrubsInternalErrors(t *testing.T) {
	d := newTestDispatcher(t)
	resp, err := d.Dispatch(context.Background(), &model.RequestContext{}, &Request{
		Object: "Widget",
		Method: "explode",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.Fault == nil || resp.Fault.Kind != "InternalError" {
		t.Fatalf("fault = %+v, want InternalError", resp.Fault)
	}
	if strings.Contains(resp.Fault.Message, "/var/lib") {
		t.Fatalf("internal detail leaked: %q", resp.Fault.Message)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := newTestDispatcher(t)
	resp, err := d.Dispatch(context.Background(), &model.RequestContext{}, &Request{
		Object: "Widget",
		Method: "vaporize",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.Fault == nil || resp.Fault.Kind != "NotFound" {
		t.Fatalf("fault = %+v, want NotFound for unknown method", resp.Fault)
	}
}
