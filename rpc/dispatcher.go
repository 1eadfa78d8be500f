package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// Request is one dispatched call. Object and Method select the handler;
// Version is the object version the caller can consume, empty for latest.
type Request struct {
	Object  string          `json:"object"`
	Method  string          `json:"method"`
	Version string          `json:"version,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response carries the handler result. Class actions fill Result with an
// envelope at the requested version; instance actions additionally carry the
// Updates the mutation applied, so the caller can patch its copy instead of
// refetching.
type Response struct {
	Result  json.RawMessage        `json:"result,omitempty"`
	Updates map[string]interface{} `json:"updates,omitempty"`
	Fault   *Fault                 `json:"fault,omitempty"`
}

// ClassHandler serves an action on the collection. The returned object is
// serialized at the caller's requested version when typeName is registered;
// an empty typeName passes the result through as plain JSON.
type ClassHandler struct {
	TypeName string
	Fn       func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (interface{}, error)
}

// InstanceHandler serves an action on one entity and reports the column
// updates it applied alongside the result.
type InstanceHandler struct {
	TypeName string
	Fn       func(ctx context.Context, rctx *model.RequestContext, args json.RawMessage) (map[string]interface{}, interface{}, error)
}

// Dispatcher routes (object, method) pairs to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	codec    *Codec
	class    map[string]ClassHandler
	instance map[string]InstanceHandler
}

// NewDispatcher returns a dispatcher serializing through codec.
func NewDispatcher(codec *Codec) *Dispatcher {
	return &Dispatcher{
		codec:    codec,
		class:    map[string]ClassHandler{},
		instance: map[string]InstanceHandler{},
	}
}

func key(object, method string) string { return object + "." + method }

// RegisterClass adds a collection-level handler.
func (d *Dispatcher) RegisterClass(object, method string, h ClassHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := key(object, method)
	if _, ok := d.class[k]; ok {
		panic("rpc: duplicate class handler " + k)
	}
	d.class[k] = h
}

// RegisterInstance adds an entity-level handler.
func (d *Dispatcher) RegisterInstance(object, method string, h InstanceHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := key(object, method)
	if _, ok := d.instance[k]; ok {
		panic("rpc: duplicate instance handler " + k)
	}
	d.instance[k] = h
}

// Dispatch runs the handler for req. Handler errors come back inside the
// response as a sanitized Fault, never as a Go error; the error return is
// reserved for dispatch-level failures like serialization bugs.
func (d *Dispatcher) Dispatch(ctx context.Context, rctx *model.RequestContext, req *Request) (*Response, error) {
	if req == nil || req.Object == "" || req.Method == "" {
		return &Response{Fault: sanitize(fmt.Errorf("%w: object and method are required", model.ErrInvalidParameter))}, nil
	}
	d.mu.RLock()
	ch, isClass := d.class[key(req.Object, req.Method)]
	ih, isInstance := d.instance[key(req.Object, req.Method)]
	d.mu.RUnlock()

	log := logging.FromContext(ctx)
	switch {
	case isClass:
		result, err := ch.Fn(ctx, rctx, req.Args)
		if err != nil {
			log.Warn(ctx, "rpc call failed",
				"object", req.Object, "method", req.Method, "error", err)
			return &Response{Fault: sanitize(err)}, nil
		}
		raw, err := d.encodeResult(ch.TypeName, result, req.Version)
		if err != nil {
			return nil, err
		}
		return &Response{Result: raw}, nil

	case isInstance:
		updates, result, err := ih.Fn(ctx, rctx, req.Args)
		if err != nil {
			log.Warn(ctx, "rpc call failed",
				"object", req.Object, "method", req.Method, "error", err)
			return &Response{Fault: sanitize(err)}, nil
		}
		raw, err := d.encodeResult(ih.TypeName, result, req.Version)
		if err != nil {
			return nil, err
		}
		return &Response{Result: raw, Updates: updates}, nil

	default:
		return &Response{Fault: sanitize(fmt.Errorf("%w: no handler for %s.%s",
			model.ErrNotFound, req.Object, req.Method))}, nil
	}
}

func (d *Dispatcher) encodeResult(typeName string, result interface{}, version string) (json.RawMessage, error) {
	if result == nil {
		return nil, nil
	}
	if typeName == "" {
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		return raw, nil
	}
	env, err := d.codec.Marshal(typeName, result, version, nil)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}

// Fault is the sanitized wire form of a handler error: a stable kind for
// programmatic handling and a message stripped of anything internal.
type Fault struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (f *Fault) Error() string { return f.Kind + ": " + f.Message }

var faultKinds = []struct {
	err  error
	kind string
}{
	{model.ErrInvalidParameter, "InvalidParameter"},
	{model.ErrNotFound, "NotFound"},
	{model.ErrAlreadyExists, "AlreadyExists"},
	{model.ErrConflict, "Conflict"},
	{model.ErrTypeNotSupported, "TypeNotSupported"},
	{model.ErrTypeNotEnabled, "TypeNotEnabled"},
	{model.ErrRequiredParameterNotProvided, "RequiredParameterNotProvided"},
	{model.ErrAuthorizationFailure, "AuthorizationFailure"},
	{model.ErrTrustCreateFailed, "TrustCreateFailed"},
	{model.ErrTrustDeleteFailed, "TrustDeleteFailed"},
	{model.ErrCertificateStorage, "CertificateStorage"},
	{model.ErrInvalidCsr, "InvalidCsr"},
	{model.ErrInvalidClusterState, "InvalidClusterState"},
	{model.ErrClusterTemplateReferenced, "ClusterTemplateReferenced"},
	{model.ErrQuotaExceeded, "QuotaExceeded"},
	{model.ErrDiscoveryURL, "DiscoveryURL"},
	{model.ErrOperationTimeout, "OperationTimeout"},
}

// sanitize maps an error onto its wire fault. Known kinds keep their message,
// which call sites build without internal detail; anything else is scrubbed
// to a generic internal error.
func sanitize(err error) *Fault {
	for _, fk := range faultKinds {
		if errors.Is(err, fk.err) {
			return &Fault{Kind: fk.kind, Message: err.Error()}
		}
	}
	return &Fault{Kind: "InternalError", Message: "internal error"}
}
