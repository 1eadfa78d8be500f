package model

import "context"

// StackCreateRequest is what the lifecycle engine hands to the orchestration
// engine to materialize a cluster.
type StackCreateRequest struct {
	Name         string
	TemplatePath string
	Parameters   map[string]interface{}
	TimeoutMins  int
}

// StackUpdateRequest re-renders an existing stack in place.
type StackUpdateRequest struct {
	StackID      string
	TemplatePath string
	Parameters   map[string]interface{}
	TimeoutMins  int
}

// Stack is the engine-side view of a cluster's composite resource.
type Stack struct {
	ID           string
	Name         string
	Status       Status
	StatusReason string
	Outputs      map[string]interface{}
}

// StackPort drives the external orchestration-template engine. Delete is
// idempotent: deleting a missing stack succeeds. Get on a missing stack
// reports ErrNotFound.
type StackPort interface {
	Create(ctx context.Context, req *StackCreateRequest) (stackID string, err error)
	Update(ctx context.Context, req *StackUpdateRequest) error
	Get(ctx context.Context, stackID string) (*Stack, error)
	// List returns the engine's view of the given stacks across all tenants.
	// Missing stacks are simply absent from the result.
	List(ctx context.Context, stackIDs []string) ([]*Stack, error)
	Delete(ctx context.Context, stackID string) error
}
