package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/orchestration/v1/stacks"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// HeatAdapter implements model.StackPort against the orchestration service.
type HeatAdapter struct {
	client *gophercloud.ServiceClient
}

// NewHeatAdapter builds the stack port from an authenticated session.
func NewHeatAdapter(session *Session) (*HeatAdapter, error) {
	client, err := session.Orchestration()
	if err != nil {
		return nil, err
	}
	return &HeatAdapter{client: client}, nil
}

func (a *HeatAdapter) Create(ctx context.Context, req *model.StackCreateRequest) (string, error) {
	created, err := stacks.Create(a.client, stacks.CreateOpts{
		Name:         req.Name,
		TemplateOpts: templateOpts(req.TemplatePath),
		Parameters:   req.Parameters,
		Timeout:      req.TimeoutMins,
	}).Extract()
	if err != nil {
		return "", fmt.Errorf("create stack %s: %w", req.Name, err)
	}
	logging.FromContext(ctx).Info(ctx, "stack create submitted",
		"stack_name", req.Name, "stack_id", created.ID)
	return created.ID, nil
}

func (a *HeatAdapter) Update(ctx context.Context, req *model.StackUpdateRequest) error {
	stack, err := a.find(req.StackID)
	if err != nil {
		return err
	}
	err = stacks.Update(a.client, stack.Name, stack.ID, stacks.UpdateOpts{
		TemplateOpts: templateOpts(req.TemplatePath),
		Parameters:   req.Parameters,
		Timeout:      req.TimeoutMins,
	}).ExtractErr()
	if err != nil {
		return fmt.Errorf("update stack %s: %w", req.StackID, err)
	}
	return nil
}

func (a *HeatAdapter) Get(ctx context.Context, stackID string) (*model.Stack, error) {
	stack, err := a.find(stackID)
	if err != nil {
		return nil, err
	}
	return &model.Stack{
		ID:           stack.ID,
		Name:         stack.Name,
		Status:       model.Status(stack.Status),
		StatusReason: stack.StatusReason,
		Outputs:      flattenOutputs(stack.Outputs),
	}, nil
}

// List returns the engine's view of the given stacks in one pass, querying
// across tenants since stacks belong to the clusters' projects. Stacks the
// engine no longer knows are absent from the result.
func (a *HeatAdapter) List(ctx context.Context, stackIDs []string) ([]*model.Stack, error) {
	if len(stackIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(stackIDs))
	for _, id := range stackIDs {
		wanted[id] = true
	}
	pages, err := stacks.List(a.client, stacks.ListOpts{AllTenants: true}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}
	listed, err := stacks.ExtractStacks(pages)
	if err != nil {
		return nil, fmt.Errorf("extract stacks: %w", err)
	}
	var out []*model.Stack
	for _, s := range listed {
		if !wanted[s.ID] {
			continue
		}
		out = append(out, &model.Stack{
			ID:           s.ID,
			Name:         s.Name,
			Status:       model.Status(s.Status),
			StatusReason: s.StatusReason,
		})
	}
	return out, nil
}

// Delete is idempotent: a stack the engine no longer knows is success.
func (a *HeatAdapter) Delete(ctx context.Context, stackID string) error {
	stack, err := a.find(stackID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if err := stacks.Delete(a.client, stack.Name, stack.ID).ExtractErr(); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete stack %s: %w", stackID, err)
	}
	return nil
}

// find resolves a stack by bare identity; heat redirects to the canonical
// name/id path.
func (a *HeatAdapter) find(stackID string) (*stacks.RetrievedStack, error) {
	stack, err := stacks.Find(a.client, stackID).Extract()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: stack %s", model.ErrNotFound, stackID)
		}
		return nil, fmt.Errorf("get stack %s: %w", stackID, err)
	}
	return stack, nil
}

func templateOpts(templatePath string) *stacks.Template {
	t := &stacks.Template{}
	t.URL = templatePath
	return t
}

func flattenOutputs(raw []map[string]interface{}) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(raw))
	for _, entry := range raw {
		key, ok := entry["output_key"].(string)
		if !ok {
			continue
		}
		out[key] = entry["output_value"]
	}
	return out
}

var _ model.StackPort = (*HeatAdapter)(nil)
