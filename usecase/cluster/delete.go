package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
	"github.com/stackmint/stackmint/usecase/certificate"
)

// DeleteInput identifies the cluster to delete.
type DeleteInput struct {
	Ident string `json:"ident"`
}

// DeleteOutput is empty; delete has no payload.
type DeleteOutput struct{}

// Delete transitions the cluster to DELETE_IN_PROGRESS and requests the
// stack delete. If the stack is already gone the cluster is cleaned up
// immediately; otherwise the conductor finishes cleanup once the engine
// confirms the deletion.
func (u *UseCase) Delete(ctx context.Context, rctx *model.RequestContext, in *DeleteInput) (*DeleteOutput, error) {
	c, err := u.Repos.Cluster.Get(ctx, rctx, in.Ident)
	if err != nil {
		return nil, err
	}
	if !c.Status.AllowsDelete() {
		return nil, fmt.Errorf("%w: cluster %s is %s", model.ErrInvalidClusterState, c.UUID, c.Status)
	}

	if _, err := u.Repos.Cluster.Update(ctx, rctx, c.UUID, map[string]interface{}{
		"status":        model.StatusDeleteInProgress,
		"status_reason": "cluster deletion started",
	}); err != nil {
		return nil, err
	}

	if c.StackID == "" {
		// Never reached the engine; nothing to wait for.
		if err := u.Cleanup(ctx, rctx, c); err != nil {
			return nil, err
		}
		return &DeleteOutput{}, nil
	}

	if _, err := u.Ports.Stack.Get(ctx, c.StackID); errors.Is(err, model.ErrNotFound) {
		if err := u.Cleanup(ctx, rctx, c); err != nil {
			return nil, err
		}
		return &DeleteOutput{}, nil
	}

	if err := u.Ports.Stack.Delete(ctx, c.StackID); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info(ctx, "cluster deletion accepted",
		"cluster_uuid", c.UUID, "stack_id", c.StackID)
	return &DeleteOutput{}, nil
}

// Cleanup removes everything the cluster allocated outside the stack:
// certificates, the delegated credential, its node groups, and finally the
// row itself. Called by Delete for stackless clusters and by the conductor
// once the engine confirms stack deletion.
func (u *UseCase) Cleanup(ctx context.Context, rctx *model.RequestContext, c *model.Cluster) error {
	log := logging.FromContext(ctx)

	if _, err := u.Certs.Delete(ctx, &certificate.DeleteInput{Cluster: c}); err != nil {
		return err
	}
	u.teardownTrust(ctx, rctx, c)

	groups, err := u.Repos.NodeGroup.ListByCluster(ctx, rctx, c.UUID, domainListAll())
	if err != nil {
		return err
	}
	for _, ng := range groups {
		if err := u.Repos.NodeGroup.Destroy(ctx, rctx, ng.UUID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
	}
	if err := u.Repos.Cluster.Destroy(ctx, rctx, c.UUID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	log.Info(ctx, "cluster cleaned up", "cluster_uuid", c.UUID)
	return nil
}
