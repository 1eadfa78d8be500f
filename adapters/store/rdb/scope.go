package rdb

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stackmint/stackmint/domain"
	"github.com/stackmint/stackmint/domain/model"
)

// tenantScope filters a query down to the caller's project. Admin callers
// bypass filtering only when AllTenants is set; per-cluster trustee users are
// mapped back to the owning project via the trustee user-name convention.
func tenantScope(q *gorm.DB, rctx *model.RequestContext, trusteeDomainID string) *gorm.DB {
	if rctx == nil {
		return q
	}
	if rctx.IsAdmin && rctx.AllTenants {
		return q
	}
	return q.Where("project_id = ?", rctx.EffectiveProjectID(trusteeDomainID))
}

// lockForUpdate takes a row-level exclusive lock where the dialect supports
// it. SQLite serializes writers at the database level, so the clause is
// skipped there rather than producing invalid SQL.
func lockForUpdate(q *gorm.DB) *gorm.DB {
	if q.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

// keyset anchors pagination at the last row of the previous page.
type keyset struct {
	sortVal interface{}
	id      int64
}

// applyListOpts validates the sort key, orders with id as tiebreaker, applies
// keyset pagination and the limit.
func applyListOpts(q *gorm.DB, opts domain.ListOpts, allowedSort map[string]bool, mk *keyset) (*gorm.DB, error) {
	key := opts.SortKey
	if key == "" {
		key = "created_at"
	}
	if !allowedSort[key] {
		return nil, fmt.Errorf("%w: invalid sort key %q", model.ErrInvalidParameter, opts.SortKey)
	}
	dir, cmp := "ASC", ">"
	if opts.SortDir == domain.SortDesc {
		dir, cmp = "DESC", "<"
	}
	q = q.Order(fmt.Sprintf("%s %s, id %s", key, dir, dir))
	if mk != nil {
		q = q.Where(fmt.Sprintf("(%s %s ?) OR (%s = ? AND id %s ?)", key, cmp, key, cmp), mk.sortVal, mk.sortVal, mk.id)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	return q, nil
}

// applyFilters whitelists filter columns; unknown filter names fail rather
// than silently matching everything.
func applyFilters(q *gorm.DB, filters map[string]interface{}, allowed map[string]bool) (*gorm.DB, error) {
	for k, v := range filters {
		if !allowed[k] {
			return nil, fmt.Errorf("%w: invalid filter %q", model.ErrInvalidParameter, k)
		}
		q = q.Where(fmt.Sprintf("%s = ?", k), v)
	}
	return q, nil
}

// rejectImmutable refuses updates that touch identity-bearing columns.
func rejectImmutable(updates map[string]interface{}, immutable ...string) error {
	for _, k := range immutable {
		if _, ok := updates[k]; ok {
			return fmt.Errorf("%w: %s is immutable", model.ErrInvalidParameter, k)
		}
	}
	return nil
}
