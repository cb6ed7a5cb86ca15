// Package hierarchy resolves an employee's manager from the org hierarchy.
package hierarchy

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/internal/repositories/orgunit"
	pathpkg "github.com/Ramsey-B/laurel/pkg/hierarchy"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

type ManagerResolver interface {
	Resolve(ctx context.Context, hierarchyPath *string) (*models.ManagerCandidate, error)
}

type Resolver struct {
	orgUnits orgunit.OrgUnitRepository
	logger   ectologger.Logger
}

// NewResolver creates a new manager resolver
func NewResolver(orgUnits orgunit.OrgUnitRepository, logger ectologger.Logger) *Resolver {
	return &Resolver{
		orgUnits: orgUnits,
		logger:   logger,
	}
}

// Resolve finds the manager responsible for the employee whose hierarchy
// path is given: the parent unit's responsible account, ranked by deepest
// hierarchy path when several qualify. An unresolvable manager returns
// (nil, nil); only store failures are errors.
func (r *Resolver) Resolve(ctx context.Context, hierarchyPath *string) (*models.ManagerCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "Resolver.Resolve")
	defer span.End()

	if hierarchyPath == nil || *hierarchyPath == "" {
		r.logger.WithContext(ctx).Debug("No hierarchy path, manager unresolved")
		return nil, nil
	}

	path := pathpkg.ParsePath(*hierarchyPath)
	parentUnit, ok := path.ParentUnit()
	if !ok {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"hierarchy_path": *hierarchyPath,
		}).Debug("Hierarchy path too short, manager unresolved")
		return nil, nil
	}

	candidates, err := r.orgUnits.ManagerCandidates(ctx, parentUnit)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"parent_unit": parentUnit,
		}).Info("No active manager responsible for unit")
		return nil, nil
	}

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.HierarchyPath
	}

	best := candidates[pathpkg.MostSpecific(paths)]
	return &best, nil
}
